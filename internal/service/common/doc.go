// Package common holds helpers shared by several services.
//
// It detects the current system actor (hostname/username) so runs can be
// attributed in logs and in the run marker.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
