// Package checker decides whether the published combined document is stale.
//
// It reads the release version back from the namespace declarations of the
// current copy in Nexus and compares it with the latest upstream release.
package checker
