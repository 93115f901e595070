// Package nexus talks to the REST API of a Nexus raw repository.
//
// The Client downloads assets, uploads components as multipart forms, lists
// components of a group and deletes them. Mutating calls authenticate with
// basic auth; the password never appears in returned errors.
package nexus
