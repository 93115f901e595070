// Package artifact writes output files atomically and verifies them with a
// SHA-512 checksum.
package artifact
