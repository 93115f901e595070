// Package publisher uploads a merged release to the raw repository.
//
// A release is stored twice: once in its versioned directory and once in the
// "current" directory, whose previous contents are removed first.
package publisher
