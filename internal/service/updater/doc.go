// Package updater brings the published UDUNITS-2 combined document up to date.
//
// A run checks the latest upstream release against the copy in Nexus, merges
// the release documents when they differ, writes the outputs atomically and
// publishes them. A marker file prevents overlapping runs, and the temporary
// output directory is removed afterwards unless asked to keep it.
package updater
