// Package version exposes build metadata for udunits2-publisher.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Short and Full render them for the CLI and for the User-Agent
// header sent to GitHub and Nexus.
package version
