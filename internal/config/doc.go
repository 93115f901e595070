// Package config defines the publisher settings and provides helpers to
// load, validate and save them in YAML format.
//
// Every field has a default pointing at the public Unidata and GitHub
// endpoints, so the file is optional.
package config
