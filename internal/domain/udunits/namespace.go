package udunits

import "fmt"

const (
	// ManifestFilename is the registry document listing the unit systems.
	ManifestFilename = "udunits2.xml"

	// CombinedFilename is the name of the merged document, on disk and in Nexus.
	CombinedFilename = "udunits2_combined.xml"

	// CopyrightFilename is the name of the copyright file, on disk and in Nexus.
	CopyrightFilename = "UDUNITS-2_COPYRIGHT"

	// RootPrefix and RootNamespace form the top-level namespace declaration.
	RootPrefix    = "u2"
	RootNamespace = "https://doi.org/10.5065/D6KD1WN0"

	// AcceptedPrefix is the code of the accepted units document; its namespace
	// URL carries the version the combined document was built from.
	AcceptedPrefix = "a"
)

// systemPrefixes assigns a fixed namespace code to every system document.
//
//nolint:gochecknoglobals // Fixed lookup table.
var systemPrefixes = map[string]string{
	"udunits2-prefixes.xml": "p",
	"udunits2-base.xml":     "b",
	"udunits2-derived.xml":  "d",
	"udunits2-accepted.xml": AcceptedPrefix,
	"udunits2-common.xml":   "c",
}

// PrefixFor returns the namespace code for a system document filename.
func PrefixFor(filename string) (string, error) {
	prefix, ok := systemPrefixes[filename]
	if !ok {
		return "", fmt.Errorf("no namespace prefix for system document %q: %w", filename, ErrStructural)
	}

	return prefix, nil
}

// Namespace is one xmlns declaration.
type Namespace struct {
	Prefix string
	URL    string
}

// Namespaces is an ordered set of namespace declarations keyed by prefix.
type Namespaces struct {
	entries []Namespace
}

// Set adds or replaces the declaration for prefix, keeping first-insertion order.
func (n *Namespaces) Set(prefix, url string) {
	for i := range n.entries {
		if n.entries[i].Prefix == prefix {
			n.entries[i].URL = url
			return
		}
	}

	n.entries = append(n.entries, Namespace{Prefix: prefix, URL: url})
}

// Get returns the URL declared for prefix.
func (n *Namespaces) Get(prefix string) (string, bool) {
	for _, ns := range n.entries {
		if ns.Prefix == prefix {
			return ns.URL, true
		}
	}

	return "", false
}

// All returns a copy of the declarations in insertion order.
func (n *Namespaces) All() []Namespace {
	return append([]Namespace(nil), n.entries...)
}

// Len returns the number of declarations.
func (n *Namespaces) Len() int {
	return len(n.entries)
}
