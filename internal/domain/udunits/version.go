package udunits

import (
	"strings"
	"unicode"
)

// Version is a release identifier such as "v2.2.28".
// Versions are compared by string equality only.
type Version string

// String implements fmt.Stringer.
func (v Version) String() string {
	return string(v)
}

// Number returns the version without its leading letter marker ("v2.2.28" -> "2.2.28").
func (v Version) Number() string {
	s := strings.TrimSpace(string(v))

	for i, r := range s {
		if i == 0 && unicode.IsLetter(r) {
			continue
		}

		return s[i:]
	}

	return s
}

// LooksValid reports whether v contains at least one "." separator.
func (v Version) LooksValid() bool {
	return strings.Contains(string(v), ".")
}
