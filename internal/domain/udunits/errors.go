package udunits

import "errors"

var (
	// ErrStructural marks XML documents that lack the elements a step relies on.
	ErrStructural = errors.New("unexpected document structure")
	// ErrValidation marks values that fail a format check before any remote mutation.
	ErrValidation = errors.New("validation failed")
)
