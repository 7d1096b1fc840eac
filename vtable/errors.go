package vtable

import "errors"

var (
	// ErrInconsistentMatch means the satisfaction checker and the builder
	// disagree. It indicates a bug, never a user error.
	ErrInconsistentMatch = errors.New("inconsistent method match")
)
