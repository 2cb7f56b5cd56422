package reference

import "errors"

// Registry errors.
var (
	ErrInvalidYAML = errors.New("configuration body is not valid YAML")
	ErrDuplicateID = errors.New("duplicate registry id")
	ErrEmptyID     = errors.New("registry id is required")
	ErrEmptyBody   = errors.New("registry entry has an empty body")

	ErrCyclicReference = errors.New("registry entry refers back to itself")
)
