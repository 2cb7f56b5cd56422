package compression

import (
	"errors"
	"fmt"
)

// Precondition errors. Extraction, summarization and validation never fail;
// these are only returned for invalid caller input.
var (
	ErrNilModule    = errors.New("module is required")
	ErrUnknownLevel = errors.New("unknown compression level")
	ErrUnknownMode  = errors.New("unknown deployment mode")
)

// ArgumentError reports a precondition violation on an engine argument.
type ArgumentError struct {
	Arg string
	Err error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %v", e.Arg, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}
