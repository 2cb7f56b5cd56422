package assembler

import "errors"

var (
	ErrNilEngine     = errors.New("compression engine is required")
	ErrNilModule     = errors.New("module is nil")
	ErrEmptyTemplate = errors.New("template name is required")
)
