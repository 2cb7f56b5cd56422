package modules

import "errors"

var (
	ErrNotDirectory       = errors.New("not a directory")
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")
)
