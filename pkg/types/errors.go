package types

import "errors"

// Domain errors shared across packages.
var (
	ErrNilDocument   = errors.New("document cannot be nil")
	ErrNilConfig     = errors.New("config cannot be nil")
	ErrInvalidConfig = errors.New("config failed validation")
)
