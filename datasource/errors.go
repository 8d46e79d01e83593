package datasource

import (
	"errors"
	"fmt"
)

// Common errors returned by this package.
var (
	ErrOpen          = errors.New("datasource: open failed")
	ErrUnknownType   = errors.New("datasource: unknown type")
	ErrUnknownField  = errors.New("datasource: unknown field")
	ErrInvalidParams = errors.New("datasource: invalid parameters")
)

// OpenError reports a datasource that could not be read or decoded.
// It matches ErrOpen and unwraps to the cause.
type OpenError struct {
	Type   string
	Source string // file path, or "inline"
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("datasource: open %s %s: %v", e.Type, e.Source, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

func (e *OpenError) Is(target error) bool { return target == ErrOpen }
