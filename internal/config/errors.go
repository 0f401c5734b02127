package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSeverity means a configured severity is not a known level.
	ErrInvalidSeverity = errors.New("invalid severity")
	// ErrBareObject means a hint was configured with an object instead of
	// a severity or a [severity, options] array.
	ErrBareObject = errors.New("hint configuration must be a severity or a [severity, options] array")
	// ErrInvalidOptions means the options failed every schema of the hint.
	ErrInvalidOptions = errors.New("invalid hint options")
	// ErrUnknownHint means the configuration names a hint nobody registered.
	ErrUnknownHint = errors.New("unknown hint")
)

// HintError is a fatal configuration problem attributed to one hint.
type HintError struct {
	HintID string
	Err    error
}

func (e *HintError) Error() string {
	return fmt.Sprintf("hint %q: %v", e.HintID, e.Err)
}

func (e *HintError) Unwrap() error { return e.Err }
