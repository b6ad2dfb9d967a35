package onig

import (
	"errors"
	"fmt"
)

// ErrMatchTimeout is returned when a search exceeds the engine's match
// timeout or outlives the caller's context.
var ErrMatchTimeout = errors.New("pattern match timed out")

// PatternCompileError reports a pattern that could not be translated or
// compiled.
type PatternCompileError struct {
	Pattern string
	Err     error
}

func (e *PatternCompileError) Error() string {
	return fmt.Sprintf("compile pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternCompileError) Unwrap() error {
	return e.Err
}
