package grammar

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInclude reports an include whose target does not exist.
	ErrMissingInclude = errors.New("include target not found")
	// ErrTimeout is returned with a partial result when tokenizing a line
	// exceeds its time budget or its context is done.
	ErrTimeout = errors.New("tokenization time budget exceeded")
	// ErrNoGrammar is returned when no grammar is known for a scope.
	ErrNoGrammar = errors.New("grammar not found")
)

// GrammarError reports a malformed rule graph found while loading. The
// grammar is rejected.
type GrammarError struct {
	ScopeName string
	Location  string
	Err       error
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("grammar %s: %s: %v", e.ScopeName, e.Location, e.Err)
}

func (e *GrammarError) Unwrap() error {
	return e.Err
}
