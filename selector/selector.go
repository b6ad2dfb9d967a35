package selector

import (
	"strings"

	"github.com/zjrosen/tmlight/internal/log"
)

// Alternative is one top-level disjunct with its priority: -1 for "L:",
// +1 for "R:", otherwise 0.
type Alternative struct {
	Expr     Expr
	Priority int
}

// Selector is a compiled scope selector.
type Selector struct {
	source       string
	alternatives []Alternative
	err          error
}

// Parse compiles a selector and reports syntax errors.
func Parse(source string) (*Selector, error) {
	alts, err := NewParser(source).Parse()
	if err != nil {
		return nil, err
	}
	return &Selector{source: source, alternatives: alts}, nil
}

// Compile is Parse for callers that prefer a selector that never matches
// over an error.
func Compile(source string) *Selector {
	s, err := Parse(source)
	if err != nil {
		log.Warn(log.CatSelector, "selector never matches", "selector", source, "error", err)
		return &Selector{source: source, err: err}
	}
	return s
}

// Match reports whether any alternative matches the scope chain (outermost
// first) and the highest priority among the matching alternatives.
func (s *Selector) Match(scopes []string) (bool, int) {
	matched := false
	best := 0
	for _, alt := range s.alternatives {
		if !alt.Expr.Matches(scopes) {
			continue
		}
		if !matched || alt.Priority > best {
			best = alt.Priority
		}
		matched = true
	}
	return matched, best
}

// Matches is Match without the priority.
func (s *Selector) Matches(scopes []string) bool {
	ok, _ := s.Match(scopes)
	return ok
}

// Alternatives returns the top-level alternatives.
func (s *Selector) Alternatives() []Alternative {
	return s.alternatives
}

// Err returns the parse error of a selector built by Compile.
func (s *Selector) Err() error {
	return s.err
}

// String returns the selector source.
func (s *Selector) String() string {
	return strings.TrimSpace(s.source)
}
