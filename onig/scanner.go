package onig

import (
	"context"
	"fmt"

	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/textview"
)

// CaptureIndex is a byte span [Start, End). Unmatched groups are {-1, -1}.
type CaptureIndex struct {
	Start int
	End   int
}

// Length returns End - Start, or 0 for an unmatched group.
func (c CaptureIndex) Length() int {
	if c.Start < 0 {
		return 0
	}
	return c.End - c.Start
}

// Matched reports whether the group took part in the match.
func (c CaptureIndex) Matched() bool {
	return c.Start >= 0
}

// Match is the winning alternative of a scan.
type Match struct {
	Index    int
	Captures []CaptureIndex
}

// Scanner searches several alternatives at once.
type Scanner struct {
	patterns []*Regexp
	errs     []error
}

// NewScanner compiles each source. Alternatives that fail to compile are
// logged and never match.
func (e *Engine) NewScanner(sources []string) *Scanner {
	s := &Scanner{
		patterns: make([]*Regexp, len(sources)),
		errs:     make([]error, len(sources)),
	}
	for i, src := range sources {
		re, err := e.Compile(src)
		if err != nil {
			log.ErrorErr(log.CatRegex, "pattern disabled", err, "index", i)
			s.errs[i] = err
			continue
		}
		s.patterns[i] = re
	}
	return s
}

// Errors returns the compile error of each alternative, nil where it
// compiled.
func (s *Scanner) Errors() []error {
	return s.errs
}

// Len returns the number of alternatives.
func (s *Scanner) Len() int {
	return len(s.patterns)
}

// FindNextMatch returns the earliest match at or after the byte offset
// start. Ties go to the lower alternative index. A nil Match with a nil
// error means nothing matched. Once ctx is done the scan stops with
// ErrMatchTimeout, even between alternatives.
func (s *Scanner) FindNextMatch(ctx context.Context, v *textview.View, start int) (*Match, error) {
	var best *Match
	for i, re := range s.patterns {
		if re == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMatchTimeout, err)
		}
		caps, err := re.FindAt(ctx, v, start)
		if err != nil {
			return nil, err
		}
		if caps == nil {
			continue
		}
		if best == nil || caps[0].Start < best.Captures[0].Start {
			best = &Match{Index: i, Captures: caps}
			if caps[0].Start == start {
				break
			}
		}
	}
	return best, nil
}
