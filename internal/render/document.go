package render

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/internal/log"
)

// SplitLines splits text on \n, dropping a trailing \r from each line and
// the empty line after a final newline.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// TokenizeDocument tokenizes lines in order, threading each line's state
// into the next. A line that runs over budget keeps its partial tokens and
// the document continues from the state it stopped in; the count of such
// lines is returned. Any other error stops the document.
func TokenizeDocument(ctx context.Context, g *grammar.Grammar, lines []string, budget time.Duration) ([]*grammar.TokenizeResult, int, error) {
	results := make([]*grammar.TokenizeResult, len(lines))
	var state *grammar.StateStack
	stopped := 0
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return results[:i], stopped, err
		}
		res, err := g.TokenizeLine(ctx, line, state, budget)
		if err != nil {
			if !errors.Is(err, grammar.ErrTimeout) || res == nil || ctx.Err() != nil {
				return results[:i], stopped, err
			}
			stopped++
			log.Warn(log.CatTokenizer, "line cut short", "line", i+1, "scope", g.ScopeName())
		}
		results[i] = res
		state = res.State
	}
	return results, stopped, nil
}
