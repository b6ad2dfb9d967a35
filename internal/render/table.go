package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/textview"
)

// DefaultTextWidth is the text column width of the token table.
const DefaultTextWidth = 24

// WriteTable writes one row per token: position, the token text padded
// or cut to textWidth display columns, then the scope chain.
func WriteTable(w io.Writer, lines []string, results []*grammar.TokenizeResult, textWidth int) error {
	if textWidth <= 0 {
		textWidth = DefaultTextWidth
	}
	for i, line := range lines {
		if i >= len(results) || results[i] == nil {
			continue
		}
		v := textview.New(line)
		for _, tok := range results[i].Tokens {
			start, err := v.UTF16ToUTF8(tok.StartIndex)
			if err != nil {
				return err
			}
			end, err := v.UTF16ToUTF8(tok.EndIndex)
			if err != nil {
				return err
			}
			pos := fmt.Sprintf("%d:%d-%d", i+1, tok.StartIndex, tok.EndIndex)
			text := fitWidth(quoteText(line[start:end]), textWidth)
			if _, err := fmt.Fprintf(w, "%-12s %s  %s\n", pos, text, strings.Join(tok.Scopes, " ")); err != nil {
				return err
			}
		}
	}
	return nil
}

// quoteText makes whitespace visible.
func quoteText(s string) string {
	r := strings.NewReplacer("\t", `\t`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}

// fitWidth pads or truncates s to exactly width display columns.
func fitWidth(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}
