// Package render turns tokenized lines into terminal output: themed ANSI
// text for highlight and view, and a token table for tokenize.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/textview"
	"github.com/zjrosen/tmlight/theme"
)

// Options configures a Highlighter.
type Options struct {
	// ColorProfile is a config profile name; see ParseProfile.
	ColorProfile string
	LineNumbers  bool
	// TabWidth expands tabs to the next multiple of this many columns;
	// 0 leaves tabs alone.
	TabWidth int
	// PaintBackground also paints the theme's default background.
	PaintBackground bool
}

// Highlighter renders tokenized lines with a theme.
type Highlighter struct {
	theme    *theme.Theme
	renderer *lipgloss.Renderer
	styles   *styler
	opts     Options
	gutter   lipgloss.Style
}

// New creates a highlighter for output written to w.
func New(w io.Writer, th *theme.Theme, opts Options) *Highlighter {
	r := lipgloss.NewRenderer(w)
	if p, ok := ParseProfile(opts.ColorProfile); ok {
		r.SetColorProfile(p)
	}
	return &Highlighter{
		theme:    th,
		renderer: r,
		styles:   newStyler(r, th.Defaults(), opts.PaintBackground),
		opts:     opts,
		gutter:   r.NewStyle().Faint(true),
	}
}

// Theme returns the theme in use.
func (h *Highlighter) Theme() *theme.Theme {
	return h.theme
}

// Line renders one line. tokens carry UTF-16 offsets as produced by
// TokenizeLine; text outside every token is drawn in the default style.
func (h *Highlighter) Line(text string, tokens []grammar.Token) (string, error) {
	v := textview.New(text)
	var b strings.Builder
	col := 0
	last := 0
	for _, tok := range tokens {
		start, err := v.UTF16ToUTF8(tok.StartIndex)
		if err != nil {
			return "", fmt.Errorf("token start: %w", err)
		}
		end, err := v.UTF16ToUTF8(tok.EndIndex)
		if err != nil {
			return "", fmt.Errorf("token end: %w", err)
		}
		if start < last {
			start = last
		}
		if start > last {
			col = h.write(&b, h.styles.style(h.theme.Defaults()), text[last:start], col)
		}
		if end > start {
			col = h.write(&b, h.styles.style(h.theme.Match(tok.Scopes)), text[start:end], col)
			last = end
		}
	}
	if last < len(text) {
		h.write(&b, h.styles.style(h.theme.Defaults()), text[last:], col)
	}
	return b.String(), nil
}

// Document renders every line, joined with newlines. results[i] belongs
// to lines[i]; a nil result renders the line unstyled.
func (h *Highlighter) Document(lines []string, results []*grammar.TokenizeResult) (string, error) {
	width := len(strconv.Itoa(len(lines)))
	out := make([]string, len(lines))
	for i, line := range lines {
		var tokens []grammar.Token
		if i < len(results) && results[i] != nil {
			tokens = results[i].Tokens
		}
		rendered, err := h.Line(line, tokens)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}
		if h.opts.LineNumbers {
			rendered = h.gutter.Render(fmt.Sprintf("%*d ", width, i+1)) + rendered
		}
		out[i] = rendered
	}
	return strings.Join(out, "\n"), nil
}

// write renders seg in st with tabs expanded and returns the new column.
func (h *Highlighter) write(b *strings.Builder, st lipgloss.Style, seg string, col int) int {
	seg, col = h.expandTabs(seg, col)
	if seg == "" {
		return col
	}
	b.WriteString(st.Render(seg))
	return col
}

func (h *Highlighter) expandTabs(seg string, col int) (string, int) {
	if h.opts.TabWidth <= 0 || !strings.Contains(seg, "\t") {
		return seg, col + runewidth.StringWidth(seg)
	}
	var b strings.Builder
	for _, r := range seg {
		if r == '\t' {
			n := h.opts.TabWidth - col%h.opts.TabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return b.String(), col
}
