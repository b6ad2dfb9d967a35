package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"

	"github.com/zjrosen/tmlight/theme"
)

// ParseProfile maps a config name to a termenv profile. "auto" and ""
// return ok=false so the renderer keeps what it detected.
func ParseProfile(name string) (termenv.Profile, bool) {
	switch strings.ToLower(name) {
	case "truecolor":
		return termenv.TrueColor, true
	case "ansi256":
		return termenv.ANSI256, true
	case "ansi":
		return termenv.ANSI, true
	case "none", "ascii":
		return termenv.Ascii, true
	}
	return termenv.Ascii, false
}

// styler converts resolved theme styles to lipgloss styles, memoised per
// distinct theme.Style.
type styler struct {
	renderer        *lipgloss.Renderer
	defaults        theme.Style
	paintBackground bool

	mu    sync.Mutex
	cache map[theme.Style]lipgloss.Style
}

func newStyler(r *lipgloss.Renderer, defaults theme.Style, paintBackground bool) *styler {
	return &styler{
		renderer:        r,
		defaults:        defaults,
		paintBackground: paintBackground,
		cache:           make(map[theme.Style]lipgloss.Style),
	}
}

func (s *styler) style(ts theme.Style) lipgloss.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.cache[ts]; ok {
		return st
	}

	bg := ts.Background
	if bg == "" {
		bg = s.defaults.Background
	}
	st := s.renderer.NewStyle().TabWidth(lipgloss.NoTabConversion)
	if fg := blend(ts.Foreground, bg); fg != "" {
		st = st.Foreground(lipgloss.Color(fg))
	}
	// The terminal's own background stands in for the theme default.
	if s.paintBackground || (ts.Background != "" && ts.Background != s.defaults.Background) {
		if b := blend(ts.Background, s.defaults.Background); b != "" {
			st = st.Background(lipgloss.Color(b))
		}
	}
	if ts.FontStyle.Has(theme.Bold) {
		st = st.Bold(true)
	}
	if ts.FontStyle.Has(theme.Italic) {
		st = st.Italic(true)
	}
	if ts.FontStyle.Has(theme.Underline) {
		st = st.Underline(true)
	}
	if ts.FontStyle.Has(theme.Strikethrough) {
		st = st.Strikethrough(true)
	}
	s.cache[ts] = st
	return st
}

// blend flattens a #RRGGBBAA colour onto under, since terminals have no
// alpha. #RRGGBB passes through.
func blend(c, under string) string {
	if len(c) != 9 {
		return c
	}
	top, err := colorful.Hex(c[:7])
	if err != nil {
		return ""
	}
	var alpha uint8
	for _, ch := range c[7:] {
		alpha <<= 4
		alpha |= hexNibble(ch)
	}
	base, err := colorful.Hex(under)
	if err != nil || len(under) != 7 {
		return c[:7]
	}
	return base.BlendRgb(top, float64(alpha)/255).Clamped().Hex()
}

func hexNibble(ch rune) uint8 {
	switch {
	case ch >= '0' && ch <= '9':
		return uint8(ch - '0')
	case ch >= 'a' && ch <= 'f':
		return uint8(ch-'a') + 10
	case ch >= 'A' && ch <= 'F':
		return uint8(ch-'A') + 10
	}
	return 0
}
