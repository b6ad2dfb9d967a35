package theme

import (
	"fmt"
	"strings"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ColorMap interns normalised colours to small integer ids. Id 0 is
// reserved for "no colour".
type ColorMap struct {
	mu     sync.RWMutex
	ids    map[string]int
	colors []string
}

// NewColorMap returns an empty map.
func NewColorMap() *ColorMap {
	return &ColorMap{
		ids:    make(map[string]int),
		colors: []string{""},
	}
}

// ID returns the id of color, assigning one on first use. Invalid colours
// get 0.
func (m *ColorMap) ID(color string) int {
	norm, err := NormalizeColor(color)
	if err != nil {
		return 0
	}

	m.mu.RLock()
	id, ok := m.ids[norm]
	m.mu.RUnlock()
	if ok {
		return id
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[norm]; ok {
		return id
	}
	id = len(m.colors)
	m.ids[norm] = id
	m.colors = append(m.colors, norm)
	return id
}

// Color returns the colour for id, or "" when unknown.
func (m *ColorMap) Color(id int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id <= 0 || id >= len(m.colors) {
		return ""
	}
	return m.colors[id]
}

// Colors returns all colours in id order, starting at id 1.
func (m *ColorMap) Colors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.colors)-1)
	copy(out, m.colors[1:])
	return out
}

// NormalizeColor converts #rgb, #rgba, #rrggbb and #rrggbbaa to upper case
// #RRGGBB or #RRGGBBAA. A fully opaque alpha is dropped.
func NormalizeColor(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return "", fmt.Errorf("color %q: missing #", s)
	}
	hex := s[1:]
	alpha := ""
	switch len(hex) {
	case 3, 6:
	case 4:
		alpha = strings.Repeat(hex[3:], 2)
		hex = hex[:3]
	case 8:
		alpha = hex[6:]
		hex = hex[:6]
	default:
		return "", fmt.Errorf("color %q: invalid length", s)
	}
	for _, c := range hex + alpha {
		if !isHexDigit(c) {
			return "", fmt.Errorf("color %q: invalid digit %q", s, c)
		}
	}

	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return "", fmt.Errorf("color %q: %w", s, err)
	}
	out := strings.ToUpper(c.Clamped().Hex())
	alpha = strings.ToUpper(alpha)
	if alpha != "" && alpha != "FF" {
		out += alpha
	}
	return out, nil
}

func isHexDigit(c rune) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
