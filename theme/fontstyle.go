package theme

import "strings"

// FontStyle is a bitset of font attributes. NotSet means the rule leaves
// the font style to enclosing scopes.
type FontStyle int

const (
	NotSet FontStyle = -1
	None   FontStyle = 0

	Italic        FontStyle = 1
	Bold          FontStyle = 2
	Underline     FontStyle = 4
	Strikethrough FontStyle = 8
)

var fontStyleNames = []struct {
	style FontStyle
	name  string
}{
	{Italic, "italic"},
	{Bold, "bold"},
	{Underline, "underline"},
	{Strikethrough, "strikethrough"},
}

// parseFontStyle reads space separated words. Unknown words are ignored and
// an empty string clears the style.
func parseFontStyle(s string) FontStyle {
	style := None
	for _, word := range strings.Fields(s) {
		for _, fs := range fontStyleNames {
			if word == fs.name {
				style |= fs.style
			}
		}
	}
	return style
}

// Has reports whether every bit of other is set.
func (f FontStyle) Has(other FontStyle) bool {
	return f != NotSet && f&other == other
}

func (f FontStyle) String() string {
	switch f {
	case NotSet:
		return "not-set"
	case None:
		return "none"
	}
	var words []string
	for _, fs := range fontStyleNames {
		if f&fs.style != 0 {
			words = append(words, fs.name)
		}
	}
	return strings.Join(words, " ")
}
