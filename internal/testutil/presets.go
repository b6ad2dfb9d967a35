package testutil

import (
	"testing"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/theme"
)

// DemoGrammar is a small C-like language: line and block comments, double
// quoted strings with escapes, keywords, numbers and function calls.
//
//	source.demo
//	  comment.line.double-slash.demo   // ...
//	  comment.block.demo               /* ... */ (multi-line)
//	  string.quoted.double.demo        "..." with constant.character.escape.demo
//	  keyword.control.demo             if else return while
//	  constant.numeric.demo            42 3.14
//	  entity.name.function.demo        name(
func DemoGrammar(t *testing.T) *GrammarBuilder {
	t.Helper()
	return NewGrammar(t, "source.demo").
		WithFileTypes("demo").
		WithFirstLineMatch(`^#!.*\bdemo\b`).
		WithInclude("#comments").
		WithInclude("#strings").
		WithPattern(
			Match(`\b(if|else|return|while)\b`, Name("keyword.control.demo")),
			Match(`\b\d+(\.\d+)?\b`, Name("constant.numeric.demo")),
			Match(`\b([a-z_]\w*)\s*(?=\()`, Captures("entity.name.function.demo")),
		).
		WithRepository("comments", &grammar.RawRule{Patterns: []*grammar.RawRule{
			Match(`//.*$`, Name("comment.line.double-slash.demo")),
			BeginEnd(`/\*`, `\*/`, Name("comment.block.demo")),
		}}).
		WithRepository("strings", BeginEnd(`"`, `"`,
			Name("string.quoted.double.demo"),
			Nested(Match(`\\.`, Name("constant.character.escape.demo"))),
		))
}

// DemoTheme colours the scopes DemoGrammar produces.
func DemoTheme(t *testing.T) *ThemeBuilder {
	t.Helper()
	return NewTheme(t, "demo", "#D4D4D4", "#1E1E1E").
		WithRule("comment", "#6A9955", FontStyle("italic")).
		WithRule("string", "#CE9178").
		WithRule("constant.character.escape", "#D7BA7D").
		WithRule("keyword", "#C586C0", FontStyle("bold")).
		WithRule("constant.numeric", "#B5CEA8").
		WithRule("entity.name.function", "#DCDCAA")
}

// Style is shorthand for building an expected theme.Style.
func Style(fg, bg string, fs theme.FontStyle) theme.Style {
	return theme.Style{Foreground: fg, Background: bg, FontStyle: fs}
}
