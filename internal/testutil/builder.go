// Package testutil builds grammars and themes for tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/theme"
)

// GrammarBuilder accumulates rules for a grammar.
type GrammarBuilder struct {
	t   *testing.T
	raw *grammar.RawGrammar
}

// NewGrammar starts a grammar with the given scope name.
func NewGrammar(t *testing.T, scopeName string) *GrammarBuilder {
	t.Helper()
	return &GrammarBuilder{t: t, raw: &grammar.RawGrammar{ScopeName: scopeName}}
}

// WithFileTypes sets the extensions the grammar claims.
func (b *GrammarBuilder) WithFileTypes(types ...string) *GrammarBuilder {
	b.raw.FileTypes = append(b.raw.FileTypes, types...)
	return b
}

// WithFirstLineMatch sets firstLineMatch.
func (b *GrammarBuilder) WithFirstLineMatch(pattern string) *GrammarBuilder {
	b.raw.FirstLineMatch = pattern
	return b
}

// WithPattern appends top-level rules.
func (b *GrammarBuilder) WithPattern(rules ...*grammar.RawRule) *GrammarBuilder {
	b.raw.Patterns = append(b.raw.Patterns, rules...)
	return b
}

// WithInclude appends a top-level include.
func (b *GrammarBuilder) WithInclude(ref string) *GrammarBuilder {
	return b.WithPattern(&grammar.RawRule{Include: ref})
}

// WithRepository adds a named repository rule.
func (b *GrammarBuilder) WithRepository(name string, rule *grammar.RawRule) *GrammarBuilder {
	if b.raw.Repository == nil {
		b.raw.Repository = make(map[string]*grammar.RawRule)
	}
	b.raw.Repository[name] = rule
	return b
}

// WithInjection adds an injection keyed by selector.
func (b *GrammarBuilder) WithInjection(selector string, rule *grammar.RawRule) *GrammarBuilder {
	if b.raw.Injections == nil {
		b.raw.Injections = make(map[string]*grammar.RawRule)
	}
	b.raw.Injections[selector] = rule
	return b
}

// WithInjectionSelector marks the grammar as an injection grammar.
func (b *GrammarBuilder) WithInjectionSelector(selector string) *GrammarBuilder {
	b.raw.InjectionSelector = selector
	return b
}

// Raw returns the accumulated grammar.
func (b *GrammarBuilder) Raw() *grammar.RawGrammar {
	return b.raw
}

// Build loads the grammar into a fresh registry and fails the test on error.
func (b *GrammarBuilder) Build() *grammar.Grammar {
	b.t.Helper()
	reg := grammar.NewRegistry(grammar.RegistryOptions{})
	b.t.Cleanup(reg.Close)
	g, err := reg.LoadGrammar(b.raw)
	require.NoError(b.t, err)
	return g
}

// ThemeBuilder accumulates theme rules.
type ThemeBuilder struct {
	t   *testing.T
	raw *theme.RawTheme
}

// NewTheme starts a theme with default foreground and background.
func NewTheme(t *testing.T, name, fg, bg string) *ThemeBuilder {
	t.Helper()
	return &ThemeBuilder{t: t, raw: &theme.RawTheme{
		Name:   name,
		Colors: map[string]string{"editor.foreground": fg, "editor.background": bg},
	}}
}

// StyleOption configures a theme rule's settings.
type StyleOption func(*theme.RawStyle)

// FontStyle sets the font style words, e.g. "bold italic".
func FontStyle(words string) StyleOption {
	return func(s *theme.RawStyle) { s.FontStyle = &words }
}

// Background sets the rule background.
func Background(c string) StyleOption {
	return func(s *theme.RawStyle) { s.Background = c }
}

// WithRule adds a rule for a comma separated selector list.
func (b *ThemeBuilder) WithRule(scope, fg string, opts ...StyleOption) *ThemeBuilder {
	setting := theme.RawSetting{Settings: theme.RawStyle{Foreground: fg}}
	if scope != "" {
		setting.Scope = theme.ScopeList{scope}
	}
	for _, opt := range opts {
		opt(&setting.Settings)
	}
	b.raw.TokenColors = append(b.raw.TokenColors, setting)
	return b
}

// Raw returns the accumulated theme.
func (b *ThemeBuilder) Raw() *theme.RawTheme {
	return b.raw
}

// Build loads the theme and fails the test on error.
func (b *ThemeBuilder) Build() *theme.Theme {
	b.t.Helper()
	th, err := theme.Load(b.raw)
	require.NoError(b.t, err)
	return th
}
