package theme

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func loadJSON(t *testing.T, src string, opts ...Option) *Theme {
	t.Helper()
	var raw RawTheme
	require.NoError(t, json.Unmarshal([]byte(src), &raw))
	th, err := Load(&raw, opts...)
	require.NoError(t, err)
	return th
}

const sampleTheme = `{
	"name": "sample",
	"settings": [
		{"settings": {"foreground": "#cccccc", "background": "#1e1e1e"}},
		{"scope": "string", "settings": {"foreground": "#aa0000"}},
		{"scope": "string.quoted", "settings": {"foreground": "#00bb00", "fontStyle": "italic"}},
		{"scope": "comment, punctuation.definition.comment", "settings": {"foreground": "#777", "fontStyle": "italic"}},
		{"scope": ["keyword", "storage.type"], "settings": {"foreground": "#0000ff", "fontStyle": "bold"}},
		{"scope": "meta.embedded string", "settings": {"background": "#101010"}},
		{"scope": "source.js > string", "settings": {"foreground": "#123456"}},
		{"scope": "markup.plain", "settings": {"fontStyle": ""}},
		{"scope": "invalid", "settings": {"foreground": "red"}}
	]
}`

func TestMatch_Specificity(t *testing.T) {
	th := loadJSON(t, sampleTheme)

	tests := []struct {
		name   string
		scopes []string
		want   Style
	}{
		{
			name:   "more specific rule wins",
			scopes: []string{"string.quoted.double"},
			want:   Style{Foreground: "#00BB00", Background: "#1E1E1E", FontStyle: Italic},
		},
		{
			name:   "falls back to shorter prefix",
			scopes: []string{"string.unquoted"},
			want:   Style{Foreground: "#AA0000", Background: "#1E1E1E", FontStyle: None},
		},
		{
			name:   "prefix is dotted, not substring",
			scopes: []string{"stringy"},
			want:   Style{Foreground: "#CCCCCC", Background: "#1E1E1E", FontStyle: None},
		},
		{
			name:   "no match uses defaults",
			scopes: []string{"source.go", "variable"},
			want:   Style{Foreground: "#CCCCCC", Background: "#1E1E1E", FontStyle: None},
		},
		{
			name:   "comma separated scopes",
			scopes: []string{"source.go", "punctuation.definition.comment.go"},
			want:   Style{Foreground: "#777777", Background: "#1E1E1E", FontStyle: Italic},
		},
		{
			name:   "list scopes",
			scopes: []string{"storage.type.go"},
			want:   Style{Foreground: "#0000FF", Background: "#1E1E1E", FontStyle: Bold},
		},
		{
			name:   "descendant selector",
			scopes: []string{"source.md", "meta.embedded.block", "source.css", "string.unquoted"},
			want:   Style{Foreground: "#AA0000", Background: "#101010", FontStyle: None},
		},
		{
			name:   "deeper scope beats descendant selector",
			scopes: []string{"source.md", "meta.embedded.block", "string.quoted"},
			want:   Style{Foreground: "#00BB00", Background: "#1E1E1E", FontStyle: Italic},
		},
		{
			name:   "child selector requires direct parent",
			scopes: []string{"source.js", "string.template"},
			want:   Style{Foreground: "#123456", Background: "#1E1E1E", FontStyle: None},
		},
		{
			name:   "child selector with intermediate scope",
			scopes: []string{"source.js", "meta.group", "string.template"},
			want:   Style{Foreground: "#AA0000", Background: "#1E1E1E", FontStyle: None},
		},
		{
			name:   "inner channels override outer",
			scopes: []string{"comment.line", "keyword.todo"},
			want:   Style{Foreground: "#0000FF", Background: "#1E1E1E", FontStyle: Bold},
		},
		{
			name:   "unset channels inherit from outer",
			scopes: []string{"comment.block", "markup.plain"},
			want:   Style{Foreground: "#777777", Background: "#1E1E1E", FontStyle: None},
		},
		{
			name:   "invalid colour ignored",
			scopes: []string{"invalid.illegal"},
			want:   Style{Foreground: "#CCCCCC", Background: "#1E1E1E", FontStyle: None},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, th.Match(tt.scopes))
		})
	}
}

func TestMatch_LaterRuleOverridesEqualSpecificity(t *testing.T) {
	th := loadJSON(t, `{"settings": [
		{"scope": "keyword", "settings": {"foreground": "#111111", "fontStyle": "bold"}},
		{"scope": "keyword", "settings": {"foreground": "#222222"}}
	]}`)

	got := th.Match([]string{"keyword.control"})
	require.Equal(t, "#222222", got.Foreground)
	require.Equal(t, Bold, got.FontStyle)
}

func TestMatch_Deterministic(t *testing.T) {
	th := loadJSON(t, sampleTheme)
	scopes := []string{"source.js", "meta.embedded", "string.quoted.single"}

	first := th.Match(scopes)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, th.Match(scopes))
	}
}

func TestMatch_EmptyChain(t *testing.T) {
	th := loadJSON(t, sampleTheme)
	require.Equal(t, th.Defaults(), th.Match(nil))
}

func TestDefaults(t *testing.T) {
	th := loadJSON(t, `{"settings": []}`)
	require.Equal(t, Style{Foreground: "#000000", Background: "#FFFFFF", FontStyle: None}, th.Defaults())

	vs := loadJSON(t, `{"colors": {"editor.foreground": "#D4D4D4", "editor.background": "#1e1e1e"}, "tokenColors": []}`)
	require.Equal(t, Style{Foreground: "#D4D4D4", Background: "#1E1E1E", FontStyle: None}, vs.Defaults())
}

func TestMatchScope(t *testing.T) {
	th := loadJSON(t, sampleTheme)

	got, ok := th.MatchScope("string.template", []string{"source.js"})
	require.True(t, ok)
	require.Equal(t, "#123456", got.Foreground)

	_, ok = th.MatchScope("variable.other", nil)
	require.False(t, ok)
}

func TestLoad_Include(t *testing.T) {
	base := &RawTheme{
		Name: "base",
		Settings: []RawSetting{
			{Scope: ScopeList{"comment"}, Settings: RawStyle{Foreground: "#111111"}},
			{Scope: ScopeList{"string"}, Settings: RawStyle{Foreground: "#222222"}},
		},
	}
	child := &RawTheme{
		Name:    "child",
		Include: "base",
		Settings: []RawSetting{
			{Scope: ScopeList{"string"}, Settings: RawStyle{Foreground: "#333333"}},
		},
	}
	resolve := func(name string) (*RawTheme, error) {
		if name == "base" {
			return base, nil
		}
		return nil, nil
	}

	th, err := Load(child, WithIncludeResolver(resolve))
	require.NoError(t, err)
	require.Equal(t, "#111111", th.Match([]string{"comment"}).Foreground)
	require.Equal(t, "#333333", th.Match([]string{"string"}).Foreground)

	_, err = Load(child)
	require.ErrorIs(t, err, ErrUnresolvedInclude)

	_, err = Load(&RawTheme{Include: "missing"}, WithIncludeResolver(resolve))
	require.ErrorIs(t, err, ErrUnresolvedInclude)
}

func TestLoad_IncludeCycle(t *testing.T) {
	themes := map[string]*RawTheme{
		"a": {Name: "a", Include: "b"},
		"b": {Name: "b", Include: "a"},
	}
	_, err := Load(themes["a"], WithIncludeResolver(func(name string) (*RawTheme, error) {
		return themes[name], nil
	}))
	require.ErrorIs(t, err, ErrIncludeCycle)
}

func TestScopeList_Decode(t *testing.T) {
	var fromJSON []RawSetting
	require.NoError(t, json.Unmarshal([]byte(`[
		{"scope": ", a, b ,", "settings": {}},
		{"scope": ["c", "d e"], "settings": {}},
		{"settings": {}}
	]`), &fromJSON))
	require.Equal(t, ScopeList{"a", "b"}, fromJSON[0].Scope)
	require.Equal(t, ScopeList{"c", "d e"}, fromJSON[1].Scope)
	require.Empty(t, fromJSON[2].Scope)

	var fromYAML []RawSetting
	require.NoError(t, yaml.Unmarshal([]byte(`
- scope: a, b
  settings: {foreground: "#fff"}
- scope: [c, d]
  settings: {fontStyle: bold}
`), &fromYAML))
	require.Equal(t, ScopeList{"a", "b"}, fromYAML[0].Scope)
	require.Equal(t, ScopeList{"c", "d"}, fromYAML[1].Scope)
	require.Equal(t, "bold", *fromYAML[1].Settings.FontStyle)

	var bad RawSetting
	require.Error(t, json.Unmarshal([]byte(`{"scope": 5}`), &bad))
}

func TestSharedColorMap(t *testing.T) {
	cm := NewColorMap()
	a := loadJSON(t, `{"settings": [{"scope": "x", "settings": {"foreground": "#abcdef"}}]}`, WithColorMap(cm))
	b := loadJSON(t, `{"settings": [{"scope": "y", "settings": {"foreground": "#ABCDEF"}}]}`, WithColorMap(cm))

	require.Same(t, a.ColorMap(), b.ColorMap())
	require.Equal(t, a.Match([]string{"x"}).Foreground, b.Match([]string{"y"}).Foreground)
	require.Contains(t, cm.Colors(), "#ABCDEF")
}
