package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/onig"
)

const jsonGrammar = `{
	"scopeName": "source.demo",
	"fileTypes": ["demo", "Demofile"],
	"firstLineMatch": "^#!.*\\bdemo\\b",
	"patterns": [{"include": "#kw"}],
	"repository": {
		"kw": {"match": "\\b(let)\\b", "captures": {"1": {"name": "keyword.demo"}}}
	}
}`

const yamlGrammar = `
scopeName: source.other
fileTypes: [other, demo.other]
patterns:
  - begin: '"'
    end: '"'
    name: string.quoted.other
    beginCaptures:
      0: {name: punctuation.definition.string.begin.other}
    applyEndPatternLast: 1
`

const injectionGrammar = `{
	"scopeName": "todo.injection",
	"injectionSelector": "L:comment",
	"patterns": [{"match": "TODO", "name": "keyword.todo"}]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"a.tmLanguage.json", FormatJSON, false},
		{"theme.JSON", FormatJSON, false},
		{"a.tmLanguage.yaml", FormatYAML, false},
		{"a.yml", FormatYAML, false},
		{"a.plist", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseGrammar_JSON(t *testing.T) {
	raw, err := ParseGrammar([]byte(jsonGrammar), FormatJSON)
	require.NoError(t, err)
	require.Equal(t, "source.demo", raw.ScopeName)
	require.Equal(t, []string{"demo", "Demofile"}, raw.FileTypes)
	require.Equal(t, "keyword.demo", raw.Repository["kw"].Captures["1"].Name)
}

func TestParseGrammar_BOM(t *testing.T) {
	raw, err := ParseGrammar(append([]byte("\xef\xbb\xbf"), jsonGrammar...), FormatJSON)
	require.NoError(t, err)
	require.Equal(t, "source.demo", raw.ScopeName)
}

func TestParseGrammar_YAML(t *testing.T) {
	raw, err := ParseGrammar([]byte(yamlGrammar), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, "source.other", raw.ScopeName)
	require.Len(t, raw.Patterns, 1)
	p := raw.Patterns[0]
	require.Equal(t, "string.quoted.other", p.Name)
	require.True(t, bool(p.ApplyEndPatternLast))
	require.Equal(t, "punctuation.definition.string.begin.other", p.BeginCaptures["0"].Name)
}

func TestParseGrammar_Errors(t *testing.T) {
	_, err := ParseGrammar([]byte(`{"patterns": []}`), FormatJSON)
	require.ErrorContains(t, err, "missing scopeName")

	_, err = ParseGrammar([]byte(`{`), FormatJSON)
	require.Error(t, err)

	_, err = ParseGrammar([]byte(`{}`), Format("toml"))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseTheme(t *testing.T) {
	data := `
name: Demo
colors:
  editor.foreground: "#cccccc"
tokenColors:
  - scope: comment, string
    settings: {foreground: "#888888", fontStyle: italic}
  - scope: [keyword]
    settings: {foreground: "#ff0000"}
`
	raw, err := ParseTheme([]byte(data), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, "Demo", raw.Name)
	require.Len(t, raw.TokenColors, 2)
	require.Equal(t, []string{"comment", "string"}, []string(raw.TokenColors[0].Scope))
	require.Equal(t, "italic", *raw.TokenColors[0].Settings.FontStyle)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	gpath := writeFile(t, dir, "demo.tmLanguage.json", jsonGrammar)
	tpath := writeFile(t, dir, "dark.json", `{"name": "dark", "include": "base.json"}`)
	writeFile(t, dir, "base.json", `{"name": "base", "settings": [{"settings": {"foreground": "#111111"}}]}`)

	raw, err := LoadGrammarFile(gpath)
	require.NoError(t, err)
	require.Equal(t, "source.demo", raw.ScopeName)

	th, err := LoadThemeFile(tpath)
	require.NoError(t, err)
	require.Equal(t, "base.json", th.Include)

	base, err := ThemeIncludeResolver(dir)(th.Include)
	require.NoError(t, err)
	require.Equal(t, "base", base.Name)

	_, err = LoadGrammarFile(filepath.Join(dir, "missing.tmLanguage.json"))
	require.Error(t, err)

	bad := writeFile(t, dir, "bad.tmLanguage.json", `{"name": "x"}`)
	_, err = LoadGrammarFile(bad)
	require.ErrorContains(t, err, bad)
}

func TestDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "demo.tmLanguage.json", jsonGrammar)
	writeFile(t, root, "nested/other.tmLanguage.yaml", yamlGrammar)
	writeFile(t, root, "todo.tmLanguage.json", injectionGrammar)
	writeFile(t, root, "broken.tmLanguage.json", `{`)
	writeFile(t, root, "README.md", "not a grammar")

	d, err := NewDir(root)
	require.NoError(t, err)
	require.Equal(t, []string{"source.demo", "source.other", "todo.injection"}, d.Scopes())
	require.Len(t, d.Paths(), 3)

	t.Run("lookup", func(t *testing.T) {
		raw, err := d.Lookup("source.other")
		require.NoError(t, err)
		require.Equal(t, "source.other", raw.ScopeName)

		raw, err = d.Lookup("source.unknown")
		require.NoError(t, err)
		require.Nil(t, raw)
	})

	t.Run("injections", func(t *testing.T) {
		require.Equal(t, []string{"todo.injection"}, d.Injections("source.demo"))
		require.Empty(t, d.Injections("todo.injection"))
	})

	t.Run("entries", func(t *testing.T) {
		entries := d.Entries()
		require.Len(t, entries, 3)
		require.Equal(t, "source.demo", entries[0].ScopeName)
		require.Empty(t, entries[0].InjectionSelector)
		require.Equal(t, "source.other", entries[1].ScopeName)
		require.Equal(t, "todo.injection", entries[2].ScopeName)
		require.NotEmpty(t, entries[2].InjectionSelector)
		for _, e := range entries {
			path, ok := d.PathFor(e.ScopeName)
			require.True(t, ok)
			require.Equal(t, path, e.Path)
		}
	})

	t.Run("scope for file", func(t *testing.T) {
		tests := []struct {
			name string
			want string
			ok   bool
		}{
			{"main.demo", "source.demo", true},
			{"/src/Demofile", "source.demo", true},
			{"x.demo.other", "source.other", true},
			{"x.other", "source.other", true},
			{"x.txt", "", false},
		}
		for _, tt := range tests {
			got, ok := d.ScopeForFile(tt.name)
			require.Equal(t, tt.ok, ok, tt.name)
			require.Equal(t, tt.want, got, tt.name)
		}
	})

	t.Run("scope for first line", func(t *testing.T) {
		engine := onig.NewEngine()
		got, ok := d.ScopeForFirstLine(engine, "#!/usr/bin/env demo")
		require.True(t, ok)
		require.Equal(t, "source.demo", got)

		_, ok = d.ScopeForFirstLine(engine, "plain text")
		require.False(t, ok)
	})

	t.Run("lookup rereads the file", func(t *testing.T) {
		path, ok := d.PathFor("source.demo")
		require.True(t, ok)
		writeFile(t, filepath.Dir(path), filepath.Base(path), `{"scopeName": "source.demo", "name": "Edited"}`)
		raw, err := d.Lookup("source.demo")
		require.NoError(t, err)
		require.Equal(t, "Edited", raw.Name)
	})
}

func TestDir_MissingRoot(t *testing.T) {
	_, err := NewDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestDir_FeedsRegistry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "demo.tmLanguage.json", jsonGrammar)
	d, err := NewDir(root)
	require.NoError(t, err)

	reg := grammar.NewRegistry(grammar.RegistryOptions{Lookup: d.Lookup, Injections: d.Injections})
	defer reg.Close()

	g, err := reg.GrammarForScope(t.Context(), "source.demo")
	require.NoError(t, err)
	res, err := g.TokenizeLine(t.Context(), "let x", nil, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"source.demo", "keyword.demo"}, res.Tokens[0].Scopes)
}
