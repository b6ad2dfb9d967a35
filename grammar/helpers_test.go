package grammar

import (
	"context"
	"encoding/json"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"
)

const miniGrammar = `{
  "scopeName": "source.mini",
  "patterns": [
    {"include": "#comment"},
    {"include": "#string"},
    {"match": "\\b(if|else|return)\\b", "name": "keyword.control.mini"},
    {"match": "\\d+(\\.\\d+)?", "name": "constant.numeric.mini"},
    {"match": "(\\w+)\\s*(\\()", "captures": {
      "1": {"name": "entity.name.function.mini"},
      "2": {"name": "punctuation.paren.mini"}
    }},
    {"begin": "\\{", "end": "\\}", "name": "meta.block.mini", "patterns": [{"include": "$self"}]},
    {"match": "(?=z)", "name": "empty.lookahead.mini"}
  ],
  "repository": {
    "comment": {"patterns": [
      {"begin": "/\\*", "end": "\\*/", "name": "comment.block.mini"},
      {"match": "//.*$", "name": "comment.line.mini"}
    ]},
    "string": {
      "begin": "([\"'])", "end": "\\1", "name": "string.quoted.mini",
      "beginCaptures": {"0": {"name": "punctuation.definition.string.begin.mini"}},
      "endCaptures": {"0": {"name": "punctuation.definition.string.end.mini"}},
      "patterns": [{"match": "\\\\.", "name": "constant.character.escape.mini"}]
    }
  }
}`

func parseRaw(t testing.TB, src string) *RawGrammar {
	t.Helper()
	var raw RawGrammar
	require.NoError(t, json.Unmarshal([]byte(src), &raw))
	return &raw
}

func loadGrammar(t testing.TB, src string, opts ...func(*RegistryOptions)) *Grammar {
	t.Helper()
	var ro RegistryOptions
	for _, opt := range opts {
		opt(&ro)
	}
	g, err := NewRegistry(ro).LoadGrammar(parseRaw(t, src))
	require.NoError(t, err)
	return g
}

func withGrammars(raws ...*RawGrammar) func(*RegistryOptions) {
	return func(o *RegistryOptions) {
		byScope := make(map[string]*RawGrammar, len(raws))
		for _, r := range raws {
			byScope[r.ScopeName] = r
		}
		o.Lookup = func(scope string) (*RawGrammar, error) {
			return byScope[scope], nil
		}
	}
}

// tokenizeLines tokenizes lines in order, threading the state through.
func tokenizeLines(t testing.TB, g *Grammar, lines ...string) ([][]Token, *StateStack) {
	t.Helper()
	var state *StateStack
	out := make([][]Token, 0, len(lines))
	for _, line := range lines {
		res, err := g.TokenizeLine(context.Background(), line, state, 0)
		require.NoError(t, err)
		out = append(out, res.Tokens)
		state = res.State
	}
	return out, state
}

// scopesAt returns the scopes of the token covering UTF-16 offset off.
func scopesAt(tokens []Token, off int) []string {
	for _, tok := range tokens {
		if tok.StartIndex <= off && off < tok.EndIndex {
			return tok.Scopes
		}
	}
	return nil
}

// requireTiling checks tokens cover [0, utf16 length of line) without gaps.
func requireTiling(t require.TestingT, line string, tokens []Token) {
	want := len(utf16.Encode([]rune(line)))
	require.NotEmpty(t, tokens)
	require.Equal(t, 0, tokens[0].StartIndex)
	if want == 0 {
		require.Len(t, tokens, 1)
		require.Equal(t, 0, tokens[0].EndIndex)
		return
	}
	for i, tok := range tokens {
		require.Less(t, tok.StartIndex, tok.EndIndex, "token %d is empty", i)
		if i > 0 {
			require.Equal(t, tokens[i-1].EndIndex, tok.StartIndex, "gap before token %d", i)
		}
	}
	require.Equal(t, want, tokens[len(tokens)-1].EndIndex)
}
