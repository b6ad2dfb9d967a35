package selector

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSelector_Match(t *testing.T) {
	tests := []struct {
		selector string
		scopes   []string
		want     bool
	}{
		{"source.js", []string{"source.js"}, true},
		{"source.js", []string{"source.jsx"}, false},
		{"source", []string{"source.js"}, true},
		{"- foo", []string{"bar"}, true},
		{"- foo", []string{"foo.bar"}, false},
		{"foo", []string{"bar"}, false},
		{"source string", []string{"source.js", "meta.x", "string.quoted"}, true},
		{"string source", []string{"source.js", "string.quoted"}, false},
		{"source -comment", []string{"source.js", "comment.line"}, false},
		{"source -comment", []string{"source.js", "string"}, true},
		{"a, b", []string{"b"}, true},
		{"a | b", []string{"b"}, true},
		{"source (string | comment)", []string{"source.c", "comment.block"}, true},
		{"source (string, comment)", []string{"source.c", "keyword"}, false},
		{"text.html - (source | string)", []string{"text.html.basic", "source.js"}, false},
		{"text.html - (source | string)", []string{"text.html.basic", "meta.tag"}, true},
		{"L:source.js -comment", []string{"source.js"}, true},
		{"", []string{"source"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			s, err := Parse(tt.selector)
			require.NoError(t, err)
			require.Equal(t, tt.want, s.Matches(tt.scopes))
		})
	}
}

func TestSelector_Priority(t *testing.T) {
	tests := []struct {
		selector string
		scopes   []string
		matched  bool
		priority int
	}{
		{"L:source", []string{"source.js"}, true, -1},
		{"R:source", []string{"source.js"}, true, 1},
		{"source", []string{"source.js"}, true, 0},
		{"L:source, R:source.js", []string{"source.js"}, true, 1},
		{"L:source, source.js", []string{"source.js"}, true, 0},
		{"L:source, R:text", []string{"source.js"}, true, -1},
		{"R:text", []string{"source.js"}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			matched, priority := Compile(tt.selector).Match(tt.scopes)
			require.Equal(t, tt.matched, matched)
			require.Equal(t, tt.priority, priority)
		})
	}
}

func TestSelector_MalformedNeverMatches(t *testing.T) {
	for _, src := range []string{
		"source,",
		"source |",
		"-",
		"(source",
		"source)",
		"()",
		"L:",
		"source > string",
		",source",
		"a,,b",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)

			s := Compile(src)
			require.Error(t, s.Err())
			require.False(t, s.Matches([]string{"source", "string", "a", "b"}))
		})
	}
}

func TestMatchesName(t *testing.T) {
	require.True(t, MatchesName([]string{"a", "b"}, []string{"a", "x", "b.c"}))
	require.False(t, MatchesName([]string{"a", "a"}, []string{"a"}))
	require.True(t, MatchesName([]string{"a", "a"}, []string{"a.x", "a"}))
	require.True(t, MatchesName(nil, []string{"a"}))
}

func TestScopeMatches(t *testing.T) {
	require.True(t, ScopeMatches("string.quoted", "string"))
	require.True(t, ScopeMatches("string", "string"))
	require.False(t, ScopeMatches("strings", "string"))
	require.False(t, ScopeMatches("string", "string.quoted"))
}

func TestSelector_StringRoundTrip(t *testing.T) {
	s, err := Parse("source -(comment | string)")
	require.NoError(t, err)
	require.Len(t, s.Alternatives(), 1)
	require.Equal(t, "source -(comment | string)", s.Alternatives()[0].Expr.String())
}

func TestCompile_NeverPanics(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		src := rapid.StringMatching(`[a-zLR:.,|() \-]{0,24}`).Draw(rt, "selector")
		scopes := rapid.SliceOfN(rapid.StringMatching(`[a-c](\.[a-c]){0,2}`), 0, 4).Draw(rt, "scopes")
		s := Compile(src)
		matched, priority := s.Match(scopes)
		if !matched && priority != 0 {
			rt.Fatalf("priority %d without a match", priority)
		}
		if priority < -1 || priority > 1 {
			rt.Fatalf("priority %d out of range", priority)
		}
	})
}
