package grammar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopeStack_PushPath(t *testing.T) {
	in := newInterner()
	base := NewScopeStack("source.go")

	require.Same(t, base, base.pushPath("", in))

	s := base.pushPath("meta.block  string.quoted", in)
	require.Equal(t, []string{"source.go", "meta.block", "string.quoted"}, s.Names())
	require.Equal(t, "string.quoted", s.ScopeName())
	require.Equal(t, "meta.block", s.Parent().ScopeName())
	require.Equal(t, "source.go meta.block string.quoted", s.String())

	// The base is unchanged.
	require.Equal(t, []string{"source.go"}, base.Names())
}

func TestScopeStack_Equals(t *testing.T) {
	a := NewScopeStack("source.go", "string")
	b := NewScopeStack("source.go", "string")
	c := NewScopeStack("source.go", "comment")

	require.True(t, a.Equals(b))
	require.False(t, a.Equals(c))
	require.False(t, a.Equals(a.Parent()))
	require.True(t, (*ScopeStack)(nil).Equals(nil))
	require.Nil(t, (*ScopeStack)(nil).Names())
}

func TestInterner(t *testing.T) {
	in := newInterner()
	a := in.intern(string([]byte("keyword")))
	b := in.intern(string([]byte("keyword")))
	require.Equal(t, a, b)
	require.Equal(t, 1, in.size())
}

func TestStateStack_Equals(t *testing.T) {
	g := loadGrammar(t, miniGrammar)

	_, a := tokenizeLines(t, g, "{ 'x")
	_, b := tokenizeLines(t, g, "  {   'yy")
	_, c := tokenizeLines(t, g, `{ "x`)

	require.True(t, a.Equals(b), "positions are ignored")
	require.False(t, a.Equals(c), "resolved end patterns differ")
	require.False(t, a.Equals(a.pop()))
	require.True(t, (*StateStack)(nil).Equals(nil))
}

func TestStateStack_ResetPositions(t *testing.T) {
	g := loadGrammar(t, miniGrammar)

	res, err := g.TokenizeLine(context.Background(), "{ /* x", nil, 0)
	require.NoError(t, err)
	state := res.State

	reset := state.resetPositions()
	for el := reset; el != nil; el = el.parent {
		require.Equal(t, -1, el.enterPos)
		require.Equal(t, -1, el.anchorPos)
	}
	require.True(t, reset.Equals(state))
	require.Same(t, reset, reset.resetPositions())
}

func TestStateStack_String(t *testing.T) {
	require.Equal(t, "<initial>", (*StateStack)(nil).String())

	g := loadGrammar(t, miniGrammar)
	_, state := tokenizeLines(t, g, "{")
	require.Contains(t, state.String(), "meta.block.mini")
	require.Equal(t, []string{"source.mini", "meta.block.mini"}, state.Scopes())
}
