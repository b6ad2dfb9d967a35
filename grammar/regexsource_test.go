package grammar

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tmlight/onig"
)

func TestRegexSource_AnchorVariants(t *testing.T) {
	src := newRegexSource(`\A\Gfoo\\G`, 1)
	require.True(t, src.hasAnchor)

	require.Equal(t, `\A\Gfoo\\G`, src.resolveAnchors(true, true))
	require.Equal(t, "\\A\\\uFFFFfoo\\\\G", src.resolveAnchors(true, false))
	require.Equal(t, "\\\uFFFF\\Gfoo\\\\G", src.resolveAnchors(false, true))
	require.Equal(t, "\\\uFFFF\\\uFFFFfoo\\\\G", src.resolveAnchors(false, false))
}

func TestRegexSource_NoAnchor(t *testing.T) {
	src := newRegexSource(`foo\\A`, 1)
	require.False(t, src.hasAnchor)
	require.Equal(t, `foo\\A`, src.resolveAnchors(false, false))
}

func TestRegexSource_EndOfStringRewrite(t *testing.T) {
	src := newRegexSource(`end\z`, 1)
	require.Equal(t, `end$(?!\n)(?<!\n)`, src.source)

	// An escaped backslash followed by z is not \z.
	require.Equal(t, `a\\z`, newRegexSource(`a\\z`, 1).source)
}

func TestRegexSource_ResolveBackReferences(t *testing.T) {
	tests := []struct {
		name string
		end  string
		line string
		caps []onig.CaptureIndex
		want string
	}{
		{"quote", `\1`, `"abc"`, []onig.CaptureIndex{{Start: 0, End: 1}, {Start: 0, End: 1}}, `"`},
		{"escaped specials", `\1\2`, `*+`, []onig.CaptureIndex{{Start: 0, End: 2}, {Start: 0, End: 1}, {Start: 1, End: 2}}, `\*\+`},
		{"unmatched group", `x\2`, `ab`, []onig.CaptureIndex{{Start: 0, End: 1}, {Start: 0, End: 1}, {Start: -1, End: -1}}, `x`},
		{"out of range group", `\7`, `ab`, []onig.CaptureIndex{{Start: 0, End: 1}}, ``},
		{"heredoc", `^\1$`, `<<EOT`, []onig.CaptureIndex{{Start: 0, End: 5}, {Start: 2, End: 5}}, `^EOT$`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newRegexSource(tt.end, EndRuleID)
			require.True(t, src.hasBackReferences)
			require.Equal(t, tt.want, src.resolveBackReferences(tt.line, tt.caps))
		})
	}
}

func TestReplaceCaptures(t *testing.T) {
	line := "Foo.bar .Baz"
	caps := []onig.CaptureIndex{{Start: 0, End: 12}, {Start: 0, End: 3}, {Start: 4, End: 7}, {Start: 8, End: 12}, {Start: -1, End: -1}}

	tests := []struct {
		name string
		want string
	}{
		{"entity.$1", "entity.Foo"},
		{"entity.${1:/downcase}", "entity.foo"},
		{"entity.${2:/upcase}", "entity.BAR"},
		{"meta.$3", "meta.Baz"},
		{"meta.$4.x", "meta..x"},
		{"meta.$9", "meta.$9"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, replaceCaptures(tt.name, line, caps))
		})
	}
	require.True(t, hasCaptures("a.$1"))
	require.False(t, hasCaptures("a.b"))
}

func TestEscapeRegexp(t *testing.T) {
	require.Equal(t, `a\.b\*c\ d`, escapeRegexp("a.b*c d"))
	require.Equal(t, `é`, escapeRegexp("é"))
}
