package theme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathMatchesParents(t *testing.T) {
	tests := []struct {
		name    string
		path    []string
		parents []string
		want    bool
	}{
		{"no parents", nil, nil, true},
		{"direct ancestor", []string{"meta.block", "source.js"}, []string{"meta"}, true},
		{"distant ancestor", []string{"meta.block", "source.js"}, []string{"source.js"}, true},
		{"order matters", []string{"meta.block", "source.js"}, []string{"source", "meta"}, false},
		{"in order", []string{"meta.block", "source.js"}, []string{"meta", "source"}, true},
		{"child must be direct", []string{"meta.block", "source.js"}, []string{">", "source.js"}, false},
		{"child direct", []string{"source.js"}, []string{">", "source.js"}, true},
		{"dangling child", []string{"source.js"}, []string{">"}, false},
		{"missing", []string{"source.js"}, []string{"text"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, pathMatchesParents(tt.path, tt.parents))
		})
	}
}

func TestCmpBySpecificity(t *testing.T) {
	deep := &trieRule{scopeDepth: 3}
	shallow := &trieRule{scopeDepth: 1}
	withParent := &trieRule{scopeDepth: 1, parentScopes: []string{"source.js"}}
	withShortParent := &trieRule{scopeDepth: 1, parentScopes: []string{"meta"}}

	require.Negative(t, cmpBySpecificity(deep, shallow))
	require.Negative(t, cmpBySpecificity(withParent, shallow))
	require.Negative(t, cmpBySpecificity(withParent, withShortParent))
	require.Zero(t, cmpBySpecificity(shallow, shallow))
}

func TestTrie_InsertClonesParentRules(t *testing.T) {
	root := newTrieNode(&trieRule{fontStyle: NotSet}, nil)
	root.insert(0, "string", nil, NotSet, 1, 0)
	root.insert(0, "string.quoted", nil, Bold, 0, 0)
	root.insert(0, "string", []string{"source"}, NotSet, 2, 0)

	quoted := root.match("string.quoted.double")
	require.Equal(t, 2, quoted[0].scopeDepth)
	require.Equal(t, Bold, quoted[0].fontStyle)
	require.Equal(t, 1, quoted[0].foreground)

	str := root.match("string.other")
	require.Len(t, str, 2)
	require.Equal(t, []string{"source"}, str[0].parentScopes)
	require.Equal(t, 2, str[0].foreground)
}
