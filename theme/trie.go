package theme

import (
	"slices"
	"sort"
	"strings"
)

// trieRule is the style a trie node assigns, optionally restricted to
// scope paths containing parentScopes (innermost first, ">" for a direct
// parent).
type trieRule struct {
	scopeDepth   int
	parentScopes []string
	fontStyle    FontStyle
	foreground   int
	background   int
}

func (r *trieRule) clone() *trieRule {
	c := *r
	return &c
}

// acceptOverwrite applies a later rule's set channels.
func (r *trieRule) acceptOverwrite(scopeDepth int, fontStyle FontStyle, foreground, background int) {
	if r.scopeDepth <= scopeDepth {
		r.scopeDepth = scopeDepth
	}
	if fontStyle != NotSet {
		r.fontStyle = fontStyle
	}
	if foreground != 0 {
		r.foreground = foreground
	}
	if background != 0 {
		r.background = background
	}
}

// trieNode is one dotted segment of a scope name.
type trieNode struct {
	mainRule              *trieRule
	rulesWithParentScopes []*trieRule
	children              map[string]*trieNode
}

func newTrieNode(main *trieRule, withParents []*trieRule) *trieNode {
	return &trieNode{
		mainRule:              main,
		rulesWithParentScopes: withParents,
		children:              make(map[string]*trieNode),
	}
}

// match returns the candidate rules for scope, most specific first.
func (n *trieNode) match(scope string) []*trieRule {
	if scope != "" {
		head, tail, _ := strings.Cut(scope, ".")
		if child, ok := n.children[head]; ok {
			return child.match(tail)
		}
	}

	rules := make([]*trieRule, 0, len(n.rulesWithParentScopes)+1)
	rules = append(rules, n.mainRule)
	rules = append(rules, n.rulesWithParentScopes...)
	sort.SliceStable(rules, func(i, j int) bool {
		return cmpBySpecificity(rules[i], rules[j]) < 0
	})
	return rules
}

func (n *trieNode) insert(scopeDepth int, scope string, parentScopes []string, fontStyle FontStyle, foreground, background int) {
	if scope == "" {
		n.insertHere(scopeDepth, parentScopes, fontStyle, foreground, background)
		return
	}

	head, tail, _ := strings.Cut(scope, ".")
	child, ok := n.children[head]
	if !ok {
		withParents := make([]*trieRule, len(n.rulesWithParentScopes))
		for i, r := range n.rulesWithParentScopes {
			withParents[i] = r.clone()
		}
		child = newTrieNode(n.mainRule.clone(), withParents)
		n.children[head] = child
	}
	child.insert(scopeDepth+1, tail, parentScopes, fontStyle, foreground, background)
}

func (n *trieNode) insertHere(scopeDepth int, parentScopes []string, fontStyle FontStyle, foreground, background int) {
	if len(parentScopes) == 0 {
		n.mainRule.acceptOverwrite(scopeDepth, fontStyle, foreground, background)
		return
	}

	for _, r := range n.rulesWithParentScopes {
		if slices.Equal(r.parentScopes, parentScopes) {
			r.acceptOverwrite(scopeDepth, fontStyle, foreground, background)
			return
		}
	}

	// Unset channels inherit from the node's main rule.
	if fontStyle == NotSet {
		fontStyle = n.mainRule.fontStyle
	}
	if foreground == 0 {
		foreground = n.mainRule.foreground
	}
	if background == 0 {
		background = n.mainRule.background
	}
	n.rulesWithParentScopes = append(n.rulesWithParentScopes, &trieRule{
		scopeDepth:   scopeDepth,
		parentScopes: parentScopes,
		fontStyle:    fontStyle,
		foreground:   foreground,
		background:   background,
	})
}

// cmpBySpecificity orders deeper rules first, then rules whose parent
// scopes are longer.
func cmpBySpecificity(a, b *trieRule) int {
	if a.scopeDepth != b.scopeDepth {
		return b.scopeDepth - a.scopeDepth
	}
	ai, bi := 0, 0
	for {
		if ai < len(a.parentScopes) && a.parentScopes[ai] == ">" {
			ai++
		}
		if bi < len(b.parentScopes) && b.parentScopes[bi] == ">" {
			bi++
		}
		if ai >= len(a.parentScopes) || bi >= len(b.parentScopes) {
			break
		}
		if d := len(b.parentScopes[bi]) - len(a.parentScopes[ai]); d != 0 {
			return d
		}
		ai++
		bi++
	}
	return len(b.parentScopes) - len(a.parentScopes)
}

// pathMatchesParents reports whether the enclosing scopes (innermost
// first) satisfy parentScopes.
func pathMatchesParents(path []string, parentScopes []string) bool {
	p := 0
	for i := 0; i < len(parentScopes); i++ {
		pattern := parentScopes[i]
		mustMatch := false
		if pattern == ">" {
			if i == len(parentScopes)-1 {
				return false
			}
			i++
			pattern = parentScopes[i]
			mustMatch = true
		}
		for p < len(path) {
			if scopeMatches(path[p], pattern) {
				break
			}
			if mustMatch {
				return false
			}
			p++
		}
		if p >= len(path) {
			return false
		}
		p++
	}
	return true
}

// scopeMatches is dotted-prefix matching: "string" matches
// "string.quoted" but not "stringy".
func scopeMatches(scope, pattern string) bool {
	return scope == pattern ||
		(strings.HasPrefix(scope, pattern) && len(scope) > len(pattern) && scope[len(pattern)] == '.')
}
