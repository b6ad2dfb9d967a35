package grammar

import (
	"context"
	"sort"

	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/onig"
	"github.com/zjrosen/tmlight/selector"
	"github.com/zjrosen/tmlight/textview"
)

// injection is one selector alternative bound to the rule it injects.
type injection struct {
	source   string
	expr     selector.Expr
	priority int
	ruleID   RuleID
}

// collectInjections gathers the grammar's own injections and those of the
// injection grammars targeting it, sorted by priority.
func (g *Grammar) collectInjections(scopes []string) []injection {
	var out []injection
	add := func(source string, ruleID RuleID) {
		sel := selector.Compile(source)
		for _, alt := range sel.Alternatives() {
			out = append(out, injection{
				source:   source,
				expr:     alt.Expr,
				priority: alt.Priority,
				ruleID:   ruleID,
			})
		}
	}

	keys := make([]string, 0, len(g.root.raw.Injections))
	for k := range g.root.raw.Injections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, source := range keys {
		desc := g.root.raw.Injections[source]
		if desc == nil {
			continue
		}
		add(source, g.ruleID(desc, g.root.repo, g.root, "injections."+source))
	}

	seen := make(map[string]bool, len(scopes))
	for _, scope := range scopes {
		if seen[scope] || scope == g.scopeName {
			continue
		}
		seen[scope] = true
		ext := g.externalGrammar(scope)
		if ext == nil {
			continue
		}
		if ext.raw.InjectionSelector == "" {
			log.Warn(log.CatGrammar, "injection grammar has no injectionSelector", "scope", scope, "target", g.scopeName)
			continue
		}
		add(ext.raw.InjectionSelector, g.ruleID(ext.self(), ext.repo, ext, "$self"))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].priority < out[j].priority
	})
	return out
}

type injectionMatch struct {
	priorityMatch bool
	captures      []onig.CaptureIndex
	ruleID        RuleID
}

// matchInjections returns the earliest match among the injections that
// apply to the current content scopes, or nil.
func (g *Grammar) matchInjections(ctx context.Context, v *textview.View, isFirstLine bool, linePos int, stack *StateStack, anchorPos int) (*injectionMatch, error) {
	if len(g.injections) == 0 {
		return nil, nil
	}
	scopes := stack.contentNameScopes.Names()

	var best *injectionMatch
	bestStart := -1
	for _, inj := range g.injections {
		if !inj.expr.Matches(scopes) {
			continue
		}
		compiled := g.rule(inj.ruleID).compile(g, resolvedPattern{}, isFirstLine, linePos == anchorPos)
		m, err := compiled.Scanner.FindNextMatch(ctx, v, linePos)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		start := m.Captures[0].Start
		if bestStart != -1 && start >= bestStart {
			continue
		}
		bestStart = start
		best = &injectionMatch{
			priorityMatch: inj.priority == -1,
			captures:      m.Captures,
			ruleID:        compiled.Rules[m.Index],
		}
		if start == linePos {
			break
		}
	}
	return best, nil
}
