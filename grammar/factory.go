package grammar

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/zjrosen/tmlight/internal/log"
)

// grammarContext is a raw grammar as seen from the grammar being loaded:
// its repository plus the $self and $base entries.
type grammarContext struct {
	raw       *RawGrammar
	scopeName string
	repo      map[string]*RawRule
	// external grammars degrade on errors instead of failing the load
	external bool
}

func newGrammarContext(raw *RawGrammar, base *RawRule, external bool) *grammarContext {
	self := &RawRule{
		Name:       raw.ScopeName,
		Patterns:   raw.Patterns,
		Repository: nil,
	}
	if base == nil {
		base = self
	}
	repo := make(map[string]*RawRule, len(raw.Repository)+2)
	maps.Copy(repo, raw.Repository)
	repo["$self"] = self
	repo["$base"] = base
	return &grammarContext{
		raw:       raw,
		scopeName: raw.ScopeName,
		repo:      repo,
		external:  external,
	}
}

func (c *grammarContext) self() *RawRule {
	return c.repo["$self"]
}

func (c *grammarContext) base() *RawRule {
	return c.repo["$base"]
}

// includeKind classifies an include reference.
type includeKind int

const (
	includeBase includeKind = iota
	includeSelf
	includeRelative     // #name
	includeTopLevel     // scope.name
	includeTopLevelRule // scope.name#rule
)

type includeReference struct {
	kind      includeKind
	scopeName string
	ruleName  string
}

func parseInclude(include string) includeReference {
	switch {
	case include == "$base":
		return includeReference{kind: includeBase}
	case include == "$self":
		return includeReference{kind: includeSelf}
	case strings.HasPrefix(include, "#"):
		return includeReference{kind: includeRelative, ruleName: include[1:]}
	}
	if scope, rule, ok := strings.Cut(include, "#"); ok {
		return includeReference{kind: includeTopLevelRule, scopeName: scope, ruleName: rule}
	}
	return includeReference{kind: includeTopLevel, scopeName: include}
}

// registerRule reserves the next id before building the rule so recursive
// references to it resolve.
func (g *Grammar) registerRule(build func(id RuleID) Rule) RuleID {
	id := RuleID(len(g.rules))
	g.rules = append(g.rules, nil)
	// build may grow g.rules, so index after it returns.
	r := build(id)
	g.rules[id] = r
	return id
}

// ruleID returns the id of desc, building its rule on first encounter.
func (g *Grammar) ruleID(desc *RawRule, repo map[string]*RawRule, gc *grammarContext, where string) RuleID {
	if id, ok := g.ruleIDs[desc]; ok {
		return id
	}

	return g.registerRule(func(id RuleID) Rule {
		g.ruleIDs[desc] = id

		if desc.Match != "" {
			r := &MatchRule{
				ruleBase: newRuleBase(id, desc.Name, ""),
				match:    newRegexSource(desc.Match, id),
				captures: g.compileCaptures(desc.Captures, repo, gc, where+".captures"),
			}
			g.validate(r.match, gc, where+".match")
			return r
		}

		if desc.Repository != nil {
			merged := make(map[string]*RawRule, len(repo)+len(desc.Repository))
			maps.Copy(merged, repo)
			maps.Copy(merged, desc.Repository)
			repo = merged
		}

		if desc.Begin == "" {
			patterns := desc.Patterns
			if patterns == nil && desc.Include != "" {
				patterns = []*RawRule{{Include: desc.Include}}
			}
			ids, missing := g.compilePatterns(patterns, repo, gc, where)
			return &IncludeOnlyRule{
				ruleBase:           newRuleBase(id, desc.Name, desc.ContentName),
				patterns:           ids,
				hasMissingPatterns: missing,
			}
		}

		beginCaptures := desc.BeginCaptures
		if beginCaptures == nil {
			beginCaptures = desc.Captures
		}

		if desc.While != "" {
			whileCaptures := desc.WhileCaptures
			if whileCaptures == nil {
				whileCaptures = desc.Captures
			}
			ids, missing := g.compilePatterns(desc.Patterns, repo, gc, where)
			r := &BeginWhileRule{
				ruleBase:           newRuleBase(id, desc.Name, desc.ContentName),
				begin:              newRegexSource(desc.Begin, id),
				beginCaptures:      g.compileCaptures(beginCaptures, repo, gc, where+".beginCaptures"),
				while:              newRegexSource(desc.While, WhileRuleID),
				whileCaptures:      g.compileCaptures(whileCaptures, repo, gc, where+".whileCaptures"),
				patterns:           ids,
				hasMissingPatterns: missing,
			}
			r.whileHasBackReferences = r.while.hasBackReferences
			g.validate(r.begin, gc, where+".begin")
			g.validate(r.while, gc, where+".while")
			return r
		}

		endCaptures := desc.EndCaptures
		if endCaptures == nil {
			endCaptures = desc.Captures
		}
		end := desc.End
		if end == "" {
			log.Warn(log.CatRule, "begin rule without end never closes", "scope", gc.scopeName, "rule", where)
			end = "\uFFFF"
		}
		ids, missing := g.compilePatterns(desc.Patterns, repo, gc, where)
		r := &BeginEndRule{
			ruleBase:            newRuleBase(id, desc.Name, desc.ContentName),
			begin:               newRegexSource(desc.Begin, id),
			beginCaptures:       g.compileCaptures(beginCaptures, repo, gc, where+".beginCaptures"),
			end:                 newRegexSource(end, EndRuleID),
			endCaptures:         g.compileCaptures(endCaptures, repo, gc, where+".endCaptures"),
			applyEndPatternLast: bool(desc.ApplyEndPatternLast),
			patterns:            ids,
			hasMissingPatterns:  missing,
		}
		r.endHasBackReferences = r.end.hasBackReferences
		g.validate(r.begin, gc, where+".begin")
		g.validate(r.end, gc, where+".end")
		return r
	})
}

// compileCaptures builds a slice indexed by group number; groups without a
// rule are nil.
func (g *Grammar) compileCaptures(captures RawCaptures, repo map[string]*RawRule, gc *grammarContext, where string) []*CaptureRule {
	if len(captures) == 0 {
		return nil
	}

	keys := make([]int, 0, len(captures))
	byIndex := make(map[int]*RawRule, len(captures))
	for k, desc := range captures {
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 || desc == nil {
			continue
		}
		keys = append(keys, n)
		byIndex[n] = desc
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Ints(keys)

	out := make([]*CaptureRule, keys[len(keys)-1]+1)
	for _, n := range keys {
		desc := byIndex[n]
		retokenize := RuleID(0)
		if len(desc.Patterns) > 0 {
			retokenize = g.ruleID(desc, repo, gc, fmt.Sprintf("%s[%d]", where, n))
		}
		id := g.registerRule(func(id RuleID) Rule {
			return &CaptureRule{
				ruleBase:       newRuleBase(id, desc.Name, desc.ContentName),
				retokenizeWith: retokenize,
			}
		})
		out[n] = g.rules[id].(*CaptureRule)
	}
	return out
}

// compilePatterns resolves a patterns list to rule ids. Unresolvable
// includes and empty containers are left out and reported as missing.
func (g *Grammar) compilePatterns(patterns []*RawRule, repo map[string]*RawRule, gc *grammarContext, where string) ([]RuleID, bool) {
	var ids []RuleID
	for i, pattern := range patterns {
		if pattern == nil {
			continue
		}
		loc := fmt.Sprintf("%s.patterns[%d]", where, i)
		id := RuleID(-1)

		if pattern.Include != "" {
			id = g.resolveInclude(pattern.Include, repo, gc, loc)
		} else {
			id = g.ruleID(pattern, repo, gc, loc)
		}
		if id == -1 {
			continue
		}

		if isEmptyContainer(g.rules[id]) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, len(patterns) != len(ids)
}

func isEmptyContainer(r Rule) bool {
	switch r := r.(type) {
	case *IncludeOnlyRule:
		return r.hasMissingPatterns && len(r.patterns) == 0
	case *BeginEndRule:
		return r.hasMissingPatterns && len(r.patterns) == 0
	case *BeginWhileRule:
		return r.hasMissingPatterns && len(r.patterns) == 0
	}
	return false
}

func (g *Grammar) resolveInclude(include string, repo map[string]*RawRule, gc *grammarContext, loc string) RuleID {
	ref := parseInclude(include)
	switch ref.kind {
	case includeBase, includeSelf:
		return g.ruleID(repo[include], repo, gc, include)

	case includeRelative:
		target, ok := repo[ref.ruleName]
		if !ok || target == nil {
			g.reportMissing(gc, loc, include)
			return -1
		}
		return g.ruleID(target, repo, gc, "repository."+ref.ruleName)

	case includeTopLevel, includeTopLevelRule:
		ext := g.externalGrammar(ref.scopeName)
		if ext == nil {
			log.Warn(log.CatGrammar, "external grammar not found, include dropped",
				"scope", gc.scopeName, "include", include)
			return -1
		}
		if ref.kind == includeTopLevelRule {
			target, ok := ext.repo[ref.ruleName]
			if !ok || target == nil {
				log.Warn(log.CatGrammar, "external rule not found, include dropped",
					"scope", gc.scopeName, "include", include)
				return -1
			}
			return g.ruleID(target, ext.repo, ext, "repository."+ref.ruleName)
		}
		return g.ruleID(ext.self(), ext.repo, ext, "$self")
	}
	return -1
}

func (g *Grammar) reportMissing(gc *grammarContext, loc, include string) {
	if gc.external {
		log.Warn(log.CatGrammar, "include target not found, include dropped",
			"scope", gc.scopeName, "include", include)
		return
	}
	g.loadErrs = append(g.loadErrs, &GrammarError{
		ScopeName: gc.scopeName,
		Location:  loc,
		Err:       fmt.Errorf("%w: %s", ErrMissingInclude, include),
	})
}

// validate compiles the most permissive variant of a pattern so syntax
// errors surface at load time. Back-references are resolved to empty text.
func (g *Grammar) validate(src *regexSource, gc *grammarContext, loc string) {
	pattern := src.resolveAnchors(true, true)
	if src.hasBackReferences {
		pattern = backReferencePattern.ReplaceAllString(pattern, "")
	}
	if _, err := g.engine.Compile(pattern); err != nil {
		if gc.external {
			log.ErrorErr(log.CatRule, "invalid pattern in external grammar", err, "scope", gc.scopeName, "rule", loc)
			return
		}
		g.loadErrs = append(g.loadErrs, &GrammarError{ScopeName: gc.scopeName, Location: loc, Err: err})
	}
}

// externalGrammar returns the context of another grammar by scope name.
func (g *Grammar) externalGrammar(scopeName string) *grammarContext {
	if scopeName == g.root.scopeName {
		return g.root
	}
	if gc, ok := g.contexts[scopeName]; ok {
		return gc
	}
	raw, err := g.lookup(scopeName)
	if err != nil || raw == nil {
		if err != nil {
			log.ErrorErr(log.CatGrammar, "lookup failed", err, "scope", scopeName)
		}
		g.contexts[scopeName] = nil
		return nil
	}
	gc := newGrammarContext(raw, g.root.base(), true)
	g.contexts[scopeName] = gc
	return gc
}
