package grammar

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zjrosen/tmlight/onig"
)

// RuleID identifies a rule within one Grammar. Real rules start at 1.
type RuleID int

const (
	// EndRuleID marks the end alternative of a begin/end rule set.
	EndRuleID RuleID = -1
	// WhileRuleID marks the while alternative of a begin/while rule set.
	WhileRuleID RuleID = -2
)

// Rule is a node of the rule graph.
type Rule interface {
	ID() RuleID
	// Name is the scope name, with $N references expanded from caps.
	Name(line string, caps []onig.CaptureIndex) string
	ContentName(line string, caps []onig.CaptureIndex) string

	collectPatterns(g *Grammar, out *[]*regexSource, visited map[RuleID]bool)
	compile(g *Grammar, end resolvedPattern, allowA, allowG bool) *CompiledRule
}

// CompiledRule is a scanner over a rule's alternatives and the rule each
// alternative belongs to.
type CompiledRule struct {
	Scanner *onig.Scanner
	Rules   []RuleID
}

type ruleBase struct {
	id                     RuleID
	name                   string
	contentName            string
	nameIsCapturing        bool
	contentNameIsCapturing bool
}

func newRuleBase(id RuleID, name, contentName string) ruleBase {
	return ruleBase{
		id:                     id,
		name:                   name,
		contentName:            contentName,
		nameIsCapturing:        hasCaptures(name),
		contentNameIsCapturing: hasCaptures(contentName),
	}
}

func (r *ruleBase) ID() RuleID {
	return r.id
}

func (r *ruleBase) Name(line string, caps []onig.CaptureIndex) string {
	if !r.nameIsCapturing || caps == nil {
		return r.name
	}
	return replaceCaptures(r.name, line, caps)
}

func (r *ruleBase) ContentName(line string, caps []onig.CaptureIndex) string {
	if !r.contentNameIsCapturing || caps == nil {
		return r.contentName
	}
	return replaceCaptures(r.contentName, line, caps)
}

// CaptureRule scopes one capture group, optionally retokenizing it.
type CaptureRule struct {
	ruleBase
	retokenizeWith RuleID
}

func (r *CaptureRule) collectPatterns(*Grammar, *[]*regexSource, map[RuleID]bool) {}

// compile returns an empty set; capture rules are never on the stack.
func (r *CaptureRule) compile(g *Grammar, _ resolvedPattern, _, _ bool) *CompiledRule {
	return &CompiledRule{Scanner: g.engine.NewScanner(nil)}
}

// MatchRule is a single pattern with captures.
type MatchRule struct {
	ruleBase
	match    *regexSource
	captures []*CaptureRule

	sources lazySources
}

func (r *MatchRule) collectPatterns(_ *Grammar, out *[]*regexSource, _ map[RuleID]bool) {
	*out = append(*out, r.match)
}

func (r *MatchRule) compile(g *Grammar, _ resolvedPattern, allowA, allowG bool) *CompiledRule {
	return r.sources.get(func() []*regexSource {
		var out []*regexSource
		r.collectPatterns(g, &out, nil)
		return out
	}).compile(g, allowA, allowG)
}

// IncludeOnlyRule groups child patterns, such as a repository entry or the
// grammar root.
type IncludeOnlyRule struct {
	ruleBase
	patterns           []RuleID
	hasMissingPatterns bool

	sources lazySources
}

func (r *IncludeOnlyRule) collectPatterns(g *Grammar, out *[]*regexSource, visited map[RuleID]bool) {
	if visited[r.id] {
		return
	}
	visited[r.id] = true
	for _, id := range r.patterns {
		g.rule(id).collectPatterns(g, out, visited)
	}
}

func (r *IncludeOnlyRule) compile(g *Grammar, _ resolvedPattern, allowA, allowG bool) *CompiledRule {
	return r.sources.get(func() []*regexSource {
		return collectChildren(g, r.patterns)
	}).compile(g, allowA, allowG)
}

// BeginEndRule is a region delimited by begin and end patterns.
type BeginEndRule struct {
	ruleBase
	begin                *regexSource
	beginCaptures        []*CaptureRule
	end                  *regexSource
	endHasBackReferences bool
	endCaptures          []*CaptureRule
	applyEndPatternLast  bool
	patterns             []RuleID
	hasMissingPatterns   bool

	sources lazySources
}

func (r *BeginEndRule) collectPatterns(_ *Grammar, out *[]*regexSource, _ map[RuleID]bool) {
	*out = append(*out, r.begin)
}

// endWithResolvedBackReferences returns the end pattern with \N replaced by
// the text captured at begin time.
func (r *BeginEndRule) endWithResolvedBackReferences(line string, caps []onig.CaptureIndex) string {
	return r.end.resolveBackReferences(line, caps)
}

func (r *BeginEndRule) compile(g *Grammar, end resolvedPattern, allowA, allowG bool) *CompiledRule {
	list := r.sources.get(func() []*regexSource {
		children := collectChildren(g, r.patterns)
		if r.applyEndPatternLast {
			return append(children, r.end)
		}
		return append([]*regexSource{r.end}, children...)
	})
	if !r.endHasBackReferences || !end.ok {
		return list.compile(g, allowA, allowG)
	}
	endText := end.text

	endIndex := 0
	if r.applyEndPatternLast {
		endIndex = len(list.items) - 1
	}
	return g.compileDynamic(r.id, endText, allowA, allowG, func() []*regexSource {
		items := make([]*regexSource, len(list.items))
		copy(items, list.items)
		items[endIndex] = newRegexSource(endText, EndRuleID)
		return items
	})
}

// BeginWhileRule is a region that continues on each line while its while
// pattern matches at the line start.
type BeginWhileRule struct {
	ruleBase
	begin                  *regexSource
	beginCaptures          []*CaptureRule
	while                  *regexSource
	whileHasBackReferences bool
	whileCaptures          []*CaptureRule
	patterns               []RuleID
	hasMissingPatterns     bool

	sources      lazySources
	whileSources lazySources
}

func (r *BeginWhileRule) collectPatterns(_ *Grammar, out *[]*regexSource, _ map[RuleID]bool) {
	*out = append(*out, r.begin)
}

func (r *BeginWhileRule) whileWithResolvedBackReferences(line string, caps []onig.CaptureIndex) string {
	return r.while.resolveBackReferences(line, caps)
}

func (r *BeginWhileRule) compile(g *Grammar, _ resolvedPattern, allowA, allowG bool) *CompiledRule {
	return r.sources.get(func() []*regexSource {
		return collectChildren(g, r.patterns)
	}).compile(g, allowA, allowG)
}

// compileWhile compiles the single while alternative.
func (r *BeginWhileRule) compileWhile(g *Grammar, while resolvedPattern, allowA, allowG bool) *CompiledRule {
	list := r.whileSources.get(func() []*regexSource {
		return []*regexSource{r.while}
	})
	if !r.whileHasBackReferences || !while.ok {
		return list.compile(g, allowA, allowG)
	}
	whileText := while.text
	return g.compileDynamic(r.id, "while:"+whileText, allowA, allowG, func() []*regexSource {
		return []*regexSource{newRegexSource(whileText, WhileRuleID)}
	})
}

func collectChildren(g *Grammar, patterns []RuleID) []*regexSource {
	var out []*regexSource
	visited := make(map[RuleID]bool)
	for _, id := range patterns {
		g.rule(id).collectPatterns(g, &out, visited)
	}
	return out
}

// lazySources builds a rule's alternative list once.
type lazySources struct {
	once sync.Once
	list *sourceList
}

func (l *lazySources) get(build func() []*regexSource) *sourceList {
	l.once.Do(func() {
		l.list = newSourceList(build())
	})
	return l.list
}

// sourceList caches one compiled set per anchor combination.
type sourceList struct {
	items     []*regexSource
	hasAnchor bool
	slots     [4]atomic.Pointer[CompiledRule]
}

func newSourceList(items []*regexSource) *sourceList {
	l := &sourceList{items: items}
	for _, it := range items {
		if it.hasAnchor {
			l.hasAnchor = true
			break
		}
	}
	return l
}

func (l *sourceList) compile(g *Grammar, allowA, allowG bool) *CompiledRule {
	slot := 0
	if l.hasAnchor {
		if allowA {
			slot |= 2
		}
		if allowG {
			slot |= 1
		}
	}
	if c := l.slots[slot].Load(); c != nil {
		return c
	}
	c := buildCompiledRule(g, l.items, allowA, allowG)
	if l.slots[slot].CompareAndSwap(nil, c) {
		return c
	}
	return l.slots[slot].Load()
}

func buildCompiledRule(g *Grammar, items []*regexSource, allowA, allowG bool) *CompiledRule {
	sources := make([]string, len(items))
	rules := make([]RuleID, len(items))
	for i, it := range items {
		sources[i] = it.resolveAnchors(allowA, allowG)
		rules[i] = it.ruleID
	}
	return &CompiledRule{
		Scanner: g.engine.NewScanner(sources),
		Rules:   rules,
	}
}

// compileDynamic caches compiled sets whose end or while text depends on
// begin-time captures, keyed by rule, resolved text and anchors.
func (g *Grammar) compileDynamic(id RuleID, text string, allowA, allowG bool, items func() []*regexSource) *CompiledRule {
	ctx := context.Background()
	key := fmt.Sprintf("%d\x00%t\x00%t\x00%s", id, allowA, allowG, text)
	if c, ok := g.dynamic.GetWithRefresh(ctx, key, g.dynamicTTL); ok {
		return c
	}
	c := buildCompiledRule(g, items(), allowA, allowG)
	g.dynamic.Set(ctx, key, c, g.dynamicTTL)
	return c
}
