package grammar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/internal/tracing"
	"github.com/zjrosen/tmlight/onig"
	"github.com/zjrosen/tmlight/textview"
)

// ErrForeignState is returned when a state from another grammar is passed
// to TokenizeLine.
var ErrForeignState = errors.New("state stack does not belong to this grammar")

// TokenizeResult is the outcome of tokenizing one line.
type TokenizeResult struct {
	// Tokens tile the line from 0 to its UTF-16 length.
	Tokens []Token
	// State is passed to the next line.
	State *StateStack
	// StoppedEarly is set when the time budget ran out. The remainder of
	// the line is one token in the scopes active at that point.
	StoppedEarly bool
}

// TokenizeLine tokenizes text, a single line without its line terminator,
// continuing from prev. A nil prev starts a document. A budget of zero
// means no limit beyond ctx.
//
// When the budget is exceeded or ctx is done, the partial result is
// returned together with an error wrapping ErrTimeout.
func (g *Grammar) TokenizeLine(ctx context.Context, text string, prev *StateStack, budget time.Duration) (*TokenizeResult, error) {
	ctx, span := g.tracer.Start(ctx, tracing.SpanTokenizeLine,
		trace.WithAttributes(
			attribute.String(tracing.AttrGrammarScope, g.scopeName),
			attribute.String(tracing.AttrGrammarID, g.id.String()),
			attribute.Int(tracing.AttrLineBytes, len(text)),
			attribute.Int(tracing.AttrStateDepth, prev.Depth()),
		))
	defer span.End()

	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	isFirstLine := false
	stack := prev
	if prev == nil {
		isFirstLine = true
		scopes := (*ScopeStack)(nil).pushPath(g.scopeName, g.names)
		stack = (*StateStack)(nil).push(g.rootID, -1, -1, false, resolvedPattern{}, scopes, scopes)
	} else {
		if !g.owns(prev) {
			span.SetStatus(codes.Error, ErrForeignState.Error())
			return nil, ErrForeignState
		}
		stack = prev.resetPositions()
	}

	line := text + "\n"
	t := &tokenizer{
		g:       g,
		ctx:     ctx,
		tokens:  &lineTokens{},
		started: time.Now(),
	}
	view := textview.New(line)
	stack, stoppedEarly, err := t.tokenizeString(view, line, isFirstLine, 0, stack, true)
	if err != nil && !errors.Is(err, ErrTimeout) {
		tracing.Fail(span, err)
		return nil, err
	}

	tokens, convErr := t.tokens.result(view, len(text), stack)
	if convErr != nil {
		tracing.Fail(span, convErr)
		return nil, fmt.Errorf("converting token offsets: %w", convErr)
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrTokenCount, len(tokens)),
		attribute.Bool(tracing.AttrStoppedEarly, stoppedEarly),
	)

	res := &TokenizeResult{Tokens: tokens, State: stack, StoppedEarly: stoppedEarly}
	if stoppedEarly {
		if err == nil {
			err = ErrTimeout
		}
		log.Warn(log.CatTokenizer, "line tokenization stopped early",
			"scope", g.scopeName,
			"bytes", len(text),
			"elapsed", time.Since(t.started).String())
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	return res, nil
}

// owns reports whether every frame of s refers to a rule of this grammar.
func (g *Grammar) owns(s *StateStack) bool {
	for el := s; el != nil; el = el.parent {
		if el.ruleID <= 0 || int(el.ruleID) >= len(g.rules) || g.rules[el.ruleID] == nil {
			return false
		}
	}
	return true
}

type tokenizer struct {
	g       *Grammar
	ctx     context.Context
	tokens  *lineTokens
	started time.Time
}

// done reports whether the budget or ctx has run out.
func (t *tokenizer) done() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// tokenizeString scans line from linePos to its end, producing tokens. It
// returns the resulting stack and whether it stopped early.
func (t *tokenizer) tokenizeString(v *textview.View, line string, isFirstLine bool, linePos int, stack *StateStack, checkWhile bool) (*StateStack, bool, error) {
	lineLen := len(line)
	anchorPos := -1

	if checkWhile {
		var err error
		stack, linePos, anchorPos, isFirstLine, err = t.checkWhileConditions(v, line, isFirstLine, linePos, stack)
		if err != nil {
			return t.stopEarly(stack, lineLen, err)
		}
	}

	for {
		if t.done() {
			return t.stopEarly(stack, lineLen, fmt.Errorf("%w: %w", ErrTimeout, context.Cause(t.ctx)))
		}

		m, err := t.matchRuleOrInjections(v, isFirstLine, linePos, stack, anchorPos)
		if err != nil {
			if errors.Is(err, onig.ErrMatchTimeout) {
				return t.stopEarly(stack, lineLen, fmt.Errorf("%w: %w", ErrTimeout, err))
			}
			return stack, false, err
		}
		if m == nil {
			// a search that ran past the deadline and found nothing still
			// overran the budget
			if t.done() {
				return t.stopEarly(stack, lineLen, fmt.Errorf("%w: %w", ErrTimeout, context.Cause(t.ctx)))
			}
			t.tokens.produce(stack, lineLen)
			return stack, false, nil
		}

		caps := m.captures
		whole := caps[0]
		hasAdvanced := whole.End > linePos
		forced := false

		if m.ruleID == EndRuleID {
			beforeEnd := stack
			popped := t.g.rule(stack.ruleID).(*BeginEndRule)
			t.tokens.produce(stack, whole.Start)
			stack = stack.withContentNameScopes(stack.nameScopes)
			if err := t.handleCaptures(line, isFirstLine, stack, popped.endCaptures, caps); err != nil {
				return t.stopEarly(stack, lineLen, err)
			}
			t.tokens.produce(stack, whole.End)

			exited := stack
			stack = stack.pop()
			anchorPos = exited.anchorPos
			if !hasAdvanced && exited.enterPos == linePos {
				log.Debug(log.CatTokenizer, "pop without progress, forcing one code point",
					"scope", t.g.scopeName, "rule", int(exited.ruleID), "pos", linePos)
				stack = beforeEnd
				forced = true
			}
		} else {
			rule := t.g.rule(m.ruleID)
			t.tokens.produce(stack, whole.Start)
			beforePush := stack
			nameScopes := stack.contentNameScopes.pushPath(rule.Name(line, caps), t.g.names)
			stack = stack.push(m.ruleID, linePos, anchorPos, whole.End == lineLen, resolvedPattern{}, nameScopes, nameScopes)

			switch r := rule.(type) {
			case *BeginEndRule:
				if err := t.handleCaptures(line, isFirstLine, stack, r.beginCaptures, caps); err != nil {
					return t.stopEarly(stack, lineLen, err)
				}
				t.tokens.produce(stack, whole.End)
				anchorPos = whole.End
				stack = stack.withContentNameScopes(nameScopes.pushPath(r.ContentName(line, caps), t.g.names))
				if r.endHasBackReferences {
					stack = stack.withEndRule(r.endWithResolvedBackReferences(line, caps))
				}
				if !hasAdvanced && beforePush.hasSameRuleAs(stack) {
					log.Debug(log.CatTokenizer, "push of same rule without progress, forcing one code point",
						"scope", t.g.scopeName, "rule", int(m.ruleID), "pos", linePos)
					stack = stack.pop()
					forced = true
				}

			case *BeginWhileRule:
				if err := t.handleCaptures(line, isFirstLine, stack, r.beginCaptures, caps); err != nil {
					return t.stopEarly(stack, lineLen, err)
				}
				t.tokens.produce(stack, whole.End)
				anchorPos = whole.End
				stack = stack.withContentNameScopes(nameScopes.pushPath(r.ContentName(line, caps), t.g.names))
				if r.whileHasBackReferences {
					stack = stack.withEndRule(r.whileWithResolvedBackReferences(line, caps))
				}
				if !hasAdvanced && beforePush.hasSameRuleAs(stack) {
					log.Debug(log.CatTokenizer, "push of same rule without progress, forcing one code point",
						"scope", t.g.scopeName, "rule", int(m.ruleID), "pos", linePos)
					stack = stack.pop()
					forced = true
				}

			case *MatchRule:
				if err := t.handleCaptures(line, isFirstLine, stack, r.captures, caps); err != nil {
					return t.stopEarly(stack, lineLen, err)
				}
				t.tokens.produce(stack, whole.End)
				stack = stack.pop()
				if !hasAdvanced {
					log.Debug(log.CatTokenizer, "empty match, forcing one code point",
						"scope", t.g.scopeName, "rule", int(m.ruleID), "pos", linePos)
					forced = true
				}

			default:
				return stack, false, fmt.Errorf("rule %d of %s cannot be entered", m.ruleID, t.g.scopeName)
			}
		}

		if forced {
			if linePos >= lineLen {
				t.tokens.produce(stack, lineLen)
				return stack, false, nil
			}
			next := v.NextBoundary(linePos)
			t.tokens.produce(stack, next)
			linePos = next
			isFirstLine = false
			continue
		}

		if whole.End > linePos {
			linePos = whole.End
			isFirstLine = false
		}
	}
}

// stopEarly closes the line with the current scopes so the tokens still
// tile it.
func (t *tokenizer) stopEarly(stack *StateStack, lineLen int, err error) (*StateStack, bool, error) {
	t.tokens.produce(stack, lineLen)
	if errors.Is(err, ErrTimeout) {
		return stack, true, err
	}
	return stack, false, err
}

// checkWhileConditions runs the while patterns of every begin/while frame,
// outermost first, at the start of the line. The first failing frame is
// popped together with everything above it.
func (t *tokenizer) checkWhileConditions(v *textview.View, line string, isFirstLine bool, linePos int, stack *StateStack) (*StateStack, int, int, bool, error) {
	anchorPos := -1
	if stack.beginRuleCapturedEOL {
		anchorPos = 0
	}

	type whileFrame struct {
		rule  *BeginWhileRule
		stack *StateStack
	}
	var frames []whileFrame
	for node := stack; node != nil; node = node.pop() {
		if r, ok := t.g.rule(node.ruleID).(*BeginWhileRule); ok {
			frames = append(frames, whileFrame{rule: r, stack: node})
		}
	}

	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		compiled := f.rule.compileWhile(t.g, f.stack.endRule, isFirstLine, linePos == anchorPos)
		m, err := compiled.Scanner.FindNextMatch(t.ctx, v, linePos)
		if err != nil {
			if errors.Is(err, onig.ErrMatchTimeout) {
				err = fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return stack, linePos, anchorPos, isFirstLine, err
		}
		if m == nil || compiled.Rules[m.Index] != WhileRuleID {
			stack = f.stack.pop()
			break
		}

		whole := m.Captures[0]
		t.tokens.produce(f.stack, whole.Start)
		if err := t.handleCaptures(line, isFirstLine, f.stack, f.rule.whileCaptures, m.Captures); err != nil {
			return stack, linePos, anchorPos, isFirstLine, err
		}
		t.tokens.produce(f.stack, whole.End)
		anchorPos = whole.End
		if whole.End > linePos {
			linePos = whole.End
			isFirstLine = false
		}
	}
	return stack, linePos, anchorPos, isFirstLine, nil
}

type ruleMatch struct {
	captures []onig.CaptureIndex
	ruleID   RuleID
}

func (t *tokenizer) matchRule(v *textview.View, isFirstLine bool, linePos int, stack *StateStack, anchorPos int) (*ruleMatch, error) {
	compiled := t.g.rule(stack.ruleID).compile(t.g, stack.endRule, isFirstLine, linePos == anchorPos)
	m, err := compiled.Scanner.FindNextMatch(t.ctx, v, linePos)
	if err != nil || m == nil {
		return nil, err
	}
	return &ruleMatch{captures: m.Captures, ruleID: compiled.Rules[m.Index]}, nil
}

// matchRuleOrInjections picks between the frame's own match and the best
// injection match. The earlier start wins. At the same start an injection
// declared with "L:" wins.
func (t *tokenizer) matchRuleOrInjections(v *textview.View, isFirstLine bool, linePos int, stack *StateStack, anchorPos int) (*ruleMatch, error) {
	own, err := t.matchRule(v, isFirstLine, linePos, stack, anchorPos)
	if err != nil {
		return nil, err
	}
	if len(t.g.injections) == 0 {
		return own, nil
	}

	inj, err := t.g.matchInjections(t.ctx, v, isFirstLine, linePos, stack, anchorPos)
	if err != nil {
		return nil, err
	}
	if inj == nil {
		return own, nil
	}
	injected := &ruleMatch{captures: inj.captures, ruleID: inj.ruleID}
	if own == nil {
		return injected, nil
	}

	ownStart := own.captures[0].Start
	injStart := inj.captures[0].Start
	if injStart < ownStart || (inj.priorityMatch && injStart == ownStart) {
		return injected, nil
	}
	return own, nil
}

type localScope struct {
	scopes *ScopeStack
	endPos int
}

// handleCaptures produces the tokens inside a match, nesting capture scopes
// by span and retokenizing captures that carry their own patterns.
func (t *tokenizer) handleCaptures(line string, isFirstLine bool, stack *StateStack, captures []*CaptureRule, caps []onig.CaptureIndex) error {
	if len(captures) == 0 {
		return nil
	}

	n := min(len(captures), len(caps))
	maxEnd := caps[0].End
	var local []localScope

	for i := 0; i < n; i++ {
		rule := captures[i]
		if rule == nil {
			continue
		}
		c := caps[i]
		if c.Length() == 0 {
			continue
		}
		if c.Start > maxEnd {
			break
		}

		for len(local) > 0 && local[len(local)-1].endPos <= c.Start {
			top := local[len(local)-1]
			t.tokens.produceFromScopes(top.scopes, top.endPos)
			local = local[:len(local)-1]
		}
		if len(local) > 0 {
			t.tokens.produceFromScopes(local[len(local)-1].scopes, c.Start)
		} else {
			t.tokens.produce(stack, c.Start)
		}

		if rule.retokenizeWith != 0 {
			nameScopes := stack.contentNameScopes.pushPath(rule.Name(line, caps), t.g.names)
			contentScopes := nameScopes.pushPath(rule.ContentName(line, caps), t.g.names)
			nested := stack.push(rule.retokenizeWith, c.Start, -1, false, resolvedPattern{}, nameScopes, contentScopes)
			sub := line[:c.End]
			if _, _, err := t.tokenizeString(textview.New(sub), sub, isFirstLine && c.Start == 0, c.Start, nested, false); err != nil {
				return err
			}
			continue
		}

		name := rule.Name(line, caps)
		if name == "" {
			continue
		}
		base := stack.contentNameScopes
		if len(local) > 0 {
			base = local[len(local)-1].scopes
		}
		local = append(local, localScope{scopes: base.pushPath(name, t.g.names), endPos: c.End})
	}

	for len(local) > 0 {
		top := local[len(local)-1]
		t.tokens.produceFromScopes(top.scopes, top.endPos)
		local = local[:len(local)-1]
	}
	return nil
}
