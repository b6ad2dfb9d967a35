package grammar

import (
	"fmt"
	"strings"
)

// StateStack is the tokenizer state carried from one line to the next.
// It is immutable; every transition returns a new frame sharing its parent.
// A nil *StateStack is the initial state.
type StateStack struct {
	parent *StateStack
	depth  int

	ruleID RuleID
	// Position where the rule was entered on the current line, -1 otherwise.
	enterPos int
	// Position where \G may match on the current line, -1 otherwise.
	anchorPos            int
	beginRuleCapturedEOL bool
	// Resolved end or while pattern when it back-references begin captures.
	endRule resolvedPattern

	nameScopes        *ScopeStack
	contentNameScopes *ScopeStack
}

// Depth returns the number of frames.
func (s *StateStack) Depth() int {
	if s == nil {
		return 0
	}
	return s.depth
}

// RuleID returns the rule of the innermost frame.
func (s *StateStack) RuleID() RuleID {
	return s.ruleID
}

// EndRule returns the resolved end or while pattern of the innermost frame.
func (s *StateStack) EndRule() string {
	return s.endRule.text
}

// resolvedPattern is an end or while pattern with begin captures
// substituted. The zero value means nothing was resolved, which is distinct
// from a pattern that resolved to the empty string.
type resolvedPattern struct {
	text string
	ok   bool
}

// Scopes returns the content scopes of the innermost frame, outermost first.
func (s *StateStack) Scopes() []string {
	if s == nil {
		return nil
	}
	return s.contentNameScopes.Names()
}

func (s *StateStack) push(ruleID RuleID, enterPos, anchorPos int, capturedEOL bool, endRule resolvedPattern, name, content *ScopeStack) *StateStack {
	return &StateStack{
		parent:               s,
		depth:                s.Depth() + 1,
		ruleID:               ruleID,
		enterPos:             enterPos,
		anchorPos:            anchorPos,
		beginRuleCapturedEOL: capturedEOL,
		endRule:              endRule,
		nameScopes:           name,
		contentNameScopes:    content,
	}
}

func (s *StateStack) pop() *StateStack {
	return s.parent
}

func (s *StateStack) withContentNameScopes(content *ScopeStack) *StateStack {
	if s.contentNameScopes == content {
		return s
	}
	c := *s
	c.contentNameScopes = content
	return &c
}

func (s *StateStack) withEndRule(endRule string) *StateStack {
	resolved := resolvedPattern{text: endRule, ok: true}
	if s.endRule == resolved {
		return s
	}
	c := *s
	c.endRule = resolved
	return &c
}

// hasSameRuleAs reports whether a frame entered at the same position as
// other runs the same rule.
func (s *StateStack) hasSameRuleAs(other *StateStack) bool {
	for el := s; el != nil && el.enterPos == other.enterPos; el = el.parent {
		if el.ruleID == other.ruleID {
			return true
		}
	}
	return false
}

// resetPositions returns the stack with line-local positions cleared, ready
// to tokenize the next line.
func (s *StateStack) resetPositions() *StateStack {
	if s == nil {
		return nil
	}
	clean := true
	for el := s; el != nil; el = el.parent {
		if el.enterPos != -1 || el.anchorPos != -1 {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	c := *s
	c.parent = s.parent.resetPositions()
	c.enterPos = -1
	c.anchorPos = -1
	return &c
}

// Equals compares rule ids, resolved end patterns and content scopes of
// every frame. Line positions are ignored.
func (s *StateStack) Equals(other *StateStack) bool {
	if s == other {
		return true
	}
	if !s.structuralEquals(other) {
		return false
	}
	return s.contentNameScopes.Equals(other.contentNameScopes)
}

func (s *StateStack) structuralEquals(other *StateStack) bool {
	for {
		if s == other {
			return true
		}
		if s == nil || other == nil {
			return false
		}
		if s.depth != other.depth || s.ruleID != other.ruleID || s.endRule != other.endRule {
			return false
		}
		s, other = s.parent, other.parent
	}
}

func (s *StateStack) String() string {
	if s == nil {
		return "<initial>"
	}
	var frames []string
	for el := s; el != nil; el = el.parent {
		frames = append(frames, fmt.Sprintf("(%d, %s)", el.ruleID, el.nameScopes.String()))
	}
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return "[" + strings.Join(frames, ", ") + "]"
}
