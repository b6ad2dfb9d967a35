package grammar

import (
	"strings"
	"sync"
)

// ScopeStack is an immutable linked list of scope names, innermost at the
// head. Extending it never modifies an existing node.
type ScopeStack struct {
	parent    *ScopeStack
	scopeName string
	depth     int
}

// NewScopeStack returns a stack holding the given scopes, outermost first.
func NewScopeStack(scopes ...string) *ScopeStack {
	var s *ScopeStack
	for _, scope := range scopes {
		s = s.push(scope)
	}
	return s
}

// pushPath returns a stack extended by scopePath. A path with spaces pushes
// each segment. An empty path returns s.
func (s *ScopeStack) pushPath(scopePath string, in *interner) *ScopeStack {
	if scopePath == "" {
		return s
	}
	if !strings.Contains(scopePath, " ") {
		return s.push(in.intern(scopePath))
	}
	result := s
	for _, scope := range strings.Split(scopePath, " ") {
		if scope == "" {
			continue
		}
		result = result.push(in.intern(scope))
	}
	return result
}

func (s *ScopeStack) push(scope string) *ScopeStack {
	depth := 1
	if s != nil {
		depth = s.depth + 1
	}
	return &ScopeStack{parent: s, scopeName: scope, depth: depth}
}

// ScopeName returns the innermost scope.
func (s *ScopeStack) ScopeName() string {
	if s == nil {
		return ""
	}
	return s.scopeName
}

// Parent returns the enclosing stack.
func (s *ScopeStack) Parent() *ScopeStack {
	if s == nil {
		return nil
	}
	return s.parent
}

// Names returns the scopes outermost first.
func (s *ScopeStack) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, s.depth)
	i := s.depth - 1
	for n := s; n != nil; n = n.parent {
		names[i] = n.scopeName
		i--
	}
	return names
}

// Equals compares two stacks structurally.
func (s *ScopeStack) Equals(other *ScopeStack) bool {
	for {
		if s == other {
			return true
		}
		if s == nil || other == nil || s.depth != other.depth || s.scopeName != other.scopeName {
			return false
		}
		s, other = s.parent, other.parent
	}
}

func (s *ScopeStack) String() string {
	return strings.Join(s.Names(), " ")
}

// interner deduplicates scope name strings for one grammar.
type interner struct {
	strings sync.Map
}

func newInterner() *interner {
	return &interner{}
}

func (in *interner) intern(s string) string {
	if in == nil {
		return s
	}
	if v, ok := in.strings.Load(s); ok {
		return v.(string)
	}
	v, _ := in.strings.LoadOrStore(s, s)
	return v.(string)
}

// size reports the number of distinct interned names.
func (in *interner) size() int {
	n := 0
	in.strings.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
