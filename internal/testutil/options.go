package testutil

import "github.com/zjrosen/tmlight/grammar"

// RuleOption configures a rule during builder setup.
type RuleOption func(*grammar.RawRule)

// Name sets the rule's scope name.
func Name(name string) RuleOption {
	return func(r *grammar.RawRule) { r.Name = name }
}

// ContentName sets the scope applied between begin and end.
func ContentName(name string) RuleOption {
	return func(r *grammar.RawRule) { r.ContentName = name }
}

// Captures names capture groups, in order starting at group 1.
func Captures(names ...string) RuleOption {
	return func(r *grammar.RawRule) { r.Captures = captureMap(names) }
}

// BeginCaptures names begin capture groups starting at group 1.
func BeginCaptures(names ...string) RuleOption {
	return func(r *grammar.RawRule) { r.BeginCaptures = captureMap(names) }
}

// EndCaptures names end capture groups starting at group 1.
func EndCaptures(names ...string) RuleOption {
	return func(r *grammar.RawRule) { r.EndCaptures = captureMap(names) }
}

// Include adds nested include patterns such as "#escapes" or "$self".
func Include(refs ...string) RuleOption {
	return func(r *grammar.RawRule) {
		for _, ref := range refs {
			r.Patterns = append(r.Patterns, &grammar.RawRule{Include: ref})
		}
	}
}

// Nested adds nested rules.
func Nested(rules ...*grammar.RawRule) RuleOption {
	return func(r *grammar.RawRule) { r.Patterns = append(r.Patterns, rules...) }
}

// EndLast sets applyEndPatternLast.
func EndLast() RuleOption {
	return func(r *grammar.RawRule) { r.ApplyEndPatternLast = true }
}

func captureMap(names []string) grammar.RawCaptures {
	caps := make(grammar.RawCaptures, len(names))
	for i, n := range names {
		if n != "" {
			caps[itoa(i+1)] = &grammar.RawRule{Name: n}
		}
	}
	return caps
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return itoa(i/10) + string(rune('0'+i%10))
}

// Match builds a match rule.
func Match(pattern string, opts ...RuleOption) *grammar.RawRule {
	r := &grammar.RawRule{Match: pattern}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BeginEnd builds a begin/end rule.
func BeginEnd(begin, end string, opts ...RuleOption) *grammar.RawRule {
	r := &grammar.RawRule{Begin: begin, End: end}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BeginWhile builds a begin/while rule.
func BeginWhile(begin, while string, opts ...RuleOption) *grammar.RawRule {
	r := &grammar.RawRule{Begin: begin, While: while}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
