package selector

import "strings"

// Expr is a node of a parsed selector that can be evaluated against a scope
// chain (outermost scope first).
type Expr interface {
	Matches(scopes []string) bool
	String() string
}

// PathExpr is a run of identifiers that must match the chain in order.
type PathExpr struct {
	Identifiers []string
}

func (p *PathExpr) Matches(scopes []string) bool {
	return MatchesName(p.Identifiers, scopes)
}

func (p *PathExpr) String() string {
	return strings.Join(p.Identifiers, " ")
}

// NotExpr negates its operand.
type NotExpr struct {
	Expr Expr
}

func (n *NotExpr) Matches(scopes []string) bool {
	return !n.Expr.Matches(scopes)
}

func (n *NotExpr) String() string {
	return "-" + n.Expr.String()
}

// AndExpr requires every operand to match.
type AndExpr struct {
	Exprs []Expr
}

func (a *AndExpr) Matches(scopes []string) bool {
	for _, e := range a.Exprs {
		if !e.Matches(scopes) {
			return false
		}
	}
	return true
}

func (a *AndExpr) String() string {
	parts := make([]string, len(a.Exprs))
	for i, e := range a.Exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// OrExpr requires any operand to match.
type OrExpr struct {
	Exprs []Expr
}

func (o *OrExpr) Matches(scopes []string) bool {
	for _, e := range o.Exprs {
		if e.Matches(scopes) {
			return true
		}
	}
	return false
}

func (o *OrExpr) String() string {
	parts := make([]string, len(o.Exprs))
	for i, e := range o.Exprs {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// MatchesName reports whether every identifier matches some scope of the
// chain, in order. A scope matches an identifier when it is equal to it or
// extends it with a "." segment.
func MatchesName(identifiers, scopes []string) bool {
	if len(scopes) < len(identifiers) {
		return false
	}
	next := 0
	for _, id := range identifiers {
		found := false
		for i := next; i < len(scopes); i++ {
			if ScopeMatches(scopes[i], id) {
				next = i + 1
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ScopeMatches is dotted-prefix matching of one scope against one selector
// identifier.
func ScopeMatches(scope, identifier string) bool {
	if scope == identifier {
		return true
	}
	return len(scope) > len(identifier) &&
		strings.HasPrefix(scope, identifier) &&
		scope[len(identifier)] == '.'
}
