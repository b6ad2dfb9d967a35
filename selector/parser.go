package selector

import "fmt"

// ParseError describes a malformed selector.
type ParseError struct {
	Selector string
	Pos      int
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("selector %q: %s at position %d", e.Selector, e.Msg, e.Pos)
}

// Parser parses selector tokens into alternatives.
type Parser struct {
	input   string
	lexer   *Lexer
	current Token
}

// NewParser creates a parser for the input.
func NewParser(input string) *Parser {
	p := &Parser{input: input, lexer: NewLexer(input)}
	p.nextToken()
	return p
}

// Parse parses the whole input.
// selector    = alternative { ("," | "|") alternative }
// alternative = [ "L:" | "R:" ] conjunction
func (p *Parser) Parse() ([]Alternative, error) {
	var alts []Alternative
	if p.current.Type == TokenEOF {
		return alts, nil
	}

	for {
		priority := 0
		if p.current.Type == TokenPriority {
			if p.current.Literal[0] == 'R' {
				priority = 1
			} else {
				priority = -1
			}
			p.nextToken()
		}

		expr, err := p.parseConjunction()
		if err != nil {
			return nil, err
		}
		alts = append(alts, Alternative{Expr: expr, Priority: priority})

		switch p.current.Type {
		case TokenComma, TokenPipe:
			p.nextToken()
		case TokenEOF:
			return alts, nil
		default:
			return nil, p.errorf("unexpected %q", p.current.Literal)
		}
	}
}

func (p *Parser) nextToken() {
	p.current = p.lexer.NextToken()
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Selector: p.input, Pos: p.current.Pos, Msg: fmt.Sprintf(format, args...)}
}

// parseConjunction parses one or more operands.
// conjunction = operand { operand }
func (p *Parser) parseConjunction() (Expr, error) {
	var exprs []Expr
	for p.startsOperand() {
		e, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}

	switch len(exprs) {
	case 0:
		if p.current.Type == TokenEOF {
			return nil, p.errorf("expected scope")
		}
		return nil, p.errorf("unexpected %q", p.current.Literal)
	case 1:
		return exprs[0], nil
	}
	return &AndExpr{Exprs: exprs}, nil
}

func (p *Parser) startsOperand() bool {
	switch p.current.Type {
	case TokenIdent, TokenMinus, TokenLParen:
		return true
	}
	return false
}

// parseOperand parses a negation, a group or a scope path.
// operand = "-" operand | "(" inner ")" | IDENT { IDENT }
func (p *Parser) parseOperand() (Expr, error) {
	switch p.current.Type {
	case TokenMinus:
		p.nextToken()
		if !p.startsOperand() {
			return nil, p.errorf("expected operand after -")
		}
		e, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: e}, nil

	case TokenLParen:
		p.nextToken()
		e, err := p.parseInner()
		if err != nil {
			return nil, err
		}
		if p.current.Type != TokenRParen {
			return nil, p.errorf("expected )")
		}
		p.nextToken()
		return e, nil

	case TokenIdent:
		var ids []string
		for p.current.Type == TokenIdent {
			ids = append(ids, p.current.Literal)
			p.nextToken()
		}
		return &PathExpr{Identifiers: ids}, nil
	}
	return nil, p.errorf("unexpected %q", p.current.Literal)
}

// parseInner parses a parenthesised disjunction.
// inner = conjunction { ("|" | ",") conjunction }
func (p *Parser) parseInner() (Expr, error) {
	var exprs []Expr
	for {
		e, err := p.parseConjunction()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if p.current.Type != TokenPipe && p.current.Type != TokenComma {
			break
		}
		p.nextToken()
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &OrExpr{Exprs: exprs}, nil
}
