// Package selector implements the scope selector language used by grammar
// injections: whitespace for descendant conjunction, "," and "|" for
// alternatives, "-" for negation, parentheses for grouping and a leading
// "L:" or "R:" priority marker per alternative.
package selector

// TokenType represents the type of lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal

	TokenIdent    // source.js, meta.tag-name
	TokenPriority // L: or R:
	TokenComma    // ,
	TokenPipe     // |
	TokenMinus    // -
	TokenLParen   // (
	TokenRParen   // )
)

// String returns the string representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIllegal:
		return "ILLEGAL"
	case TokenIdent:
		return "IDENT"
	case TokenPriority:
		return "PRIORITY"
	case TokenComma:
		return ","
	case TokenPipe:
		return "|"
	case TokenMinus:
		return "-"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	default:
		return "UNKNOWN"
	}
}

// Token is a lexical token with its byte position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

// Lexer tokenizes selector input.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new lexer for the input string.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Pos: l.pos}
	if l.pos >= len(l.input) {
		tok.Type = TokenEOF
		return tok
	}

	ch := l.input[l.pos]
	switch {
	case (ch == 'L' || ch == 'R') && l.peek() == ':':
		tok.Type = TokenPriority
		tok.Literal = l.input[l.pos : l.pos+2]
		l.pos += 2
	case ch == ',':
		tok.Type = TokenComma
		tok.Literal = ","
		l.pos++
	case ch == '|':
		tok.Type = TokenPipe
		tok.Literal = "|"
		l.pos++
	case ch == '-':
		tok.Type = TokenMinus
		tok.Literal = "-"
		l.pos++
	case ch == '(':
		tok.Type = TokenLParen
		tok.Literal = "("
		l.pos++
	case ch == ')':
		tok.Type = TokenRParen
		tok.Literal = ")"
		l.pos++
	case isIdentStart(ch):
		start := l.pos
		l.pos++
		for l.pos < len(l.input) && (isIdentStart(l.input[l.pos]) || l.input[l.pos] == '-') {
			l.pos++
		}
		tok.Type = TokenIdent
		tok.Literal = l.input[start:l.pos]
	default:
		tok.Type = TokenIllegal
		tok.Literal = string(ch)
		l.pos++
	}
	return tok
}

func (l *Lexer) peek() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' ||
		ch == '_' || ch == '.' || ch == ':'
}
