package grammar

import (
	"github.com/zjrosen/tmlight/textview"
)

// Token is a span of the line in UTF-16 code units with its scope chain,
// outermost first.
type Token struct {
	StartIndex int
	EndIndex   int
	Scopes     []string
}

type rawToken struct {
	start  int
	scopes *ScopeStack
}

// lineTokens accumulates tokens in byte offsets. Each produce call closes
// the span from the previous end up to end.
type lineTokens struct {
	tokens  []rawToken
	lastEnd int
}

func (lt *lineTokens) produce(stack *StateStack, end int) {
	lt.produceFromScopes(stack.contentNameScopes, end)
}

func (lt *lineTokens) produceFromScopes(scopes *ScopeStack, end int) {
	if lt.lastEnd >= end {
		return
	}
	lt.tokens = append(lt.tokens, rawToken{start: lt.lastEnd, scopes: scopes})
	lt.lastEnd = end
}

// result converts the byte tokens of v, which carries the appended newline,
// back to the caller's text of textLen bytes. An empty line yields a
// single empty token.
func (lt *lineTokens) result(v *textview.View, textLen int, stack *StateStack) ([]Token, error) {
	names := make(map[*ScopeStack][]string)
	scopesOf := func(s *ScopeStack) []string {
		if n, ok := names[s]; ok {
			return n
		}
		n := s.Names()
		names[s] = n
		return n
	}

	if textLen == 0 {
		return []Token{{Scopes: scopesOf(stack.contentNameScopes)}}, nil
	}

	out := make([]Token, 0, len(lt.tokens))
	for i, tok := range lt.tokens {
		if tok.start >= textLen {
			break
		}
		end := lt.lastEnd
		if i+1 < len(lt.tokens) {
			end = lt.tokens[i+1].start
		}
		end = min(end, textLen)

		start16, err := v.UTF8ToUTF16(tok.start)
		if err != nil {
			return nil, err
		}
		end16, err := v.UTF8ToUTF16(end)
		if err != nil {
			return nil, err
		}
		out = append(out, Token{
			StartIndex: start16,
			EndIndex:   end16,
			Scopes:     scopesOf(tok.scopes),
		})
	}
	return out, nil
}
