package presentation

import (
	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/loader"
	"github.com/zjrosen/tmlight/textview"
	"github.com/zjrosen/tmlight/theme"
)

// LineDTO is one tokenized line.
type LineDTO struct {
	Line         int        `json:"line"`
	Text         string     `json:"text"`
	Tokens       []TokenDTO `json:"tokens"`
	StoppedEarly bool       `json:"stopped_early,omitempty"`
}

// TokenDTO is a token with both UTF-16 and byte offsets.
type TokenDTO struct {
	Start     int      `json:"start"`
	End       int      `json:"end"`
	ByteStart int      `json:"byte_start"`
	ByteEnd   int      `json:"byte_end"`
	Text      string   `json:"text"`
	Scopes    []string `json:"scopes"`
}

// StyleDTO is a resolved theme style.
type StyleDTO struct {
	Foreground string `json:"foreground,omitempty"`
	Background string `json:"background,omitempty"`
	FontStyle  string `json:"font_style,omitempty"`
}

// ScopeInfoDTO describes the token under a cursor position.
type ScopeInfoDTO struct {
	Line   int      `json:"line"`
	Column int      `json:"column"`
	Token  TokenDTO `json:"token"`
	Style  StyleDTO `json:"style"`
}

// GrammarDTO describes an indexed grammar file.
type GrammarDTO struct {
	ScopeName         string   `json:"scope_name"`
	Path              string   `json:"path"`
	FileTypes         []string `json:"file_types"`
	FirstLineMatch    string   `json:"first_line_match,omitempty"`
	InjectionSelector string   `json:"injection_selector,omitempty"`
}

// FromResults converts tokenize results to DTOs. Lines without a result
// are skipped.
func FromResults(lines []string, results []*grammar.TokenizeResult) ([]LineDTO, error) {
	out := make([]LineDTO, 0, len(results))
	for i, line := range lines {
		if i >= len(results) || results[i] == nil {
			continue
		}
		v := textview.New(line)
		tokens := make([]TokenDTO, 0, len(results[i].Tokens))
		for _, tok := range results[i].Tokens {
			dto, err := FromToken(v, tok)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, dto)
		}
		out = append(out, LineDTO{
			Line:         i + 1,
			Text:         line,
			Tokens:       tokens,
			StoppedEarly: results[i].StoppedEarly,
		})
	}
	return out, nil
}

// FromToken converts a token of the line held by v.
func FromToken(v *textview.View, tok grammar.Token) (TokenDTO, error) {
	start, err := v.UTF16ToUTF8(tok.StartIndex)
	if err != nil {
		return TokenDTO{}, err
	}
	end, err := v.UTF16ToUTF8(tok.EndIndex)
	if err != nil {
		return TokenDTO{}, err
	}
	return TokenDTO{
		Start:     tok.StartIndex,
		End:       tok.EndIndex,
		ByteStart: start,
		ByteEnd:   end,
		Text:      v.String()[start:end],
		Scopes:    tok.Scopes,
	}, nil
}

// FromStyle converts a theme style.
func FromStyle(s theme.Style) StyleDTO {
	dto := StyleDTO{Foreground: s.Foreground, Background: s.Background}
	if s.FontStyle != theme.NotSet && s.FontStyle != theme.None {
		dto.FontStyle = s.FontStyle.String()
	}
	return dto
}

// FromEntries converts grammar directory entries.
func FromEntries(entries []loader.Entry) []GrammarDTO {
	out := make([]GrammarDTO, len(entries))
	for i, e := range entries {
		fileTypes := e.FileTypes
		if fileTypes == nil {
			fileTypes = []string{}
		}
		out[i] = GrammarDTO{
			ScopeName:         e.ScopeName,
			Path:              e.Path,
			FileTypes:         fileTypes,
			FirstLineMatch:    e.FirstLineMatch,
			InjectionSelector: e.InjectionSelector,
		}
	}
	return out
}
