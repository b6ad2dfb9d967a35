package presentation

import (
	"encoding/json"
	"io"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatLines formats tokenized lines as JSON
func (f *Formatter) FormatLines(lines []LineDTO) error {
	return f.encode(lines)
}

// FormatScopeInfo formats a scope lookup as JSON
func (f *Formatter) FormatScopeInfo(info ScopeInfoDTO) error {
	return f.encode(info)
}

// FormatGrammars formats the grammar index as JSON
func (f *Formatter) FormatGrammars(grammars []GrammarDTO) error {
	return f.encode(grammars)
}

func (f *Formatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
