// Package loader reads grammar and theme files from disk.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/theme"
)

// Format is a file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for files that are neither JSON nor YAML.
var ErrUnknownFormat = errors.New("unknown file format")

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// ParseGrammar decodes a grammar.
func ParseGrammar(data []byte, format Format) (*grammar.RawGrammar, error) {
	var raw grammar.RawGrammar
	if err := decode(data, format, &raw); err != nil {
		return nil, fmt.Errorf("decoding grammar: %w", err)
	}
	if raw.ScopeName == "" {
		return nil, errors.New("decoding grammar: missing scopeName")
	}
	return &raw, nil
}

// ParseTheme decodes a theme.
func ParseTheme(data []byte, format Format) (*theme.RawTheme, error) {
	var raw theme.RawTheme
	if err := decode(data, format, &raw); err != nil {
		return nil, fmt.Errorf("decoding theme: %w", err)
	}
	return &raw, nil
}

// LoadGrammarFile reads and decodes a grammar file.
func LoadGrammarFile(path string) (*grammar.RawGrammar, error) {
	data, format, err := readFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := ParseGrammar(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}

// LoadThemeFile reads and decodes a theme file.
func LoadThemeFile(path string) (*theme.RawTheme, error) {
	data, format, err := readFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := ParseTheme(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}

// ThemeIncludeResolver resolves theme includes relative to the directory
// of the including file.
func ThemeIncludeResolver(dir string) theme.IncludeResolver {
	return func(name string) (*theme.RawTheme, error) {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		return LoadThemeFile(path)
	}
}

func readFile(path string) ([]byte, Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	return data, format, nil
}

func decode(data []byte, format Format, out any) error {
	switch format {
	case FormatJSON:
		// Some grammars carry a BOM.
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		return json.Unmarshal(data, out)
	case FormatYAML:
		return yaml.Unmarshal(data, out)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
