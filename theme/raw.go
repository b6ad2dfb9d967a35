// Package theme resolves scope chains to styles using TextMate theme rules.
package theme

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RawTheme is the decoded form of a theme file. VS Code themes list their
// rules under tokenColors; TextMate themes use settings.
type RawTheme struct {
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Include     string            `json:"include,omitempty" yaml:"include,omitempty"`
	Settings    []RawSetting      `json:"settings,omitempty" yaml:"settings,omitempty"`
	TokenColors []RawSetting      `json:"tokenColors,omitempty" yaml:"tokenColors,omitempty"`
	Colors      map[string]string `json:"colors,omitempty" yaml:"colors,omitempty"`
}

func (r *RawTheme) rules() []RawSetting {
	if len(r.Settings) == 0 {
		return r.TokenColors
	}
	if len(r.TokenColors) == 0 {
		return r.Settings
	}
	out := make([]RawSetting, 0, len(r.Settings)+len(r.TokenColors))
	out = append(out, r.Settings...)
	return append(out, r.TokenColors...)
}

// RawSetting is one theme rule.
type RawSetting struct {
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Scope    ScopeList `json:"scope,omitempty" yaml:"scope,omitempty"`
	Settings RawStyle  `json:"settings" yaml:"settings"`
}

// RawStyle holds the style channels of a rule as written.
type RawStyle struct {
	FontStyle  *string `json:"fontStyle,omitempty" yaml:"fontStyle,omitempty"`
	Foreground string  `json:"foreground,omitempty" yaml:"foreground,omitempty"`
	Background string  `json:"background,omitempty" yaml:"background,omitempty"`
}

// ScopeList is a rule's scope selectors. It decodes from a comma separated
// string or a list of strings.
type ScopeList []string

func (s *ScopeList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = splitScopes(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("scope must be a string or a list of strings: %w", err)
	}
	*s = list
	return nil
}

func (s *ScopeList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = splitScopes(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	return fmt.Errorf("line %d: scope must be a string or a list of strings", node.Line)
}

// splitScopes splits "a, b" into its selectors, ignoring leading and
// trailing commas.
func splitScopes(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), ",")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
