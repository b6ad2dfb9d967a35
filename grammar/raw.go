package grammar

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// RawGrammar is the decoded form of a TextMate grammar file.
type RawGrammar struct {
	ScopeName         string              `json:"scopeName" yaml:"scopeName"`
	Name              string              `json:"name,omitempty" yaml:"name,omitempty"`
	FileTypes         []string            `json:"fileTypes,omitempty" yaml:"fileTypes,omitempty"`
	FirstLineMatch    string              `json:"firstLineMatch,omitempty" yaml:"firstLineMatch,omitempty"`
	Patterns          []*RawRule          `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Repository        map[string]*RawRule `json:"repository,omitempty" yaml:"repository,omitempty"`
	Injections        map[string]*RawRule `json:"injections,omitempty" yaml:"injections,omitempty"`
	InjectionSelector string              `json:"injectionSelector,omitempty" yaml:"injectionSelector,omitempty"`
}

// RawRule is one entry of patterns, repository or captures.
type RawRule struct {
	Include             string              `json:"include,omitempty" yaml:"include,omitempty"`
	Name                string              `json:"name,omitempty" yaml:"name,omitempty"`
	ContentName         string              `json:"contentName,omitempty" yaml:"contentName,omitempty"`
	Match               string              `json:"match,omitempty" yaml:"match,omitempty"`
	Begin               string              `json:"begin,omitempty" yaml:"begin,omitempty"`
	End                 string              `json:"end,omitempty" yaml:"end,omitempty"`
	While               string              `json:"while,omitempty" yaml:"while,omitempty"`
	Captures            RawCaptures         `json:"captures,omitempty" yaml:"captures,omitempty"`
	BeginCaptures       RawCaptures         `json:"beginCaptures,omitempty" yaml:"beginCaptures,omitempty"`
	EndCaptures         RawCaptures         `json:"endCaptures,omitempty" yaml:"endCaptures,omitempty"`
	WhileCaptures       RawCaptures         `json:"whileCaptures,omitempty" yaml:"whileCaptures,omitempty"`
	ApplyEndPatternLast Flag                `json:"applyEndPatternLast,omitempty" yaml:"applyEndPatternLast,omitempty"`
	Patterns            []*RawRule          `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Repository          map[string]*RawRule `json:"repository,omitempty" yaml:"repository,omitempty"`
}

// RawCaptures maps a capture group number, as a decimal string, to a rule.
type RawCaptures map[string]*RawRule

// UnmarshalJSON also accepts the array form some grammars use.
func (c *RawCaptures) UnmarshalJSON(data []byte) error {
	var m map[string]*RawRule
	if err := json.Unmarshal(data, &m); err == nil {
		*c = m
		return nil
	}
	var list []*RawRule
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("captures: %w", err)
	}
	*c = make(RawCaptures, len(list))
	for i, r := range list {
		if r != nil {
			(*c)[strconv.Itoa(i)] = r
		}
	}
	return nil
}

// Flag is a boolean that also decodes from 0/1, as written by older
// plist-converted grammars.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag %s", data)
	}
	return nil
}

func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "true", "1", "yes":
		*f = true
	case "false", "0", "no", "":
		*f = false
	default:
		return fmt.Errorf("line %d: invalid flag %q", node.Line, node.Value)
	}
	return nil
}
