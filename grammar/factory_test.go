package grammar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tmlight/onig"
)

func TestParseInclude(t *testing.T) {
	tests := []struct {
		include string
		want    includeReference
	}{
		{"$base", includeReference{kind: includeBase}},
		{"$self", includeReference{kind: includeSelf}},
		{"#value", includeReference{kind: includeRelative, ruleName: "value"}},
		{"source.css", includeReference{kind: includeTopLevel, scopeName: "source.css"}},
		{"source.css#rule-list", includeReference{kind: includeTopLevelRule, scopeName: "source.css", ruleName: "rule-list"}},
	}
	for _, tt := range tests {
		t.Run(tt.include, func(t *testing.T) {
			require.Equal(t, tt.want, parseInclude(tt.include))
		})
	}
}

func TestLoadGrammar_MissingRelativeInclude(t *testing.T) {
	_, err := NewRegistry(RegistryOptions{}).LoadGrammar(parseRaw(t, `{
		"scopeName": "source.bad",
		"patterns": [{"include": "#nowhere"}]
	}`))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMissingInclude)

	var gerr *GrammarError
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, "source.bad", gerr.ScopeName)
	require.Equal(t, "$self.patterns[0]", gerr.Location)
}

func TestLoadGrammar_InvalidPattern(t *testing.T) {
	_, err := NewRegistry(RegistryOptions{}).LoadGrammar(parseRaw(t, `{
		"scopeName": "source.bad",
		"patterns": [
			{"match": "(unclosed", "name": "a"},
			{"begin": "ok", "end": "[", "name": "b"}
		]
	}`))
	require.Error(t, err)

	var perr *onig.PatternCompileError
	require.True(t, errors.As(err, &perr))

	// Both problems are reported.
	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	require.Len(t, joined.Unwrap(), 2)
}

func TestLoadGrammar_MissingScopeName(t *testing.T) {
	_, err := NewRegistry(RegistryOptions{}).LoadGrammar(&RawGrammar{})
	var gerr *GrammarError
	require.True(t, errors.As(err, &gerr))
}

func TestLoadGrammar_ExternalProblemsAreTolerated(t *testing.T) {
	broken := parseRaw(t, `{
		"scopeName": "source.broken",
		"patterns": [{"include": "#nowhere"}, {"match": "(", "name": "bad"}, {"match": "ok", "name": "fine"}]
	}`)
	g := loadGrammar(t, `{
		"scopeName": "source.host",
		"patterns": [{"include": "source.broken"}, {"include": "source.absent#rule"}]
	}`, withGrammars(broken))

	lines, _ := tokenizeLines(t, g, "ok")
	require.Equal(t, []string{"source.host", "fine"}, scopesAt(lines[0], 0))
}

func TestLoadGrammar_BeginWithoutEndNeverCloses(t *testing.T) {
	g := loadGrammar(t, `{
		"scopeName": "source.open",
		"patterns": [{"begin": "<<", "name": "meta.heredoc"}]
	}`)

	lines, state := tokenizeLines(t, g, "a << b", "c")
	require.Equal(t, []string{"source.open", "meta.heredoc"}, scopesAt(lines[0], 5))
	require.Equal(t, []string{"source.open", "meta.heredoc"}, scopesAt(lines[1], 0))
	require.Equal(t, 2, state.Depth())
}

func TestLoadGrammar_SelfReferenceTerminates(t *testing.T) {
	g := loadGrammar(t, `{
		"scopeName": "source.loop",
		"patterns": [{"include": "#a"}],
		"repository": {
			"a": {"patterns": [{"include": "#b"}, {"match": "a", "name": "letter.a"}]},
			"b": {"patterns": [{"include": "#a"}, {"include": "$self"}, {"match": "b", "name": "letter.b"}]}
		}
	}`)

	lines, _ := tokenizeLines(t, g, "ab")
	require.Equal(t, []string{"source.loop", "letter.a"}, scopesAt(lines[0], 0))
	require.Equal(t, []string{"source.loop", "letter.b"}, scopesAt(lines[0], 1))
}

func TestLoadGrammar_NestedRepositoryShadows(t *testing.T) {
	g := loadGrammar(t, `{
		"scopeName": "source.nest",
		"patterns": [
			{"begin": "\\(", "end": "\\)", "name": "meta.paren",
			 "repository": {"word": {"match": "\\w+", "name": "inner.word"}},
			 "patterns": [{"include": "#word"}]},
			{"include": "#word"}
		],
		"repository": {"word": {"match": "\\w+", "name": "outer.word"}}
	}`)

	lines, _ := tokenizeLines(t, g, "x (y)")
	require.Equal(t, []string{"source.nest", "outer.word"}, scopesAt(lines[0], 0))
	require.Equal(t, []string{"source.nest", "meta.paren", "inner.word"}, scopesAt(lines[0], 3))
}

func TestCollectPatterns_Order(t *testing.T) {
	g := loadGrammar(t, `{
		"scopeName": "source.order",
		"patterns": [
			{"match": "one"},
			{"patterns": [{"match": "two"}, {"begin": "three", "end": "x", "patterns": [{"match": "hidden"}]}]},
			{"match": "four"}
		]
	}`)

	var sources []string
	for _, src := range collectChildren(g, g.rule(g.rootID).(*IncludeOnlyRule).patterns) {
		sources = append(sources, src.source)
	}
	require.Equal(t, []string{"one", "two", "three", "four"}, sources)
}

func TestLoadGrammar_SharedRuleIDs(t *testing.T) {
	g := loadGrammar(t, `{
		"scopeName": "source.share",
		"patterns": [{"include": "#n"}, {"include": "#n"}],
		"repository": {"n": {"match": "\\d", "name": "n"}}
	}`)

	root := g.rule(g.rootID).(*IncludeOnlyRule)
	require.Len(t, root.patterns, 2)
	require.Equal(t, root.patterns[0], root.patterns[1])
}

func TestMatchesFirstLine(t *testing.T) {
	g := loadGrammar(t, `{
		"scopeName": "source.shell",
		"firstLineMatch": "^#!.*\\b(bash|sh)\\b",
		"patterns": []
	}`)
	require.True(t, g.MatchesFirstLine("#!/usr/bin/env bash"))
	require.False(t, g.MatchesFirstLine("echo hi"))

	plain := loadGrammar(t, `{"scopeName": "source.plain", "patterns": []}`)
	require.False(t, plain.MatchesFirstLine("#!/bin/sh"))
}
