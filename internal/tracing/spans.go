package tracing

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanTokenizeLine = "grammar.TokenizeLine"
	SpanLoadGrammar  = "grammar.Load"
	SpanLoadTheme    = "theme.Load"
)

// Span attribute keys.
const (
	AttrGrammarScope = "grammar.scope"
	AttrGrammarID    = "grammar.id"
	AttrGrammarRules = "grammar.rules"
	AttrInjections   = "grammar.injections"
	AttrLineBytes    = "line.bytes"
	AttrStateDepth   = "state.depth"
	AttrTokenCount   = "tokens.count"
	AttrStoppedEarly = "tokenize.stopped_early"
	AttrThemeName    = "theme.name"
	AttrThemeRules   = "theme.rules"
)

// Fail records err on span and marks it failed.
func Fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
