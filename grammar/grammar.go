package grammar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/tmlight/internal/cachemanager"
	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/onig"
	"github.com/zjrosen/tmlight/textview"
)

// DefaultDynamicTTL is how long a compiled set with back-referenced end
// text stays cached after its last use.
const DefaultDynamicTTL = 5 * time.Minute

// Grammar is a loaded grammar: an immutable rule arena plus lazily compiled
// pattern sets. It is safe for concurrent tokenization.
type Grammar struct {
	id        uuid.UUID
	scopeName string
	engine    *onig.Engine
	tracer    trace.Tracer
	lookup    func(scopeName string) (*RawGrammar, error)

	root     *grammarContext
	rootID   RuleID
	rules    []Rule
	ruleIDs  map[*RawRule]RuleID
	contexts map[string]*grammarContext

	injections []injection
	firstLine  *onig.Regexp

	dynamic    cachemanager.CacheManager[string, *CompiledRule]
	dynamicTTL time.Duration
	names      *interner

	loadErrs []error
}

type grammarConfig struct {
	engine          *onig.Engine
	tracer          trace.Tracer
	lookup          func(scopeName string) (*RawGrammar, error)
	injectionScopes []string
	dynamicTTL      time.Duration
}

func newGrammar(raw *RawGrammar, cfg grammarConfig) (*Grammar, error) {
	if raw == nil {
		return nil, &GrammarError{Location: "grammar", Err: errors.New("nil grammar")}
	}
	if raw.ScopeName == "" {
		return nil, &GrammarError{Location: "scopeName", Err: errors.New("missing scopeName")}
	}
	if cfg.engine == nil {
		cfg.engine = onig.NewEngine()
	}
	if cfg.tracer == nil {
		cfg.tracer = noop.NewTracerProvider().Tracer("tmlight/grammar")
	}
	if cfg.lookup == nil {
		cfg.lookup = func(string) (*RawGrammar, error) { return nil, nil }
	}
	if cfg.dynamicTTL <= 0 {
		cfg.dynamicTTL = DefaultDynamicTTL
	}

	g := &Grammar{
		id:         uuid.New(),
		scopeName:  raw.ScopeName,
		engine:     cfg.engine,
		tracer:     cfg.tracer,
		lookup:     cfg.lookup,
		rules:      []Rule{nil},
		ruleIDs:    make(map[*RawRule]RuleID),
		contexts:   make(map[string]*grammarContext),
		dynamicTTL: cfg.dynamicTTL,
		names:      newInterner(),
		dynamic: cachemanager.NewInMemoryCacheManager[string, *CompiledRule](
			"dynamic-rules:"+raw.ScopeName, cfg.dynamicTTL, cachemanager.DefaultCleanupInterval),
	}

	g.root = newGrammarContext(raw, nil, false)
	g.rootID = g.ruleID(g.root.self(), g.root.repo, g.root, "$self")
	g.injections = g.collectInjections(cfg.injectionScopes)

	if raw.FirstLineMatch != "" {
		re, err := g.engine.Compile(raw.FirstLineMatch)
		if err != nil {
			g.loadErrs = append(g.loadErrs, &GrammarError{ScopeName: raw.ScopeName, Location: "firstLineMatch", Err: err})
		}
		g.firstLine = re
	}

	if len(g.loadErrs) > 0 {
		return nil, errors.Join(g.loadErrs...)
	}
	g.loadErrs = nil
	// External contexts are only needed while building the arena.
	g.contexts = nil
	g.lookup = nil

	log.Info(log.CatGrammar, "grammar loaded",
		"scope", g.scopeName,
		"id", g.id.String(),
		"rules", len(g.rules)-1,
		"injections", len(g.injections))
	return g, nil
}

// InstanceID identifies this load of the grammar.
func (g *Grammar) InstanceID() uuid.UUID {
	return g.id
}

// ScopeName returns the root scope.
func (g *Grammar) ScopeName() string {
	return g.scopeName
}

// RuleCount returns the number of rules in the arena.
func (g *Grammar) RuleCount() int {
	return len(g.rules) - 1
}

// MatchesFirstLine reports whether line matches the grammar's
// firstLineMatch. Grammars without one never match.
func (g *Grammar) MatchesFirstLine(line string) bool {
	if g.firstLine == nil {
		return false
	}
	caps, err := g.firstLine.FindAt(context.Background(), textview.New(line), 0)
	return err == nil && caps != nil
}

func (g *Grammar) rule(id RuleID) Rule {
	return g.rules[id]
}
