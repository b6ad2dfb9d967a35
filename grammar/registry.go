package grammar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/tmlight/internal/cachemanager"
	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/internal/pubsub"
	"github.com/zjrosen/tmlight/internal/tracing"
	"github.com/zjrosen/tmlight/onig"
)

// DefaultGrammarTTL is how long a grammar loaded through GrammarForScope
// stays cached after its last use.
const DefaultGrammarTTL = 30 * time.Minute

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Lookup returns the raw grammar for a scope name, or nil when unknown.
	Lookup func(scopeName string) (*RawGrammar, error)
	// Injections lists the scope names of grammars injecting into a scope.
	Injections func(scopeName string) []string
	// Engine compiles patterns; one is created when nil.
	Engine *onig.Engine
	// Tracer records load and TokenizeLine spans; a no-op tracer when nil.
	Tracer trace.Tracer
	// GrammarTTL bounds how long cached grammars live unused.
	GrammarTTL time.Duration
	// DynamicTTL bounds how long back-referenced end patterns live unused.
	DynamicTTL time.Duration
}

// GrammarEvent is published when a grammar is loaded or reloaded.
type GrammarEvent struct {
	ScopeName  string
	InstanceID string
}

// Registry loads grammars and resolves cross-grammar includes by scope name.
type Registry struct {
	opts   RegistryOptions
	engine *onig.Engine
	tracer trace.Tracer

	mu    sync.RWMutex
	added map[string]*RawGrammar

	cache   cachemanager.CacheManager[string, *Grammar]
	handles *cachemanager.ReadThroughCache[string, *Grammar]
	broker  *pubsub.Broker[GrammarEvent]
}

// NewRegistry creates a registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Engine == nil {
		opts.Engine = onig.NewEngine()
	}
	if opts.GrammarTTL <= 0 {
		opts.GrammarTTL = DefaultGrammarTTL
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("tmlight/grammar")
	}
	r := &Registry{
		opts:   opts,
		engine: opts.Engine,
		tracer: opts.Tracer,
		added:  make(map[string]*RawGrammar),
		broker: pubsub.NewBroker[GrammarEvent](),
	}
	r.cache = cachemanager.NewInMemoryCacheManager[string, *Grammar]("grammars", opts.GrammarTTL, cachemanager.DefaultCleanupInterval)
	r.handles = cachemanager.NewReadThroughCache(r.cache, r.loadByScope, opts.GrammarTTL)
	return r
}

// AddGrammar makes raw resolvable by its scope name for includes and
// GrammarForScope, ahead of Lookup.
func (r *Registry) AddGrammar(raw *RawGrammar) {
	if raw == nil || raw.ScopeName == "" {
		return
	}
	r.mu.Lock()
	r.added[raw.ScopeName] = raw
	r.mu.Unlock()
}

// LoadGrammar builds a grammar from raw. injections names extra injection
// grammars by scope, on top of those reported by RegistryOptions.Injections.
// Any malformed rule in raw rejects the whole grammar.
func (r *Registry) LoadGrammar(raw *RawGrammar, injections ...string) (*Grammar, error) {
	var scopes []string
	if raw != nil && r.opts.Injections != nil {
		scopes = append(scopes, r.opts.Injections(raw.ScopeName)...)
	}
	scopes = append(scopes, injections...)

	_, span := r.tracer.Start(context.Background(), tracing.SpanLoadGrammar)
	defer span.End()

	g, err := newGrammar(raw, grammarConfig{
		engine:          r.engine,
		tracer:          r.tracer,
		lookup:          r.rawGrammar,
		injectionScopes: scopes,
		dynamicTTL:      r.opts.DynamicTTL,
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String(tracing.AttrGrammarScope, g.scopeName),
		attribute.String(tracing.AttrGrammarID, g.id.String()),
		attribute.Int(tracing.AttrGrammarRules, g.RuleCount()),
		attribute.Int(tracing.AttrInjections, len(g.injections)),
	)
	r.broker.Publish(pubsub.CreatedEvent, GrammarEvent{ScopeName: g.scopeName, InstanceID: g.id.String()})
	return g, nil
}

// GrammarForScope returns the cached grammar for a scope, loading it on
// first use.
func (r *Registry) GrammarForScope(ctx context.Context, scopeName string) (*Grammar, error) {
	return r.handles.GetWithRefresh(ctx, scopeName)
}

// Reload drops the cached grammar for a scope and loads it again. Grammars
// already handed out keep working; their states do not carry over. A
// failed reload leaves nothing cached, so the next GrammarForScope retries.
func (r *Registry) Reload(ctx context.Context, scopeName string) (*Grammar, error) {
	r.handles.Invalidate(ctx, scopeName)
	g, err := r.handles.Get(ctx, scopeName)
	if err != nil {
		log.ErrorErr(log.CatGrammar, "grammar reload failed", err, "scope", scopeName)
		r.broker.Publish(pubsub.FailedEvent, GrammarEvent{ScopeName: scopeName})
		return nil, err
	}
	log.Info(log.CatGrammar, "grammar reloaded", "scope", scopeName, "id", g.id.String())
	r.broker.Publish(pubsub.UpdatedEvent, GrammarEvent{ScopeName: scopeName, InstanceID: g.id.String()})
	return g, nil
}

// Events subscribes to load and reload notifications until ctx is done.
func (r *Registry) Events(ctx context.Context) <-chan pubsub.Event[GrammarEvent] {
	return r.broker.Subscribe(ctx)
}

// Reloads subscribes to Updated and Failed events only, skipping first
// loads.
func (r *Registry) Reloads(ctx context.Context) <-chan pubsub.Event[GrammarEvent] {
	return r.broker.SubscribeTypes(ctx, pubsub.UpdatedEvent, pubsub.FailedEvent)
}

// CacheStats reports the grammar cache and the shared pattern cache.
func (r *Registry) CacheStats() []cachemanager.Stats {
	return []cachemanager.Stats{r.cache.Stats(), r.engine.CacheStats()}
}

// Close stops event delivery.
func (r *Registry) Close() {
	r.broker.Close()
}

func (r *Registry) loadByScope(_ context.Context, scopeName string) (*Grammar, error) {
	raw, err := r.rawGrammar(scopeName)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoGrammar, scopeName)
	}
	return r.LoadGrammar(raw)
}

func (r *Registry) rawGrammar(scopeName string) (*RawGrammar, error) {
	r.mu.RLock()
	raw, ok := r.added[scopeName]
	r.mu.RUnlock()
	if ok {
		return raw, nil
	}
	if r.opts.Lookup == nil {
		return nil, nil
	}
	raw, err := r.opts.Lookup(scopeName)
	if err != nil {
		return nil, fmt.Errorf("looking up grammar %s: %w", scopeName, err)
	}
	return raw, nil
}
