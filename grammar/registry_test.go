package grammar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/tmlight/internal/pubsub"
	"github.com/zjrosen/tmlight/internal/tracing"
)

func TestRegistry_GrammarForScopeCaches(t *testing.T) {
	calls := 0
	raw := parseRaw(t, miniGrammar)
	reg := NewRegistry(RegistryOptions{
		Lookup: func(scope string) (*RawGrammar, error) {
			calls++
			if scope == raw.ScopeName {
				return raw, nil
			}
			return nil, nil
		},
	})

	ctx := context.Background()
	first, err := reg.GrammarForScope(ctx, "source.mini")
	require.NoError(t, err)
	second, err := reg.GrammarForScope(ctx, "source.mini")
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, calls)

	stats := reg.CacheStats()
	require.Len(t, stats, 2)
	require.Equal(t, "grammars", stats[0].UseCase)
	require.Equal(t, uint64(1), stats[0].Hits)
	require.Equal(t, 1, stats[0].Items)
	require.NotZero(t, stats[1].Items)

	_, err = reg.GrammarForScope(ctx, "source.unknown")
	require.ErrorIs(t, err, ErrNoGrammar)
}

func TestRegistry_AddGrammarTakesPrecedence(t *testing.T) {
	reg := NewRegistry(RegistryOptions{
		Lookup: func(string) (*RawGrammar, error) {
			t.Fatal("lookup should not be called")
			return nil, nil
		},
	})
	reg.AddGrammar(parseRaw(t, miniGrammar))

	g, err := reg.GrammarForScope(context.Background(), "source.mini")
	require.NoError(t, err)
	require.Equal(t, "source.mini", g.ScopeName())
	require.Positive(t, g.RuleCount())
}

func TestRegistry_ReloadPublishes(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	defer reg.Close()
	reg.AddGrammar(parseRaw(t, miniGrammar))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := reg.Events(ctx)

	first, err := reg.GrammarForScope(ctx, "source.mini")
	require.NoError(t, err)
	reloaded, err := reg.Reload(ctx, "source.mini")
	require.NoError(t, err)
	require.NotEqual(t, first.InstanceID(), reloaded.InstanceID())

	again, err := reg.GrammarForScope(ctx, "source.mini")
	require.NoError(t, err)
	require.Same(t, reloaded, again)

	var got []pubsub.EventType
	timeout := time.After(time.Second)
	for len(got) < 3 {
		select {
		case ev := <-events:
			require.Equal(t, "source.mini", ev.Payload.ScopeName)
			got = append(got, ev.Type)
		case <-timeout:
			t.Fatalf("got %v events", got)
		}
	}
	require.Equal(t, []pubsub.EventType{pubsub.CreatedEvent, pubsub.CreatedEvent, pubsub.UpdatedEvent}, got)
}

func TestRegistry_ReloadsSkipsFirstLoad(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	defer reg.Close()
	reg.AddGrammar(parseRaw(t, miniGrammar))
	ctx := t.Context()
	reloads := reg.Reloads(ctx)

	_, err := reg.GrammarForScope(ctx, "source.mini")
	require.NoError(t, err)
	_, err = reg.Reload(ctx, "source.mini")
	require.NoError(t, err)

	select {
	case ev := <-reloads:
		require.Equal(t, pubsub.UpdatedEvent, ev.Type)
		require.Equal(t, "source.mini", ev.Payload.ScopeName)
	case <-time.After(time.Second):
		t.Fatal("expected an update event")
	}
	select {
	case ev := <-reloads:
		t.Fatalf("unexpected event %v", ev.Type)
	default:
	}
}

func TestRegistry_ReloadFailure(t *testing.T) {
	broken := false
	raw := parseRaw(t, miniGrammar)
	reg := NewRegistry(RegistryOptions{
		Lookup: func(string) (*RawGrammar, error) {
			if broken {
				return &RawGrammar{ScopeName: "source.mini", Patterns: []*RawRule{{Match: "("}}}, nil
			}
			return raw, nil
		},
	})
	defer reg.Close()
	ctx := t.Context()
	events := reg.Events(ctx)

	_, err := reg.GrammarForScope(ctx, "source.mini")
	require.NoError(t, err)

	broken = true
	_, err = reg.Reload(ctx, "source.mini")
	var gerr *GrammarError
	require.ErrorAs(t, err, &gerr)

	var got []pubsub.EventType
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev.Type)
		case <-timeout:
			t.Fatalf("got %v events", got)
		}
	}
	require.Equal(t, []pubsub.EventType{pubsub.CreatedEvent, pubsub.FailedEvent}, got)

	broken = false
	g, err := reg.GrammarForScope(ctx, "source.mini")
	require.NoError(t, err)
	require.Equal(t, "source.mini", g.ScopeName())
}

func TestRegistry_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	reg := NewRegistry(RegistryOptions{Tracer: tp.Tracer("test")})
	defer reg.Close()

	g, err := reg.LoadGrammar(parseRaw(t, miniGrammar))
	require.NoError(t, err)
	_, err = g.TokenizeLine(t.Context(), "if x", nil, 0)
	require.NoError(t, err)
	_, err = reg.LoadGrammar(&RawGrammar{ScopeName: "source.bad", Patterns: []*RawRule{{Match: "("}}})
	require.Error(t, err)

	ended := rec.Ended()
	require.Len(t, ended, 3)
	require.Equal(t, tracing.SpanLoadGrammar, ended[0].Name())
	require.Equal(t, tracing.SpanTokenizeLine, ended[1].Name())
	require.Equal(t, tracing.SpanLoadGrammar, ended[2].Name())
	require.Equal(t, codes.Error, ended[2].Status().Code)

	attrs := map[string]any{}
	for _, kv := range ended[1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	require.Equal(t, "source.mini", attrs[tracing.AttrGrammarScope])
	require.EqualValues(t, 4, attrs[tracing.AttrLineBytes])
}

func TestRegistry_ConcurrentTokenization(t *testing.T) {
	g := loadGrammar(t, miniGrammar)
	lines := []string{"if (x) { return 'a' }", "/* c */ f(1.5)", `"x\"y" z`}

	want := make([][]Token, len(lines))
	for i, line := range lines {
		res, err := g.TokenizeLine(context.Background(), line, nil, 0)
		require.NoError(t, err)
		want[i] = res.Tokens
	}

	done := make(chan [][]Token, 8)
	for w := 0; w < 8; w++ {
		go func() {
			out := make([][]Token, len(lines))
			for i, line := range lines {
				res, err := g.TokenizeLine(context.Background(), line, nil, 0)
				if err != nil {
					done <- nil
					return
				}
				out[i] = res.Tokens
			}
			done <- out
		}()
	}
	for w := 0; w < 8; w++ {
		require.Equal(t, want, <-done)
	}
}
