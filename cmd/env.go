package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/internal/render"
	"github.com/zjrosen/tmlight/internal/tracing"
	"github.com/zjrosen/tmlight/loader"
	"github.com/zjrosen/tmlight/onig"
	"github.com/zjrosen/tmlight/theme"
)

// environment wires the grammar directory, pattern engine, registry and
// tracer for one command run.
type environment struct {
	dir      *loader.Dir
	engine   *onig.Engine
	registry *grammar.Registry
	tracing  *tracing.Provider
}

func newEnvironment() (*environment, error) {
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("starting tracing: %w", err)
	}

	dirs := existingDirs(cfg.GrammarDirs)
	dir, err := loader.NewDir(dirs...)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("indexing grammars: %w", err)
	}

	engine := onig.NewEngine(
		onig.WithMatchTimeout(cfg.Tokenize.MatchTimeout),
		onig.WithCacheTTL(cfg.Cache.PatternTTL),
	)
	registry := grammar.NewRegistry(grammar.RegistryOptions{
		Lookup:     dir.Lookup,
		Injections: dir.Injections,
		Engine:     engine,
		Tracer:     provider.Tracer(),
		GrammarTTL: cfg.Cache.GrammarTTL,
		DynamicTTL: cfg.Cache.DynamicTTL,
	})
	log.Debug(log.CatCLI, "Environment ready", "grammars", len(dir.Scopes()), "tracing", provider.Enabled())

	return &environment{
		dir:      dir,
		engine:   engine,
		registry: registry,
		tracing:  provider,
	}, nil
}

// existingDirs drops configured directories that do not exist, so a fresh
// install without ~/.config/tmlight/grammars still runs.
func existingDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			out = append(out, d)
			continue
		}
		log.Debug(log.CatCLI, "Skipping missing grammar directory", "dir", d)
	}
	return out
}

func (e *environment) Close() {
	e.registry.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.tracing.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatCLI, "Flushing traces failed", err)
	}
}

// scopeFor picks the grammar for file: the explicit scope, then the file
// name, then the first line, then default_scope.
func (e *environment) scopeFor(file, explicit string, lines []string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if scope, ok := e.dir.ScopeForFile(file); ok {
		return scope, nil
	}
	if len(lines) > 0 {
		if scope, ok := e.dir.ScopeForFirstLine(e.engine, lines[0]); ok {
			return scope, nil
		}
	}
	if cfg.DefaultScope != "" {
		return cfg.DefaultScope, nil
	}
	return "", fmt.Errorf("no grammar for %s: pass --scope or add a grammar directory", file)
}

// grammarFor resolves and loads the grammar for file.
func (e *environment) grammarFor(ctx context.Context, file, explicit string, lines []string) (*grammar.Grammar, error) {
	scope, err := e.scopeFor(file, explicit, lines)
	if err != nil {
		return nil, err
	}
	g, err := e.registry.GrammarForScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("loading grammar %s: %w", scope, err)
	}
	if g == nil {
		return nil, fmt.Errorf("grammar %s not found in %v", scope, cfg.GrammarDirs)
	}
	return g, nil
}

// loadTheme loads path, or the built-in theme when path is empty. Theme
// includes resolve relative to the theme file.
func (e *environment) loadTheme(ctx context.Context, path string) (*theme.Theme, error) {
	_, span := e.tracing.Tracer().Start(ctx, tracing.SpanLoadTheme)
	defer span.End()

	raw := render.DefaultTheme()
	var opts []theme.Option
	if path != "" {
		var err error
		raw, err = loader.LoadThemeFile(path)
		if err != nil {
			tracing.Fail(span, err)
			return nil, err
		}
		opts = append(opts, theme.WithIncludeResolver(loader.ThemeIncludeResolver(filepath.Dir(path))))
	}
	th, err := theme.Load(raw, opts...)
	if err != nil {
		tracing.Fail(span, err)
		return nil, fmt.Errorf("loading theme %s: %w", path, err)
	}
	span.SetAttributes(
		attribute.String(tracing.AttrThemeName, th.Name()),
		attribute.Int(tracing.AttrThemeRules, len(raw.Settings)+len(raw.TokenColors)),
	)
	log.Debug(log.CatTheme, "Theme loaded", "name", th.Name(), "path", path)
	return th, nil
}

// readLines reads file, or stdin for "-".
func readLines(in io.Reader, file string) ([]string, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(file) //nolint:gosec // G304: user-named input file
	}
	if err != nil {
		return nil, err
	}
	return render.SplitLines(string(data)), nil
}

// tokenize runs the whole document and reports lines cut short.
func (e *environment) tokenize(ctx context.Context, g *grammar.Grammar, lines []string) ([]*grammar.TokenizeResult, error) {
	results, stopped, err := render.TokenizeDocument(ctx, g, lines, cfg.Tokenize.LineBudget)
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	if stopped > 0 {
		log.Warn(log.CatCLI, "Lines exceeded the time budget", "lines", stopped, "budget", cfg.Tokenize.LineBudget)
	}
	return results, err
}
