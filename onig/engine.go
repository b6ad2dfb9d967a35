// Package onig binds Oniguruma-flavoured patterns to the regexp2 runtime and
// provides the multi-pattern "first match at or after position" search the
// tokenizer is built on. Offsets crossing this package are UTF-8 bytes.
package onig

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/tmlight/internal/cachemanager"
	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/textview"
)

const (
	// DefaultMatchTimeout bounds one search of one pattern.
	DefaultMatchTimeout = 500 * time.Millisecond
	// DefaultCacheTTL is how long an unused compiled pattern is kept.
	DefaultCacheTTL = 30 * time.Minute
)

// Engine compiles patterns and shares compiled forms between scanners.
// It is safe for concurrent use.
type Engine struct {
	timeout  time.Duration
	cacheTTL time.Duration
	cache    cachemanager.CacheManager[string, *compiled]
}

type compiled struct {
	re  *Regexp
	err error
}

// Option configures an Engine.
type Option func(*Engine)

// WithMatchTimeout sets the per-search timeout. Zero disables it.
func WithMatchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithCacheTTL sets how long compiled patterns stay cached after last use.
func WithCacheTTL(d time.Duration) Option {
	return func(e *Engine) {
		e.cacheTTL = d
	}
}

// NewEngine creates an engine with its own compiled-pattern cache.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout:  DefaultMatchTimeout,
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cache = cachemanager.NewInMemoryCacheManager[string, *compiled]("onig-patterns", e.cacheTTL, cachemanager.DefaultCleanupInterval)
	return e
}

// Compile translates and compiles one pattern. Results, including failures,
// are cached by source text.
func (e *Engine) Compile(source string) (*Regexp, error) {
	ctx := context.Background()
	if c, ok := e.cache.GetWithRefresh(ctx, source, e.cacheTTL); ok {
		return c.re, c.err
	}

	re, err := e.compile(source)
	e.cache.Set(ctx, source, &compiled{re: re, err: err}, e.cacheTTL)
	return re, err
}

func (e *Engine) compile(source string) (*Regexp, error) {
	translated, err := Translate(source)
	if err != nil {
		return nil, &PatternCompileError{Pattern: source, Err: err}
	}
	re, err := regexp2.Compile(translated, regexp2.Multiline)
	if err != nil {
		return nil, &PatternCompileError{Pattern: source, Err: err}
	}
	r := &Regexp{
		source:  source,
		timeout: e.timeout,
		groups:  re.GetGroupNumbers(),
		anchorG: strings.Contains(source, `\G`),
	}
	// Each search sets MatchTimeout from its deadline, so a machine is
	// owned by one search at a time. Recompiling an already valid pattern
	// cannot fail.
	r.machines.New = func() any {
		return regexp2.MustCompile(translated, regexp2.Multiline)
	}
	r.machines.Put(re)
	return r, nil
}

// Regexp is a compiled pattern. It is safe for concurrent use.
type Regexp struct {
	source   string
	timeout  time.Duration
	machines sync.Pool
	groups   []int
	anchorG  bool

	mu   sync.Mutex
	memo searchMemo
}

// searchMemo remembers the last search so repeated scans of one view from
// increasing positions can skip the engine.
type searchMemo struct {
	valid  bool
	viewID uint64
	start  int
	result []CaptureIndex
}

// String returns the original pattern source.
func (r *Regexp) String() string {
	return r.source
}

// FindAt returns the capture spans of the first match at or after the byte
// offset start, or nil when there is none. The slice may be shared with
// later calls and must not be modified.
//
// The search stops with ErrMatchTimeout at the engine's match timeout or
// at the deadline of ctx, whichever comes first.
func (r *Regexp) FindAt(ctx context.Context, v *textview.View, start int) ([]CaptureIndex, error) {
	if !r.anchorG {
		r.mu.Lock()
		m := r.memo
		r.mu.Unlock()
		if m.valid && m.viewID == v.ID() && m.start <= start && (m.result == nil || m.result[0].Start >= start) {
			return m.result, nil
		}
	}

	result, err := r.search(ctx, v, start)
	if err != nil {
		return nil, err
	}

	if !r.anchorG {
		r.mu.Lock()
		r.memo = searchMemo{valid: true, viewID: v.ID(), start: start, result: result}
		r.mu.Unlock()
	}
	return result, nil
}

// searchTimeout is the engine timeout shortened to what is left of the ctx
// deadline. Zero means unbounded.
func (r *Regexp) searchTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMatchTimeout, err)
	}
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, fmt.Errorf("%w: %w", ErrMatchTimeout, context.DeadlineExceeded)
		}
		if timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	return timeout, nil
}

func (r *Regexp) search(ctx context.Context, v *textview.View, start int) ([]CaptureIndex, error) {
	runeStart, err := v.UTF8ToRune(start)
	if err != nil {
		return nil, err
	}
	timeout, err := r.searchTimeout(ctx)
	if err != nil {
		return nil, err
	}

	re := r.machines.Get().(*regexp2.Regexp)
	if timeout > 0 {
		re.MatchTimeout = timeout
	} else {
		re.MatchTimeout = regexp2.DefaultMatchTimeout
	}
	m, err := re.FindRunesMatchStartingAt(v.Runes(), runeStart)
	r.machines.Put(re)
	if err != nil {
		log.Warn(log.CatRegex, "search aborted", "pattern", r.source, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMatchTimeout, err)
	}
	if m == nil {
		return nil, nil
	}

	size := 0
	for _, num := range r.groups {
		if num+1 > size {
			size = num + 1
		}
	}
	caps := make([]CaptureIndex, size)
	for i := range caps {
		caps[i] = CaptureIndex{Start: -1, End: -1}
	}
	for _, num := range r.groups {
		g := m.GroupByNumber(num)
		if g == nil || len(g.Captures) == 0 {
			continue
		}
		s, err := v.RuneToUTF8(g.Index)
		if err != nil {
			return nil, err
		}
		e, err := v.RuneToUTF8(g.Index + g.Length)
		if err != nil {
			return nil, err
		}
		caps[num] = CaptureIndex{Start: s, End: e}
	}
	return caps, nil
}

// CacheStats reports compiled-pattern cache usage.
func (e *Engine) CacheStats() cachemanager.Stats {
	return e.cache.Stats()
}
