package theme

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/zjrosen/tmlight/internal/cachemanager"
	"github.com/zjrosen/tmlight/internal/log"
)

const (
	defaultForeground = "#000000"
	defaultBackground = "#FFFFFF"
)

var (
	// ErrIncludeCycle is returned when theme includes form a loop.
	ErrIncludeCycle = errors.New("theme include cycle")
	// ErrUnresolvedInclude is returned when a theme includes another and
	// no resolver is configured.
	ErrUnresolvedInclude = errors.New("theme include cannot be resolved")
)

// Style is the resolved look of a token. Colours are normalised #RRGGBB or
// #RRGGBBAA.
type Style struct {
	Foreground string
	Background string
	FontStyle  FontStyle
}

// IncludeResolver returns the theme named by an include.
type IncludeResolver func(name string) (*RawTheme, error)

type loadOptions struct {
	resolve  IncludeResolver
	colorMap *ColorMap
}

// Option configures Load.
type Option func(*loadOptions)

// WithIncludeResolver resolves "include" references.
func WithIncludeResolver(fn IncludeResolver) Option {
	return func(o *loadOptions) {
		o.resolve = fn
	}
}

// WithColorMap shares a colour map between themes.
func WithColorMap(m *ColorMap) Option {
	return func(o *loadOptions) {
		o.colorMap = m
	}
}

// Theme is an immutable set of rules indexed by scope segments.
type Theme struct {
	name      string
	colors    *ColorMap
	defaults  trieRule
	root      *trieNode
	ruleCount int
	lookups   cachemanager.CacheManager[string, []*trieRule]
}

// parsedRule is one selector of a setting. parentScopes are innermost
// first.
type parsedRule struct {
	scope        string
	parentScopes []string
	index        int
	fontStyle    FontStyle
	foreground   string
	background   string
}

// Load builds a theme. Includes are resolved first; their rules lose to
// the including theme's rules of equal specificity.
func Load(raw *RawTheme, opts ...Option) (*Theme, error) {
	if raw == nil {
		return nil, errors.New("nil theme")
	}
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.colorMap == nil {
		o.colorMap = NewColorMap()
	}

	settings, colors, err := flatten(raw, o.resolve, nil)
	if err != nil {
		return nil, err
	}

	rules := parseSettings(settings)
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.scope != b.scope {
			return a.scope < b.scope
		}
		if c := compareScopeLists(a.parentScopes, b.parentScopes); c != 0 {
			return c < 0
		}
		return a.index < b.index
	})

	defFont := None
	defFg := defaultForeground
	defBg := defaultBackground
	if c, err := NormalizeColor(colors["editor.foreground"]); err == nil {
		defFg = c
	}
	if c, err := NormalizeColor(colors["editor.background"]); err == nil {
		defBg = c
	}
	for len(rules) > 0 && rules[0].scope == "" {
		r := rules[0]
		rules = rules[1:]
		if r.fontStyle != NotSet {
			defFont = r.fontStyle
		}
		if r.foreground != "" {
			defFg = r.foreground
		}
		if r.background != "" {
			defBg = r.background
		}
	}

	t := &Theme{
		name:   raw.Name,
		colors: o.colorMap,
		defaults: trieRule{
			fontStyle:  defFont,
			foreground: o.colorMap.ID(defFg),
			background: o.colorMap.ID(defBg),
		},
		root:      newTrieNode(&trieRule{fontStyle: NotSet}, nil),
		ruleCount: len(rules),
		lookups: cachemanager.NewInMemoryCacheManager[string, []*trieRule](
			"theme:"+raw.Name, cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval),
	}
	for _, r := range rules {
		t.root.insert(0, r.scope, r.parentScopes, r.fontStyle, t.colorID(r.foreground), t.colorID(r.background))
	}

	log.Debug(log.CatTheme, "theme loaded", "name", raw.Name, "rules", len(rules))
	return t, nil
}

func (t *Theme) colorID(c string) int {
	if c == "" {
		return 0
	}
	return t.colors.ID(c)
}

// flatten returns the settings of raw preceded by those of its includes.
func flatten(raw *RawTheme, resolve IncludeResolver, chain []string) ([]RawSetting, map[string]string, error) {
	var settings []RawSetting
	colors := make(map[string]string)

	if raw.Include != "" {
		if slices.Contains(chain, raw.Include) {
			return nil, nil, fmt.Errorf("%w: %s", ErrIncludeCycle, strings.Join(append(chain, raw.Include), " -> "))
		}
		if resolve == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnresolvedInclude, raw.Include)
		}
		included, err := resolve(raw.Include)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving theme include %s: %w", raw.Include, err)
		}
		if included == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnresolvedInclude, raw.Include)
		}
		incSettings, incColors, err := flatten(included, resolve, append(chain, raw.Include))
		if err != nil {
			return nil, nil, err
		}
		settings = append(settings, incSettings...)
		for k, v := range incColors {
			colors[k] = v
		}
	}

	settings = append(settings, raw.rules()...)
	for k, v := range raw.Colors {
		colors[k] = v
	}
	return settings, colors, nil
}

func parseSettings(settings []RawSetting) []parsedRule {
	var rules []parsedRule
	for i, s := range settings {
		fontStyle := NotSet
		if s.Settings.FontStyle != nil {
			fontStyle = parseFontStyle(*s.Settings.FontStyle)
		}
		fg := validColor(s.Settings.Foreground, s.Name)
		bg := validColor(s.Settings.Background, s.Name)

		scopes := []string(s.Scope)
		if len(scopes) == 0 {
			scopes = []string{""}
		}
		for _, sel := range scopes {
			segments := strings.Fields(sel)
			scope := ""
			var parents []string
			if len(segments) > 0 {
				scope = segments[len(segments)-1]
				parents = make([]string, 0, len(segments)-1)
				for j := len(segments) - 2; j >= 0; j-- {
					parents = append(parents, segments[j])
				}
			}
			rules = append(rules, parsedRule{
				scope:        scope,
				parentScopes: parents,
				index:        i,
				fontStyle:    fontStyle,
				foreground:   fg,
				background:   bg,
			})
		}
	}
	return rules
}

func validColor(c, setting string) string {
	if c == "" {
		return ""
	}
	norm, err := NormalizeColor(c)
	if err != nil {
		log.Warn(log.CatTheme, "ignoring invalid color", "setting", setting, "error", err)
		return ""
	}
	return norm
}

func compareScopeLists(a, b []string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	for i := range a {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Name returns the theme name.
func (t *Theme) Name() string {
	return t.name
}

// ColorMap returns the colour interner of the theme.
func (t *Theme) ColorMap() *ColorMap {
	return t.colors
}

// Defaults returns the style of text no rule applies to.
func (t *Theme) Defaults() Style {
	return t.style(&t.defaults)
}

// Match resolves a scope chain, outermost first. Each prefix of the chain
// is matched in turn and the channels its best rule sets override the
// result so far, starting from the defaults.
func (t *Theme) Match(scopes []string) Style {
	acc := t.defaults
	parents := make([]string, 0, len(scopes))
	for i, scope := range scopes {
		r := t.matchPath(scope, parents)
		if i < len(scopes)-1 {
			parents = append([]string{scope}, parents...)
		}
		if r == nil {
			continue
		}
		if r.fontStyle != NotSet {
			acc.fontStyle = r.fontStyle
		}
		if r.foreground != 0 {
			acc.foreground = r.foreground
		}
		if r.background != 0 {
			acc.background = r.background
		}
	}
	return t.style(&acc)
}

// MatchScope returns the channels set by the best rule for scope inside
// parents (outermost first). Unset channels are empty. ok is false when no
// rule sets anything.
func (t *Theme) MatchScope(scope string, parents []string) (Style, bool) {
	inner := make([]string, len(parents))
	for i, p := range parents {
		inner[len(parents)-1-i] = p
	}
	r := t.matchPath(scope, inner)
	if r == nil || (r.fontStyle == NotSet && r.foreground == 0 && r.background == 0) {
		return Style{FontStyle: NotSet}, false
	}
	return t.style(r), true
}

// matchPath returns the most specific rule for scope whose parent scopes
// are satisfied by parents, innermost first.
func (t *Theme) matchPath(scope string, parents []string) *trieRule {
	for _, r := range t.candidates(scope) {
		if pathMatchesParents(parents, r.parentScopes) {
			return r
		}
	}
	return nil
}

func (t *Theme) candidates(scope string) []*trieRule {
	ctx := context.Background()
	if rules, ok := t.lookups.Get(ctx, scope); ok {
		return rules
	}
	rules := t.root.match(scope)
	t.lookups.Set(ctx, scope, rules, cachemanager.DefaultExpiration)
	return rules
}

func (t *Theme) style(r *trieRule) Style {
	return Style{
		Foreground: t.colors.Color(r.foreground),
		Background: t.colors.Color(r.background),
		FontStyle:  r.fontStyle,
	}
}
