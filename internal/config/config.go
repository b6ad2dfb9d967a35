// Package config provides configuration types and defaults for tmlight.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/internal/tracing"
)

// Config holds all configuration options for tmlight.
type Config struct {
	// GrammarDirs are scanned for *.tmLanguage.json and *.tmLanguage.yaml.
	GrammarDirs []string `mapstructure:"grammar_dirs"`
	// Theme is the path of a JSON or YAML theme file. Empty uses the
	// built-in fallback colours.
	Theme string `mapstructure:"theme"`
	// DefaultScope is used when a file matches no grammar.
	DefaultScope string         `mapstructure:"default_scope"`
	Tokenize     TokenizeConfig `mapstructure:"tokenize"`
	Cache        CacheConfig    `mapstructure:"cache"`
	Render       RenderConfig   `mapstructure:"render"`
	Watch        WatchConfig    `mapstructure:"watch"`
	Tracing      tracing.Config `mapstructure:"tracing"`
	LogFile      string         `mapstructure:"log_file"`
	// LogLevel is debug, info, warn or error. --verbose forces debug.
	LogLevel string `mapstructure:"log_level"`
}

// TokenizeConfig bounds tokenization time.
type TokenizeConfig struct {
	// LineBudget is the time allowed per line; 0 disables it.
	LineBudget time.Duration `mapstructure:"line_budget"`
	// MatchTimeout bounds a single regex search; 0 disables it.
	MatchTimeout time.Duration `mapstructure:"match_timeout"`
}

// CacheConfig holds cache lifetimes.
type CacheConfig struct {
	PatternTTL time.Duration `mapstructure:"pattern_ttl"`
	GrammarTTL time.Duration `mapstructure:"grammar_ttl"`
	DynamicTTL time.Duration `mapstructure:"dynamic_ttl"`
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	// ColorProfile is auto, truecolor, ansi256, ansi or none.
	ColorProfile string `mapstructure:"color_profile"`
	LineNumbers  bool   `mapstructure:"line_numbers"`
	TabWidth     int    `mapstructure:"tab_width"`
}

// WatchConfig controls view --watch.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// ValidLogLevels lists the accepted log_level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// ValidColorProfiles lists the accepted render.color_profile values.
var ValidColorProfiles = []string{"auto", "truecolor", "ansi256", "ansi", "none"}

// DefaultConfigDir returns ~/.config/tmlight, or "" without a home dir.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tmlight")
}

// DefaultTracesFilePath returns ~/.config/tmlight/traces/traces.jsonl.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Defaults returns a Config with default values.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	tc.FilePath = DefaultTracesFilePath()

	var grammarDirs []string
	if dir := DefaultConfigDir(); dir != "" {
		grammarDirs = []string{filepath.Join(dir, "grammars")}
	}
	return Config{
		GrammarDirs:  grammarDirs,
		DefaultScope: "",
		Tokenize: TokenizeConfig{
			LineBudget:   time.Second,
			MatchTimeout: 500 * time.Millisecond,
		},
		Cache: CacheConfig{
			PatternTTL: 30 * time.Minute,
			GrammarTTL: 30 * time.Minute,
			DynamicTTL: 5 * time.Minute,
		},
		Render: RenderConfig{
			ColorProfile: "auto",
			LineNumbers:  false,
			TabWidth:     4,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Tracing:  tc,
		LogLevel: "warn",
	}
}

// Validate checks the configuration for errors. Zero values are valid and
// fall back to defaults where they are used.
func (c Config) Validate() error {
	if c.Tokenize.LineBudget < 0 {
		return fmt.Errorf("tokenize.line_budget must not be negative, got %s", c.Tokenize.LineBudget)
	}
	if c.Tokenize.MatchTimeout < 0 {
		return fmt.Errorf("tokenize.match_timeout must not be negative, got %s", c.Tokenize.MatchTimeout)
	}
	for name, d := range map[string]time.Duration{
		"cache.pattern_ttl": c.Cache.PatternTTL,
		"cache.grammar_ttl": c.Cache.GrammarTTL,
		"cache.dynamic_ttl": c.Cache.DynamicTTL,
		"watch.debounce":    c.Watch.Debounce,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	if c.LogLevel != "" && !contains(ValidLogLevels, c.LogLevel) {
		return fmt.Errorf("log_level must be one of %v, got %q", ValidLogLevels, c.LogLevel)
	}
	if err := ValidateRender(c.Render); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateRender checks render options.
func ValidateRender(r RenderConfig) error {
	if r.ColorProfile != "" {
		if !contains(ValidColorProfiles, r.ColorProfile) {
			return fmt.Errorf("render.color_profile must be one of %v, got %q", ValidColorProfiles, r.ColorProfile)
		}
	}
	if r.TabWidth < 0 {
		return fmt.Errorf("render.tab_width must not be negative, got %d", r.TabWidth)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}
	switch tc.Exporter {
	case "", tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
	}
	if tc.Enabled {
		if tc.Exporter == tracing.ExporterFile && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tc.Exporter == tracing.ExporterOTLP && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# tmlight configuration

# Directories scanned for *.tmLanguage.json / *.tmLanguage.yaml grammars
grammar_dirs:
  - ~/.config/tmlight/grammars

# Theme file (JSON or YAML, VS Code or tmTheme-style settings)
# theme: ~/.config/tmlight/themes/dark.json

# Scope used when no grammar claims a file by extension or first line
# default_scope: source.go

tokenize:
  line_budget: 1s        # Time allowed per line before it is cut short (0 = unlimited)
  match_timeout: 500ms   # Limit for a single regex search (0 = unlimited)

cache:
  pattern_ttl: 30m   # Compiled regex lifetime after last use
  grammar_ttl: 30m   # Loaded grammar lifetime after last use
  dynamic_ttl: 5m    # Back-referenced end patterns

render:
  color_profile: auto   # auto, truecolor, ansi256, ansi, none
  line_numbers: false
  tab_width: 4

watch:
  debounce: 200ms   # Quiet period before view --watch reloads

# Tracing of grammar loads and line tokenization
# tracing:
#   enabled: false
#   exporter: file                 # none, file, stdout, otlp
#   file_path: ~/.config/tmlight/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

# Log file; without it entries at log_level and above go to stderr
# log_file: /tmp/tmlight.log
log_level: warn   # debug, info, warn, error (--verbose forces debug)
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments, creating the parent directory.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
