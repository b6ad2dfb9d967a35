package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/tmlight/internal/config"
	"github.com/zjrosen/tmlight/internal/log"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in the pager.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

// localConfigPath is checked before the user config.
const localConfigPath = ".tmlight/config.yaml"

var (
	version     = "dev"
	cfgFile     string
	cfg         config.Config
	verbose     bool
	grammarDirs []string
	budget      time.Duration
	logCleanup  func()
)

var rootCmd = &cobra.Command{
	Use:   "tmlight",
	Short: "TextMate grammar tokenizer and highlighter",
	Long: `tmlight tokenizes source files with TextMate grammars and renders them
with TextMate or VS Code themes.

Grammars are read from the configured grammar directories. The grammar for a
file is chosen by --scope, then by file extension, then by first line.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCleanup != nil {
			logCleanup()
			logCleanup = nil
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .tmlight/config.yaml, then ~/.config/tmlight/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"log debug output to stderr")
	rootCmd.PersistentFlags().StringSliceVarP(&grammarDirs, "grammar-dir", "g", nil,
		"grammar directory (repeatable, replaces grammar_dirs)")
	rootCmd.PersistentFlags().DurationVar(&budget, "budget", 0,
		"time allowed per line, e.g. 200ms (default from tokenize.line_budget)")
}

func initConfig() {
	viper.Reset()

	defaults := config.Defaults()
	viper.SetDefault("grammar_dirs", defaults.GrammarDirs)
	viper.SetDefault("theme", defaults.Theme)
	viper.SetDefault("default_scope", defaults.DefaultScope)
	viper.SetDefault("tokenize.line_budget", defaults.Tokenize.LineBudget)
	viper.SetDefault("tokenize.match_timeout", defaults.Tokenize.MatchTimeout)
	viper.SetDefault("cache.pattern_ttl", defaults.Cache.PatternTTL)
	viper.SetDefault("cache.grammar_ttl", defaults.Cache.GrammarTTL)
	viper.SetDefault("cache.dynamic_ttl", defaults.Cache.DynamicTTL)
	viper.SetDefault("render.color_profile", defaults.Render.ColorProfile)
	viper.SetDefault("render.line_numbers", defaults.Render.LineNumbers)
	viper.SetDefault("render.tab_width", defaults.Render.TabWidth)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	viper.SetDefault("log_file", defaults.LogFile)
	viper.SetDefault("log_level", defaults.LogLevel)

	// TMLIGHT_TOKENIZE_LINE_BUDGET=2s overrides tokenize.line_budget.
	viper.SetEnvPrefix("TMLIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .tmlight/config.yaml (current directory)
		// 2. ~/.config/tmlight/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			viper.AddConfigPath(config.DefaultConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing config is fine; defaults apply until `config init`.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "tmlight: reading config: %v\n", err)
		}
	}

	cfg = config.Config{}
	_ = viper.Unmarshal(&cfg)
}

// setup applies flag overrides, validates the config and starts logging.
func setup(cmd *cobra.Command, _ []string) error {
	if len(grammarDirs) > 0 {
		cfg.GrammarDirs = grammarDirs
	}
	if cmd.Flags().Changed("budget") {
		cfg.Tokenize.LineBudget = budget
	}
	for i, dir := range cfg.GrammarDirs {
		cfg.GrammarDirs[i] = config.ExpandHome(dir)
	}
	cfg.Theme = config.ExpandHome(cfg.Theme)
	cfg.LogFile = config.ExpandHome(cfg.LogFile)
	cfg.Tracing.FilePath = config.ExpandHome(cfg.Tracing.FilePath)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := log.ParseLevel(cfg.LogLevel)
	if verbose {
		level = log.LevelDebug
	}
	if cfg.LogFile != "" {
		cleanup, err := log.Init(cfg.LogFile, level)
		if err != nil {
			return err
		}
		logCleanup = cleanup
	} else {
		log.InitWriter(cmd.ErrOrStderr(), level)
	}
	log.Debug(log.CatConfig, "Configuration loaded", "file", viper.ConfigFileUsed(), "grammar_dirs", strings.Join(cfg.GrammarDirs, ","))
	return nil
}

// configPath returns the file config subcommands edit: --config, the
// loaded file, or the user config.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(config.DefaultConfigDir(), "config.yaml")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
