package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/internal/pager"
	"github.com/zjrosen/tmlight/internal/render"
	"github.com/zjrosen/tmlight/internal/watcher"
	"github.com/zjrosen/tmlight/theme"
)

var (
	viewScope       string
	viewTheme       string
	viewWatch       bool
	viewLineNumbers bool
)

var viewCmd = &cobra.Command{
	Use:   "view FILE",
	Short: "Open a highlighted file in a pager",
	Long: `Open FILE highlighted in a scrollable pager. With --watch the file, its
theme and the grammar files are watched and the view re-highlights when
any of them changes.

Logs go to log_file, or to tmlight.log in the temp directory with --verbose,
since the terminal belongs to the pager.`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringVarP(&viewScope, "scope", "s", "", "grammar scope name (default: detect from file)")
	viewCmd.Flags().StringVarP(&viewTheme, "theme", "t", "", "theme file (default: theme from config)")
	viewCmd.Flags().BoolVarP(&viewWatch, "watch", "w", false, "re-highlight when the file, theme or grammars change")
	viewCmd.Flags().BoolVarP(&viewLineNumbers, "line-numbers", "n", false, "show line numbers")
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	file := args[0]
	if file == "-" {
		return fmt.Errorf("view needs a file; use highlight for stdin")
	}
	// stderr belongs to the pager; warnings still reach its status line.
	if verbose || cfg.LogFile != "" {
		logPath := cfg.LogFile
		if logPath == "" {
			logPath = filepath.Join(os.TempDir(), "tmlight.log")
		}
		cleanup, err := log.InitWithTeaLog(logPath, "tmlight")
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer cleanup()
	} else {
		log.InitWriter(io.Discard, log.ParseLevel(cfg.LogLevel))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	lines, err := readLines(nil, file)
	if err != nil {
		return err
	}
	scope, err := env.scopeFor(file, viewScope, lines)
	if err != nil {
		return err
	}
	themeFile := themePath(viewTheme)
	th, err := env.loadTheme(ctx, themeFile)
	if err != nil {
		return err
	}
	var current atomic.Pointer[theme.Theme]
	current.Store(th)

	opts := renderOptions(viewLineNumbers, true)
	renderDoc := func(ctx context.Context) (string, error) {
		lines, err := readLines(nil, file)
		if err != nil {
			return "", err
		}
		g, err := env.grammarFor(ctx, file, scope, lines)
		if err != nil {
			return "", err
		}
		results, err := env.tokenize(ctx, g, lines)
		if err != nil {
			return "", err
		}
		return render.New(os.Stdout, current.Load(), opts).Document(lines, results)
	}

	pagerOpts := pager.Options{
		Title:    fmt.Sprintf("%s  %s", file, scope),
		Render:   renderDoc,
		Grammars: env.registry.Reloads,
		Logs:     log.Subscribe,
	}

	if viewWatch {
		grammars := make(map[string]string)
		for _, e := range env.dir.Entries() {
			grammars[e.Path] = e.ScopeName
		}
		reloader := pager.NewReloader(pager.ReloaderOptions{
			Registry: env.registry,
			Grammars: grammars,
			Document: file,
			Theme:    themeFile,
			ReloadTheme: func() error {
				th, err := env.loadTheme(ctx, themeFile)
				if err != nil {
					return err
				}
				current.Store(th)
				return nil
			},
		})
		w, err := watcher.New(watcher.Config{Files: reloader.Files(), DebounceDur: cfg.Watch.Debounce})
		if err != nil {
			return err
		}
		changes, err := w.Start()
		if err != nil {
			return fmt.Errorf("watching files: %w", err)
		}
		defer func() { _ = w.Stop() }()
		go reloader.Run(ctx, changes)
		pagerOpts.Reloads = reloader.Subscribe
	}

	model := pager.New(ctx, pagerOpts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running pager: %w", err)
	}
	return nil
}
