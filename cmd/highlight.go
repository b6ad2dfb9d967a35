package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/tmlight/internal/render"
)

var (
	hlScope           string
	hlTheme           string
	hlLineNumbers     bool
	hlPaintBackground bool
)

var highlightCmd = &cobra.Command{
	Use:   "highlight FILE",
	Short: "Print a file with syntax colours",
	Long: `Highlight FILE with the configured theme and print it as ANSI text.
Use - for stdin. The colour profile follows render.color_profile.

Examples:
  tmlight highlight main.go
  tmlight highlight --theme ~/themes/monokai.json -n main.go
  cat main.go | tmlight highlight --scope source.go -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := readLines(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		th, err := env.loadTheme(ctx, themePath(hlTheme))
		if err != nil {
			return err
		}
		g, err := env.grammarFor(ctx, args[0], hlScope, lines)
		if err != nil {
			return err
		}
		results, err := env.tokenize(ctx, g, lines)
		if err != nil {
			return err
		}

		if len(lines) == 0 {
			return nil
		}
		out := cmd.OutOrStdout()
		h := render.New(out, th, renderOptions(hlLineNumbers, hlPaintBackground))
		doc, err := h.Document(lines, results)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, doc)
		return err
	},
}

func init() {
	highlightCmd.Flags().StringVarP(&hlScope, "scope", "s", "", "grammar scope name (default: detect from file)")
	highlightCmd.Flags().StringVarP(&hlTheme, "theme", "t", "", "theme file (default: theme from config)")
	highlightCmd.Flags().BoolVarP(&hlLineNumbers, "line-numbers", "n", false, "show line numbers")
	highlightCmd.Flags().BoolVar(&hlPaintBackground, "background", false, "paint the theme background")
	rootCmd.AddCommand(highlightCmd)
}

// themePath prefers a --theme flag over the configured theme.
func themePath(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Theme
}

func renderOptions(lineNumbers, paintBackground bool) render.Options {
	return render.Options{
		ColorProfile:    cfg.Render.ColorProfile,
		LineNumbers:     lineNumbers || cfg.Render.LineNumbers,
		TabWidth:        cfg.Render.TabWidth,
		PaintBackground: paintBackground,
	}
}
