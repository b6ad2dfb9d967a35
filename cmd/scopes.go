package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/tmlight/internal/presentation"
	"github.com/zjrosen/tmlight/textview"
)

var (
	scScope  string
	scTheme  string
	scLine   int
	scColumn int
	scJSON   bool
)

var scopesCmd = &cobra.Command{
	Use:   "scopes FILE",
	Short: "Show the scopes and style at a position",
	Long: `Show the scope chain of the token at --line and --column, and the style
the theme resolves for it. Line and column are 1-based; the column counts
characters.

Examples:
  tmlight scopes main.go --line 12 --column 5
  tmlight scopes main.go -l 12 -C 5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := readLines(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		if scLine < 1 || scLine > len(lines) {
			return fmt.Errorf("--line %d out of range 1..%d", scLine, len(lines))
		}
		line := lines[scLine-1]
		v := textview.New(line)
		if scColumn < 1 || scColumn > v.RuneLength()+1 {
			return fmt.Errorf("--column %d out of range 1..%d", scColumn, v.RuneLength()+1)
		}
		byteOff, err := v.RuneToUTF8(scColumn - 1)
		if err != nil {
			return err
		}
		col16, err := v.UTF8ToUTF16(byteOff)
		if err != nil {
			return err
		}

		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		th, err := env.loadTheme(ctx, themePath(scTheme))
		if err != nil {
			return err
		}
		g, err := env.grammarFor(ctx, args[0], scScope, lines)
		if err != nil {
			return err
		}
		results, err := env.tokenize(ctx, g, lines[:scLine])
		if err != nil {
			return err
		}

		tokens := results[scLine-1].Tokens
		tok := tokens[len(tokens)-1]
		for _, t := range tokens {
			if col16 >= t.StartIndex && col16 < t.EndIndex {
				tok = t
				break
			}
		}
		tokDTO, err := presentation.FromToken(v, tok)
		if err != nil {
			return err
		}
		info := presentation.ScopeInfoDTO{
			Line:   scLine,
			Column: scColumn,
			Token:  tokDTO,
			Style:  presentation.FromStyle(th.Match(tok.Scopes)),
		}

		out := cmd.OutOrStdout()
		if scJSON {
			return presentation.NewFormatter(out).FormatScopeInfo(info)
		}
		fmt.Fprintf(out, "token  %q [%d, %d)\n", info.Token.Text, info.Token.Start, info.Token.End)
		fmt.Fprintln(out, "scopes")
		for i, s := range info.Token.Scopes {
			fmt.Fprintf(out, "  %s%s\n", strings.Repeat("  ", i), s)
		}
		fmt.Fprintf(out, "style  fg=%s bg=%s", orDash(info.Style.Foreground), orDash(info.Style.Background))
		if info.Style.FontStyle != "" {
			fmt.Fprintf(out, " font=%s", info.Style.FontStyle)
		}
		_, err = fmt.Fprintln(out)
		return err
	},
}

func init() {
	scopesCmd.Flags().StringVarP(&scScope, "scope", "s", "", "grammar scope name (default: detect from file)")
	scopesCmd.Flags().StringVarP(&scTheme, "theme", "t", "", "theme file (default: theme from config)")
	scopesCmd.Flags().IntVarP(&scLine, "line", "l", 1, "1-based line")
	scopesCmd.Flags().IntVarP(&scColumn, "column", "C", 1, "1-based column in characters")
	scopesCmd.Flags().BoolVar(&scJSON, "json", false, "print JSON")
	rootCmd.AddCommand(scopesCmd)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
