package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/tmlight/internal/presentation"
	"github.com/zjrosen/tmlight/internal/render"
)

var (
	tokScope     string
	tokFormat    string
	tokTextWidth int
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize FILE",
	Short: "Print the tokens and scopes of a file",
	Long: `Tokenize FILE line by line and print every token with its scope chain.
Offsets are UTF-16 code units, as reported by the tokenizer. Use - for stdin.

Examples:
  # Token table
  tmlight tokenize main.go

  # Force a grammar
  tmlight tokenize --scope source.go snippet.txt

  # JSON, with byte offsets as well
  tmlight tokenize --format json main.go | jq '.[0].tokens'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokFormat != "table" && tokFormat != "json" {
			return fmt.Errorf("--format must be table or json, got %q", tokFormat)
		}
		lines, err := readLines(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		g, err := env.grammarFor(cmd.Context(), args[0], tokScope, lines)
		if err != nil {
			return err
		}
		results, err := env.tokenize(cmd.Context(), g, lines)
		if err != nil {
			return err
		}

		if tokFormat == "json" {
			dtos, err := presentation.FromResults(lines, results)
			if err != nil {
				return err
			}
			return presentation.NewFormatter(cmd.OutOrStdout()).FormatLines(dtos)
		}
		return render.WriteTable(cmd.OutOrStdout(), lines, results, tokTextWidth)
	},
}

func init() {
	tokenizeCmd.Flags().StringVarP(&tokScope, "scope", "s", "", "grammar scope name (default: detect from file)")
	tokenizeCmd.Flags().StringVarP(&tokFormat, "format", "f", "table", "output format: table or json")
	tokenizeCmd.Flags().IntVar(&tokTextWidth, "text-width", render.DefaultTextWidth, "width of the token text column")
	rootCmd.AddCommand(tokenizeCmd)
}
