package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zjrosen/tmlight/internal/presentation"
)

var (
	grJSON     bool
	grInjected bool
)

var grammarsCmd = &cobra.Command{
	Use:   "grammars",
	Short: "List the grammars found in the grammar directories",
	Long: `List every grammar indexed from the grammar directories with its scope
name, file types and source file.

Examples:
  # Table of grammars
  tmlight grammars

  # Only grammars that inject into others
  tmlight grammars --injections

  # Parse specific fields with jq
  tmlight grammars --json | jq '.[].scope_name'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		entries := env.dir.Entries()
		if grInjected {
			filtered := entries[:0]
			for _, e := range entries {
				if e.InjectionSelector != "" {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}
		dtos := presentation.FromEntries(entries)

		if grJSON {
			return presentation.NewFormatter(cmd.OutOrStdout()).FormatGrammars(dtos)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCOPE\tFILE TYPES\tINJECTS\tPATH")
		for _, d := range dtos {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ScopeName, orDash(strings.Join(d.FileTypes, ",")), orDash(d.InjectionSelector), d.Path)
		}
		return tw.Flush()
	},
}

func init() {
	grammarsCmd.Flags().BoolVar(&grJSON, "json", false, "print JSON")
	grammarsCmd.Flags().BoolVar(&grInjected, "injections", false, "only grammars with an injectionSelector")
	rootCmd.AddCommand(grammarsCmd)
}
