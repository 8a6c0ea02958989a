package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rustsafe/internal/diag"
	"rustsafe/internal/diagfmt"
	"rustsafe/internal/source"
	"rustsafe/internal/syntax"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file.rs>",
	Short: "Parse a Rust source file and print its syntax tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("format", "tree", "output format (tree|sexp)")
	parseCmd.Flags().Bool("anonymous", false, "include anonymous tokens in tree output")
	parseCmd.Flags().Bool("text", false, "append leaf text in tree output")
	parseCmd.Flags().Int("depth", 0, "maximum depth for tree output (0=unlimited)")
}

func runParse(cmd *cobra.Command, args []string) error {
	path := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	anonymous, err := cmd.Flags().GetBool("anonymous")
	if err != nil {
		return fmt.Errorf("failed to get anonymous flag: %w", err)
	}
	withText, err := cmd.Flags().GetBool("text")
	if err != nil {
		return fmt.Errorf("failed to get text flag: %w", err)
	}
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return fmt.Errorf("failed to get depth flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if format != "tree" && format != "sexp" {
		return fmt.Errorf("unknown format: %s", format)
	}

	fileSet := source.NewFileSet()
	fileID, err := fileSet.Load(path)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	file := fileSet.Get(fileID)

	tree, err := syntax.Parse(cmd.Context(), file)
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	defer tree.Close()

	// синтаксические ошибки идут в stderr, дерево всё равно печатаем
	if tree.HasErrors() && !quiet {
		bag := diag.NewBag(len(tree.ErrorNodes()))
		for _, n := range tree.ErrorNodes() {
			bag.Add(diag.New(diag.SevWarning, diag.ParseSyntaxError, n.Span(), "syntax error"))
		}
		colored, err := useColor(cmd, os.Stderr)
		if err != nil {
			return err
		}
		diagfmt.Pretty(cmd.ErrOrStderr(), bag, fileSet, diagfmt.PrettyOpts{Color: colored, Context: 1})
	}

	out := cmd.OutOrStdout()
	if format == "sexp" {
		_, err = fmt.Fprintln(out, tree.Root().String())
		return err
	}
	return syntax.Dump(out, tree.Root(), syntax.DumpOptions{
		Anonymous: anonymous,
		Text:      withText,
		MaxDepth:  depth,
	})
}
