package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"rustsafe/internal/diag"
	"rustsafe/internal/diagfmt"
	"rustsafe/internal/driver"
	"rustsafe/internal/fix"
	"rustsafe/internal/source"
	"rustsafe/internal/syntax"
)

var errNoRewrite = errors.New("no rewrite applies at the cursor")

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [flags] <file.rs>",
	Short: "Rewrite the unsafe block under a cursor",
	Long: `Run the rewrite engine at a single cursor position. The rewritten file is
printed to stdout unless --write or --diff is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().Int("offset", -1, "cursor as a byte offset")
	rewriteCmd.Flags().String("pos", "", "cursor as LINE:COL (1-based, bytes)")
	rewriteCmd.Flags().Bool("write", false, "write the result back to the file")
	rewriteCmd.Flags().Bool("diff", false, "show the fix preview instead of the whole file")
}

// cursor is either a byte offset or a line/column pair.
type cursor struct {
	offset int
	pos    source.LineCol
	hasPos bool
}

func parseCursor(offset int, pos string) (cursor, error) {
	pos = strings.TrimSpace(pos)
	switch {
	case offset >= 0 && pos != "":
		return cursor{}, fmt.Errorf("--offset and --pos are mutually exclusive")
	case offset < 0 && pos == "":
		return cursor{}, fmt.Errorf("one of --offset or --pos is required")
	case offset >= 0:
		return cursor{offset: offset}, nil
	}

	lineStr, colStr, ok := strings.Cut(pos, ":")
	if !ok {
		return cursor{}, fmt.Errorf("invalid --pos %q (expected LINE:COL)", pos)
	}
	line, err := strconv.ParseUint(lineStr, 10, 32)
	if err != nil || line == 0 {
		return cursor{}, fmt.Errorf("invalid line in --pos %q", pos)
	}
	col, err := strconv.ParseUint(colStr, 10, 32)
	if err != nil || col == 0 {
		return cursor{}, fmt.Errorf("invalid column in --pos %q", pos)
	}
	return cursor{pos: source.LineCol{Line: uint32(line), Col: uint32(col)}, hasPos: true}, nil
}

func (c cursor) resolve(file *source.File) (uint32, error) {
	if c.hasPos {
		if int(c.pos.Line) > len(file.LineIdx)+1 {
			return 0, fmt.Errorf("line %d is past the end of %s", c.pos.Line, file.Path)
		}
		return file.Offset(c.pos), nil
	}
	if c.offset > len(file.Content) {
		return 0, fmt.Errorf("offset %d is past the end of %s (%d bytes)", c.offset, file.Path, len(file.Content))
	}
	return safecast.Conv[uint32](c.offset)
}

func runRewrite(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	path := args[0]

	offset, err := cmd.Flags().GetInt("offset")
	if err != nil {
		return fmt.Errorf("failed to get offset flag: %w", err)
	}
	posFlag, err := cmd.Flags().GetString("pos")
	if err != nil {
		return fmt.Errorf("failed to get pos flag: %w", err)
	}
	write, err := cmd.Flags().GetBool("write")
	if err != nil {
		return fmt.Errorf("failed to get write flag: %w", err)
	}
	showDiff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return fmt.Errorf("failed to get diff flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	cur, err := parseCursor(offset, posFlag)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, path)
	if err != nil {
		return err
	}
	opts, err := driver.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	fileSet := source.NewFileSet()
	fileID, err := fileSet.Load(path)
	if err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}
	file := fileSet.Get(fileID)

	off, err := cur.resolve(file)
	if err != nil {
		return err
	}

	tree, err := syntax.Parse(cmd.Context(), file)
	if err != nil {
		return fmt.Errorf("rewrite: parse: %w", err)
	}
	defer tree.Close()

	item, ok := driver.AssistAt(cmd.Context(), tree, off, opts.Disabled)
	if !ok {
		lc := file.LineCol(off)
		return fmt.Errorf("%w (%s:%d:%d)", errNoRewrite, path, lc.Line, lc.Col)
	}

	built, err := item.Fix().Resolve(diag.FixBuildContext{FileSet: fileSet})
	if err != nil {
		return fmt.Errorf("rewrite: build fix: %w", err)
	}
	out, err := fix.ApplyEdits(file.Content, built.Edits)
	if err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}

	if showDiff {
		colored, err := useColor(cmd, os.Stdout)
		if err != nil {
			return err
		}
		bag := diag.NewBag(1)
		bag.Add(diag.New(diag.SevInfo, item.Code, item.Target, item.Label).WithFixSuggestion(built))
		diagfmt.Pretty(cmd.OutOrStdout(), bag, fileSet, diagfmt.PrettyOpts{
			Color:       colored,
			Context:     1,
			ShowFixes:   true,
			ShowPreview: true,
		})
	}

	if write {
		if err := fix.WriteFile(file, out); err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "rewrote %s: %s\n", path, item.Label)
		}
		return nil
	}
	if !showDiff {
		_, err = cmd.OutOrStdout().Write(out)
	}
	return err
}
