package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rustsafe/internal/diag"
	"rustsafe/internal/diagfmt"
	"rustsafe/internal/driver"
	"rustsafe/internal/source"
	"rustsafe/internal/version"
)

var diagCmd = &cobra.Command{
	Use:   "diag [flags] <file.rs|directory>",
	Short: "Report unsafe blocks that have a safe rewrite",
	Long:  `Scan a Rust source file, or every *.rs file within a directory, and report each unsafe block the rewrite engine can convert`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDiagnose,
}

// init registers CLI flags for the diag command used by runDiagnose.
func init() {
	diagCmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	diagCmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	diagCmd.Flags().String("ui", "auto", "progress UI for directories (auto|on|off)")
	diagCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	diagCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	diagCmd.Flags().Bool("preview", false, "preview fix edits without modifying files")
	diagCmd.Flags().String("paths", "auto", "how file paths are shown (auto|absolute|relative|basename)")
	diagCmd.Flags().Bool("fullpath", false, "shorthand for --paths=absolute")
	diagCmd.Flags().Bool("fail-on-rewrite", false, "exit with status 2 when any rewrite is reported")
}

type diagFlags struct {
	format        string
	jobs          int
	ui            uiMode
	withNotes     bool
	suggest       bool
	preview       bool
	pathMode      source.PathMode
	failOnRewrite bool
}

func readDiagFlags(cmd *cobra.Command) (diagFlags, error) {
	var f diagFlags
	var err error

	if f.format, err = cmd.Flags().GetString("format"); err != nil {
		return f, fmt.Errorf("failed to get format flag: %w", err)
	}
	f.format = strings.ToLower(f.format)
	switch f.format {
	case "pretty", "short", "json", "sarif":
	default:
		return f, fmt.Errorf("unknown format: %s", f.format)
	}
	if f.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return f, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiStr, err := cmd.Flags().GetString("ui")
	if err != nil {
		return f, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if f.ui, err = readUIMode(uiStr); err != nil {
		return f, err
	}
	if f.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return f, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if f.suggest, err = cmd.Flags().GetBool("suggest"); err != nil {
		return f, fmt.Errorf("failed to get suggest flag: %w", err)
	}
	if f.preview, err = cmd.Flags().GetBool("preview"); err != nil {
		return f, fmt.Errorf("failed to get preview flag: %w", err)
	}
	pathStr, err := cmd.Flags().GetString("paths")
	if err != nil {
		return f, fmt.Errorf("failed to get paths flag: %w", err)
	}
	var ok bool
	if f.pathMode, ok = source.ParsePathMode(pathStr); !ok {
		return f, fmt.Errorf("unknown path mode: %s", pathStr)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return f, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if fullPath {
		f.pathMode = source.PathAbsolute
	}
	if f.failOnRewrite, err = cmd.Flags().GetBool("fail-on-rewrite"); err != nil {
		return f, fmt.Errorf("failed to get fail-on-rewrite flag: %w", err)
	}
	return f, nil
}

// runDiagnose scans the target, renders every diagnostic in the chosen
// format and maps the outcome to an exit status: 1 when any error was
// reported, 2 when --fail-on-rewrite is set and a rewrite was found.
func runDiagnose(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	target := args[0]
	flags, err := readDiagFlags(cmd)
	if err != nil {
		return err
	}

	st, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	cfg, err := loadConfig(cmd, target)
	if err != nil {
		return err
	}
	opts, err := scanOptions(cmd, cfg)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("jobs") {
		opts.Jobs = flags.jobs
	}

	fileSet, results, err := scanTarget(cmd, target, st.IsDir(), opts, shouldUseTUI(flags.ui, flags.format))
	if err != nil {
		return fmt.Errorf("diagnosis failed: %w", err)
	}

	bag := mergeResults(results)
	if err := renderDiagnostics(cmd, cmd.OutOrStdout(), bag, fileSet, flags); err != nil {
		return err
	}

	if opts.Timings {
		printScanTimings(cmd.ErrOrStderr(), results)
	}

	if bag.HasErrors() {
		return exitError{code: 1}
	}
	if flags.failOnRewrite {
		for i := range results {
			if results[i].Rewrites() > 0 {
				return exitError{code: 2}
			}
		}
	}
	return nil
}

// scanTarget scans a single file or a directory, with the progress UI when
// the target is a directory and the UI is enabled.
// scanTarget scans one file or a whole directory. withUI shows the progress
// model for directory scans.
func scanTarget(cmd *cobra.Command, target string, isDir bool, opts driver.Options, withUI bool) (*source.FileSet, []driver.FileResult, error) {
	if !isDir {
		fileSet := source.NewFileSet()
		res, err := driver.ScanFile(cmd.Context(), fileSet, target, opts)
		if err != nil {
			return nil, nil, err
		}
		return fileSet, []driver.FileResult{*res}, nil
	}
	if withUI {
		return runScanWithUI(cmd.Context(), "rustsafe "+cmd.Name(), target, opts)
	}
	return driver.ScanDir(cmd.Context(), target, opts)
}

func mergeResults(results []driver.FileResult) *diag.Bag {
	total := 0
	for i := range results {
		if results[i].Bag != nil {
			total += results[i].Bag.Len()
		}
	}
	bag := diag.NewBag(total)
	for i := range results {
		if results[i].Bag != nil {
			bag.Merge(results[i].Bag)
		}
	}
	bag.Sort()
	return bag
}

func renderDiagnostics(cmd *cobra.Command, out io.Writer, bag *diag.Bag, fileSet *source.FileSet, flags diagFlags) error {
	pathMode := flags.pathMode
	showFixes := flags.suggest || flags.preview

	switch flags.format {
	case "pretty":
		colored, err := useColor(cmd, os.Stdout)
		if err != nil {
			return err
		}
		diagfmt.Pretty(out, bag, fileSet, diagfmt.PrettyOpts{
			Color:       colored,
			Context:     2,
			PathMode:    pathMode,
			ShowNotes:   flags.withNotes,
			ShowFixes:   showFixes,
			ShowPreview: flags.preview,
		})
	case "short":
		diagfmt.Short(out, bag, fileSet, pathMode)
	}
	if n := bag.Dropped(); n > 0 && (flags.format == "pretty" || flags.format == "short") {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d more diagnostics not shown (raise --max-diagnostics)\n", n)
	}

	switch flags.format {
	case "json":
		err := diagfmt.JSON(out, bag, fileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     flags.withNotes,
			IncludeFixes:     showFixes,
			IncludePreviews:  flags.preview,
		})
		if err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	case "sarif":
		meta := diagfmt.SarifRunMeta{
			ToolName:       "rustsafe",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
		}
		if err := diagfmt.Sarif(out, bag, fileSet, meta); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	}
	return nil
}
