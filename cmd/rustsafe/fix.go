package main

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"rustsafe/internal/fix"
	"rustsafe/internal/observ"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] <file.rs|directory>",
	Short: "Apply safe rewrites to a source file or directory",
	Long:  "Scan for rewritable unsafe blocks and apply their fixes according to the chosen strategy.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().Bool("all", false, "apply every non-conflicting rewrite")
	fixCmd.Flags().Bool("once", false, "apply the first available rewrite (default)")
	fixCmd.Flags().String("id", "", "apply the rewrite with a specific identifier")
	fixCmd.Flags().Bool("dry-run", false, "print the rewritten files instead of writing them")
	fixCmd.Flags().String("ui", "off", "progress UI for directories (auto|on|off)")
}

func readApplyOptions(cmd *cobra.Command) (fix.ApplyOptions, error) {
	var (
		opts              fix.ApplyOptions
		applyAll, applyOn bool
		err               error
	)
	if applyAll, err = cmd.Flags().GetBool("all"); err != nil {
		return opts, fmt.Errorf("failed to get all flag: %w", err)
	}
	if applyOn, err = cmd.Flags().GetBool("once"); err != nil {
		return opts, fmt.Errorf("failed to get once flag: %w", err)
	}
	if opts.TargetID, err = cmd.Flags().GetString("id"); err != nil {
		return opts, fmt.Errorf("failed to get id flag: %w", err)
	}
	if opts.DryRun, err = cmd.Flags().GetBool("dry-run"); err != nil {
		return opts, fmt.Errorf("failed to get dry-run flag: %w", err)
	}

	switch {
	case opts.TargetID != "" && (applyAll || applyOn):
		return opts, errors.New("--id cannot be combined with --all or --once")
	case applyAll && applyOn:
		return opts, errors.New("--all and --once are mutually exclusive")
	case opts.TargetID != "":
		opts.Mode = fix.ApplyModeID
	case applyAll:
		opts.Mode = fix.ApplyModeAll
	default:
		opts.Mode = fix.ApplyModeOnce
	}
	return opts, nil
}

func runFix(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	targetPath := args[0]
	applyOpts, err := readApplyOptions(cmd)
	if err != nil {
		return err
	}
	uiStr, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	ui, err := readUIMode(uiStr)
	if err != nil {
		return err
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	// id уникален только в пределах одного файла
	if info.IsDir() && applyOpts.TargetID != "" {
		return errors.New("fix: id can only be used with a single file")
	}

	cfg, err := loadConfig(cmd, targetPath)
	if err != nil {
		return err
	}
	opts, err := scanOptions(cmd, cfg)
	if err != nil {
		return err
	}

	fileSet, results, err := scanTarget(cmd, targetPath, info.IsDir(), opts, shouldUseTUI(ui, "pretty"))
	if err != nil {
		return fmt.Errorf("fix: scan failed: %w", err)
	}
	diagnostics := mergeResults(results).Items()

	timer := observ.NewTimer()
	stopApply := timer.Start("apply")
	res, applyErr := fix.Apply(fileSet, diagnostics, applyOpts)
	stopApply(fmt.Sprintf("%d diagnostics", len(diagnostics)))

	if opts.Timings {
		defer printScanTimings(cmd.ErrOrStderr(), results, timer.Report().Phases...)
	}
	if applyOpts.DryRun && res != nil {
		if err := printDryRun(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	}
	return handleApplyResult(cmd.OutOrStdout(), res, applyErr, applyOpts.DryRun)
}

func printDryRun(out io.Writer, res *fix.ApplyResult) error {
	w := &reportWriter{w: out}
	for _, change := range res.FileChanges {
		w.printf("=== %s ===\n", change.Path)
		w.write(change.Content)
	}
	return w.err
}

// reportWriter keeps the first write error and turns later writes into no-ops.
type reportWriter struct {
	w   io.Writer
	err error
}

func (r *reportWriter) printf(format string, args ...any) {
	if r.err == nil {
		_, r.err = fmt.Fprintf(r.w, format, args...)
	}
}

func (r *reportWriter) write(p []byte) {
	if r.err == nil {
		_, r.err = r.w.Write(p)
	}
}

func handleApplyResult(out io.Writer, res *fix.ApplyResult, applyErr error, dryRun bool) error {
	if res == nil {
		return applyErr
	}
	w := &reportWriter{w: out}

	if len(res.Applied) > 0 {
		verb := "Applied"
		if dryRun {
			verb = "Would apply"
		}
		w.printf("%s %d fix(es):\n", verb, len(res.Applied))
		for _, item := range res.Applied {
			w.printf("  %s [%s] %s: %s (%d edits, %s)\n",
				item.Code.ID(), item.ID, cmp.Or(item.PrimaryPath, "(unknown location)"),
				item.Title, item.EditCount, item.Applicability)
		}
	}
	if len(res.FileChanges) > 0 && !dryRun {
		w.printf("Updated files:\n")
		for _, change := range res.FileChanges {
			w.printf("  %s (%d edits)\n", change.Path, change.EditCount)
		}
	}
	if len(res.Skipped) > 0 {
		w.printf("Skipped fixes:\n")
		for _, skip := range res.Skipped {
			id := cmp.Or(skip.ID, "(unnamed)")
			if skip.Title != "" {
				w.printf("  %s [%s]: %s\n", skip.Title, id, skip.Reason)
			} else {
				w.printf("  [%s]: %s\n", id, skip.Reason)
			}
		}
	}

	switch {
	case w.err != nil:
		return w.err
	case errors.Is(applyErr, fix.ErrNoFixes) && len(res.Applied) == 0:
		w.printf("No applicable fixes found.\n")
		return w.err
	case applyErr != nil:
		return applyErr
	case len(res.Applied) == 0:
		w.printf("No fixes applied.\n")
	}
	return w.err
}
