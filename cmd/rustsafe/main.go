package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rustsafe/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "rustsafe",
	Short: "Rewrite unsafe Rust idioms into safe equivalents",
	Long: `rustsafe finds unsafe blocks whose contents match a known idiom
(set_len after reserve, copy_nonoverlapping, get_unchecked, from_utf8_unchecked, ...)
and offers the equivalent safe code as a fix.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRun,
}

// exitError carries a process exit code without printing anything.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// main registers subcommands and persistent flags, executes the root command
// and maps the outcome to a process exit code.
func main() {
	// версия для автоматического флага --version
	rootCmd.Version = version.Version

	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 200, "maximum number of diagnostics per file")
	pf.String("config", "", "path to rustsafe.toml (default: discovered from the target)")
	pf.Bool("no-cache", false, "bypass the on-disk scan cache")

	pf.String("trace", "", "trace output path (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	pf.String("trace-format", "auto", "trace output format (auto|text|ndjson)")
	pf.Int("trace-ring-size", 4096, "ring buffer capacity for --trace-mode ring")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 disables)")

	pf.String("cpu-profile", "", "write a CPU profile to this path")
	pf.String("mem-profile", "", "write a heap profile to this path on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this path")

	err := rootCmd.Execute()
	runCleanups()
	if err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "rustsafe: %v\n", err)
		os.Exit(1)
	}
}

var cleanups []func()

// runCleanups runs registered cleanups in reverse order.
func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// setupRun enables tracing and profiling before any subcommand runs.
func setupRun(cmd *cobra.Command, _ []string) error {
	stopTrace, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, stopTrace)

	stopProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, stopProf)
	return nil
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color flag against the given output stream.
func useColor(cmd *cobra.Command, f *os.File) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return isTerminal(f), nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
}
