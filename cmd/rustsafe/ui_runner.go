package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"rustsafe/internal/driver"
	"rustsafe/internal/source"
	"rustsafe/internal/ui"
)

// uiMode is the --ui flag: auto, on or off.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	mode := uiMode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// shouldUseTUI: в auto режиме прогресс рисуется только в терминале и только
// когда stdout не занят машинным форматом.
func shouldUseTUI(mode uiMode, format string) bool {
	if mode != uiModeAuto {
		return mode == uiModeOn
	}
	return (format == "pretty" || format == "short") && isTerminal(os.Stdout)
}

type scanOutcome struct {
	fileSet *source.FileSet
	results []driver.FileResult
	err     error
}

// runScanWithUI runs driver.ScanDir while a Bubble Tea model renders
// per-file progress on stderr.
func runScanWithUI(ctx context.Context, title, dir string, opts driver.Options) (*source.FileSet, []driver.FileResult, error) {
	files, err := driver.ListRustFiles(dir, opts.Exclude)
	if err != nil {
		return nil, nil, fmt.Errorf("list files: %w", err)
	}

	events := make(chan driver.Event, 256)
	outcomeCh := make(chan scanOutcome, 1)

	go func() {
		scanOpts := opts
		scanOpts.Progress = driver.ChannelSink{Ch: events}
		fs, results, err := driver.ScanDir(ctx, dir, scanOpts)
		outcomeCh <- scanOutcome{fileSet: fs, results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.fileSet, outcome.results, uiErr
	}
	return outcome.fileSet, outcome.results, outcome.err
}
