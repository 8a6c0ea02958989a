package main

import (
	"fmt"
	"io"

	"rustsafe/internal/driver"
	"rustsafe/internal/observ"
)

// sumPhases folds per-file reports and then the extra phases into one.
func sumPhases(results []driver.FileResult, extra ...observ.PhaseReport) observ.Report {
	var total observ.Report
	for _, r := range results {
		if r.Timing != nil {
			total.Fold(*r.Timing)
		}
	}
	for _, p := range extra {
		total.FoldPhase(p)
	}
	return total
}

func printScanTimings(out io.Writer, results []driver.FileResult, extra ...observ.PhaseReport) {
	if out == nil {
		return
	}
	cached := 0
	for _, r := range results {
		if r.Cached {
			cached++
		}
	}
	report := sumPhases(results, extra...)
	for _, p := range report.Phases {
		if _, err := fmt.Fprintf(out, "%-8s %.1f ms (%d samples)\n", p.Name, p.DurationMS, p.Samples); err != nil {
			panic(err)
		}
	}
	if _, err := fmt.Fprintf(out, "total    %.1f ms, %d files, %d cached\n", report.TotalMS, len(results), cached); err != nil {
		panic(err)
	}
}
