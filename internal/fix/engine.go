// Package fix selects rewrite fixes attached to diagnostics and applies
// their edits to files on disk or to in-memory buffers.
package fix

import (
	"errors"
	"fmt"
	"os"

	"rustsafe/internal/diag"
	"rustsafe/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeOnce ApplyMode = iota // first always-safe fix, else the first fix
	ApplyModeAll                   // everything but manual-review
	ApplyModeID                    // exactly TargetID
)

type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
	DryRun   bool // compute FileChanges without touching disk
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID            string
	Title         string
	Code          diag.Code
	Message       string
	Applicability diag.FixApplicability
	PrimaryPath   string
	EditCount     int
}

// SkippedFix is a fix that was not selected or could not be applied.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

func skipped(f diag.Fix, reason string) SkippedFix {
	return SkippedFix{ID: f.ID, Title: f.Title, Reason: reason}
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	FileID    source.FileID
	EditCount int
	Content   []byte // normalized post-fix content
}

type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

// Apply resolves the fixes attached to diagnostics, selects a subset
// according to opts and writes the affected files. Fixes whose edits clash
// with an already accepted fix are skipped. ErrNoFixes is returned when
// nothing was applied.
func Apply(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	res := &ApplyResult{}
	if fs == nil {
		return res, errors.New("fix: FileSet is nil")
	}

	cands, skips := gatherCandidates(diag.FixBuildContext{FileSet: fs}, diagnostics)
	res.Skipped = append(res.Skipped, skips...)
	sortCandidates(cands)
	selected, skips := selectCandidates(cands, opts)
	res.Skipped = append(res.Skipped, skips...)

	st := newStage(fs)
	for _, c := range selected {
		if reason := st.add(c.fix.Edits); reason != "" {
			res.Skipped = append(res.Skipped, skipped(c.fix, reason))
			continue
		}
		res.Applied = append(res.Applied, AppliedFix{
			ID:            c.fix.ID,
			Title:         c.fix.Title,
			Code:          c.diag.Code,
			Message:       c.diag.Message,
			Applicability: c.fix.Applicability,
			PrimaryPath:   fs.Get(c.diag.Primary.File).DisplayPath(source.PathAuto, fs.BaseDir()),
			EditCount:     len(c.fix.Edits),
		})
	}
	if len(res.Applied) == 0 {
		return res, ErrNoFixes
	}

	changes, err := st.commit(opts.DryRun)
	res.FileChanges = changes
	return res, err
}

// WriteFile stores content in the file's original encoding, keeping its mode.
func WriteFile(file *source.File, content []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(file.Path); err == nil {
		mode = info.Mode()
	}
	out, err := file.Encode(content)
	if err != nil {
		return fmt.Errorf("encode %s: %w", file.Path, err)
	}
	if err := os.WriteFile(file.Path, out, mode); err != nil {
		return fmt.Errorf("write %s: %w", file.Path, err)
	}
	return nil
}
