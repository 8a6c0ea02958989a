package fix

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rustsafe/internal/diag"
	"rustsafe/internal/source"
)

func TestGatherCandidatesSkipsDuplicateFixIDs(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.rs", []byte(""))
	span := source.Span{File: fileID, Start: 0, End: 0}

	diagnostics := []diag.Diagnostic{{
		Code:    diag.RewriteCheckedGet,
		Message: "get_unchecked can be a checked get",
		Primary: span,
		Fixes: []diag.Fix{
			{
				ID:    "fix-duplicate",
				Title: "rewrite",
				Edits: []diag.TextEdit{{Span: span, NewText: ";"}},
			},
			{
				ID:    "fix-duplicate",
				Title: "rewrite again",
				Edits: []diag.TextEdit{{Span: span, NewText: ";"}},
			},
		},
	}}

	ctx := diag.FixBuildContext{FileSet: fs}
	candidates, skips := gatherCandidates(ctx, diagnostics)

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if len(skips) != 1 {
		t.Fatalf("expected 1 skipped fix, got %d", len(skips))
	}

	skip := skips[0]
	if skip.ID != "fix-duplicate" {
		t.Fatalf("expected skipped fix id 'fix-duplicate', got %q", skip.ID)
	}
	if skip.Reason != "duplicate fix id" {
		t.Fatalf("expected duplicate fix reason, got %q", skip.Reason)
	}
}

func writeTemp(t *testing.T, content string) (*source.FileSet, *source.File) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.rs")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return fs, fs.Get(id)
}

func rewriteDiag(file *source.File, start, end uint32, text string, app diag.FixApplicability) diag.Diagnostic {
	sp := file.Span(start, end)
	return diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.RewriteCheckedGet,
		Message:  "rewrite",
		Primary:  sp,
		Fixes: []diag.Fix{Rewrite("rewrite", []diag.TextEdit{{
			Span:    sp,
			NewText: text,
			OldText: string(file.Content[start:end]),
		}}, WithApplicability(app))},
	}
}

func TestApplyAllWritesFile(t *testing.T) {
	fs, file := writeTemp(t, "aaa bbb ccc\n")
	diags := []diag.Diagnostic{
		rewriteDiag(file, 8, 11, "CCC", diag.FixApplicabilitySafeWithHeuristics),
		rewriteDiag(file, 0, 3, "AAA", diag.FixApplicabilityAlwaysSafe),
		rewriteDiag(file, 4, 7, "BBB", diag.FixApplicabilityManualReview),
	}

	res, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeAll})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Applied) != 2 {
		t.Fatalf("expected 2 applied fixes, got %d", len(res.Applied))
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("expected the manual-review fix to be skipped, got %+v", res.Skipped)
	}

	got, err := os.ReadFile(file.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "AAA bbb CCC\n" {
		t.Fatalf("unexpected file content %q", got)
	}
	if len(res.FileChanges) != 1 || res.FileChanges[0].EditCount != 2 {
		t.Fatalf("unexpected file changes %+v", res.FileChanges)
	}
}

func TestApplyOncePicksFirst(t *testing.T) {
	fs, file := writeTemp(t, "aaa bbb\n")
	diags := []diag.Diagnostic{
		rewriteDiag(file, 4, 7, "BBB", diag.FixApplicabilitySafeWithHeuristics),
		rewriteDiag(file, 0, 3, "AAA", diag.FixApplicabilitySafeWithHeuristics),
	}

	res, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeOnce})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Applied) != 1 {
		t.Fatalf("expected 1 applied fix, got %d", len(res.Applied))
	}
	got, _ := os.ReadFile(file.Path)
	if string(got) != "AAA bbb\n" {
		t.Fatalf("unexpected file content %q", got)
	}
}

func TestApplyByIDAndMissing(t *testing.T) {
	fs, file := writeTemp(t, "aaa\n")
	d := rewriteDiag(file, 0, 3, "AAA", diag.FixApplicabilitySafeWithHeuristics)
	d.Fixes[0].ID = "rw@0"

	if _, err := Apply(fs, []diag.Diagnostic{d}, ApplyOptions{Mode: ApplyModeID, TargetID: "nope"}); !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes for unknown id, got %v", err)
	}
	if _, err := Apply(fs, []diag.Diagnostic{d}, ApplyOptions{Mode: ApplyModeID, TargetID: "rw@0"}); err != nil {
		t.Fatalf("apply by id: %v", err)
	}
}

func TestApplySkipsVirtualFiles(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("mem.rs", []byte("aaa\n")))
	d := rewriteDiag(file, 0, 3, "AAA", diag.FixApplicabilityAlwaysSafe)

	res, err := Apply(fs, []diag.Diagnostic{d}, ApplyOptions{Mode: ApplyModeAll})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "target file is virtual" {
		t.Fatalf("unexpected skips %+v", res.Skipped)
	}
}

func TestSpansConflict(t *testing.T) {
	tests := []struct {
		a, b diag.TextEdit
		want bool
	}{
		{edit(1, 1, "x"), edit(1, 1, "y"), false},
		{edit(1, 1, "x"), edit(0, 2, ""), true},
		{edit(2, 2, "x"), edit(0, 2, ""), false},
		{edit(0, 3, ""), edit(2, 5, ""), true},
		{edit(0, 2, ""), edit(2, 5, ""), false},
	}
	for i, tt := range tests {
		if got := spansConflict(tt.a, tt.b); got != tt.want {
			t.Errorf("case %d: spansConflict = %v, want %v", i, got, tt.want)
		}
	}
}

func TestApplyDryRunLeavesFile(t *testing.T) {
	fs, file := writeTemp(t, "aaa\n")
	diags := []diag.Diagnostic{rewriteDiag(file, 0, 3, "AAA", diag.FixApplicabilityAlwaysSafe)}

	res, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeAll, DryRun: true})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.FileChanges) != 1 || string(res.FileChanges[0].Content) != "AAA\n" {
		t.Fatalf("unexpected file changes %+v", res.FileChanges)
	}
	got, _ := os.ReadFile(file.Path)
	if string(got) != "aaa\n" {
		t.Fatalf("dry run modified the file: %q", got)
	}
}

func TestApplyKeepsCRLF(t *testing.T) {
	fs, file := writeTemp(t, "aaa\r\nbbb\r\n")
	// normalized content is "aaa\nbbb\n"
	diags := []diag.Diagnostic{rewriteDiag(file, 4, 7, "BBB", diag.FixApplicabilityAlwaysSafe)}

	if _, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeAll}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, _ := os.ReadFile(file.Path)
	if string(got) != "aaa\r\nBBB\r\n" {
		t.Fatalf("line endings not restored: %q", got)
	}
}

func TestApplyKeepsOffsetsAcrossFixes(t *testing.T) {
	fs, file := writeTemp(t, "a bb ccc\n")
	diags := []diag.Diagnostic{
		rewriteDiag(file, 0, 1, "alpha", diag.FixApplicabilityAlwaysSafe),
		rewriteDiag(file, 2, 4, "B", diag.FixApplicabilityAlwaysSafe),
		rewriteDiag(file, 3, 8, "x", diag.FixApplicabilityAlwaysSafe), // overlaps the previous one
	}

	res, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeAll, DryRun: true})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Applied) != 2 {
		t.Fatalf("expected 2 applied fixes, got %+v", res.Applied)
	}
	if len(res.Skipped) != 1 || !strings.HasPrefix(res.Skipped[0].Reason, "conflicts with previously applied edits") {
		t.Fatalf("unexpected skips %+v", res.Skipped)
	}
	if got := string(res.FileChanges[0].Content); got != "alpha B ccc\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestApplyRejectsStaleFix(t *testing.T) {
	fs, file := writeTemp(t, "aaa\n")
	d := rewriteDiag(file, 0, 3, "AAA", diag.FixApplicabilityAlwaysSafe)
	d.Fixes[0].Edits[0].OldText = "zzz"

	res, err := Apply(fs, []diag.Diagnostic{d}, ApplyOptions{Mode: ApplyModeOnce})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "existing text does not match expected content" {
		t.Fatalf("unexpected skips %+v", res.Skipped)
	}
}
