// Package testkit holds invariant checks shared by rewrite tests.
package testkit

import (
	"fmt"
	"sort"
	"strings"

	"fortio.org/safecast"

	"rustsafe/internal/diag"
)

// CheckEditInvariants runs the basic invariants every rewrite must hold
// against the buffer it was computed for:
// 1) each span is well formed and inside the content
// 2) guarded edits still match the text they replace
// 3) no two edits overlap (insertions may touch a neighbour)
func CheckEditInvariants(content []byte, edits []diag.TextEdit) error {
	lenContent, err := safecast.Conv[uint32](len(content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}

	sorted := append([]diag.TextEdit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start != sorted[j].Span.Start {
			return sorted[i].Span.Start < sorted[j].Span.Start
		}
		return sorted[i].Span.End < sorted[j].Span.End
	})

	for i, e := range sorted {
		sp := e.Span
		if sp.End < sp.Start {
			return fmt.Errorf("inverted edit span: %v", sp)
		}
		if sp.End > lenContent {
			return fmt.Errorf("edit span end beyond content: %d > %d", sp.End, lenContent)
		}
		if e.OldText != "" && string(content[sp.Start:sp.End]) != e.OldText {
			return fmt.Errorf("edit %v guard mismatch: have %q, want %q", sp, content[sp.Start:sp.End], e.OldText)
		}
		if i > 0 && sorted[i-1].Span.End > sp.Start {
			return fmt.Errorf("edits overlap: %v and %v", sorted[i-1].Span, sp)
		}
	}
	return nil
}

// CheckPreserved verifies that every fragment still appears verbatim in after.
func CheckPreserved(after []byte, fragments ...string) error {
	text := string(after)
	for _, f := range fragments {
		if !strings.Contains(text, f) {
			return fmt.Errorf("fragment %q lost by the rewrite", f)
		}
	}
	return nil
}

// CheckNoWrapper verifies that generated text carries no unsafe wrapper.
func CheckNoWrapper(generated string) error {
	if strings.Contains(generated, "unsafe") {
		return fmt.Errorf("generated text keeps the unsafe wrapper: %q", generated)
	}
	return nil
}
