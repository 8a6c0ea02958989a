package fix

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"rustsafe/internal/diag"
)

var (
	// ErrEditOutOfRange is returned when an edit points past the buffer.
	ErrEditOutOfRange = errors.New("edit span out of range")
	// ErrEditConflict is returned when two edits overlap.
	ErrEditConflict = errors.New("overlapping edits")
	// ErrStaleEdit is returned when the guarded text no longer matches.
	ErrStaleEdit = errors.New("existing text does not match expected content")
)

// ApplyEdits applies edits expressed in offsets of content and returns the
// new buffer. Edits must not overlap; insertions at the same offset keep
// their order. content is left untouched.
func ApplyEdits(content []byte, edits []diag.TextEdit) ([]byte, error) {
	sorted := sortedEdits(edits)
	if err := checkEdits(content, sorted); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(content))
	cursor := uint32(0)
	for _, e := range sorted {
		out = append(out, content[cursor:e.Span.Start]...)
		out = append(out, e.NewText...)
		cursor = e.Span.End
	}
	return append(out, content[cursor:]...), nil
}

// sortedEdits orders a copy of edits by position. An insertion sorts before
// a replacement starting at the same offset.
func sortedEdits(edits []diag.TextEdit) []diag.TextEdit {
	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b diag.TextEdit) int {
		return cmp.Or(cmp.Compare(a.Span.Start, b.Span.Start), cmp.Compare(a.Span.End, b.Span.End))
	})
	return sorted
}

// checkEdits validates sorted edits against content.
func checkEdits(content []byte, sorted []diag.TextEdit) error {
	size := len(content)
	for i, e := range sorted {
		if e.Span.End < e.Span.Start || int(e.Span.End) > size {
			return fmt.Errorf("%w: [%d, %d) in %d bytes", ErrEditOutOfRange, e.Span.Start, e.Span.End, size)
		}
		if i > 0 && sorted[i-1].Span.End > e.Span.Start {
			return fmt.Errorf("%w: [%d, %d) and [%d, %d)", ErrEditConflict,
				sorted[i-1].Span.Start, sorted[i-1].Span.End, e.Span.Start, e.Span.End)
		}
		if e.OldText != "" && string(content[e.Span.Start:e.Span.End]) != e.OldText {
			return fmt.Errorf("%w at %d", ErrStaleEdit, e.Span.Start)
		}
	}
	return nil
}
