package fix

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"rustsafe/internal/diag"
	"rustsafe/internal/source"
)

// stage collects accepted edits per file in offsets of the loaded content.
// Buffers are rendered once in commit, so accepting a fix never shifts the
// coordinates of the ones after it.
type stage struct {
	fs    *source.FileSet
	edits map[source.FileID][]diag.TextEdit
}

func newStage(fs *source.FileSet) *stage {
	return &stage{fs: fs, edits: make(map[source.FileID][]diag.TextEdit)}
}

// add accepts all edits of one fix or none of them. It returns the reason
// for rejecting the fix, or "".
func (st *stage) add(edits []diag.TextEdit) string {
	byFile := make(map[source.FileID][]diag.TextEdit)
	for _, e := range edits {
		byFile[e.Span.File] = append(byFile[e.Span.File], e)
	}
	ids := slices.Sorted(maps.Keys(byFile))
	for _, id := range ids {
		file := st.fs.Get(id)
		if file.Flags&source.FileVirtual != 0 {
			return "target file is virtual"
		}
		if conflictsWithExisting(st.edits[id], byFile[id]) {
			return fmt.Sprintf("conflicts with previously applied edits in %s", file.DisplayPath(source.PathAuto, st.fs.BaseDir()))
		}
		if err := checkEdits(file.Content, sortedEdits(byFile[id])); err != nil {
			return rejectReason(err)
		}
	}
	for _, id := range ids {
		st.edits[id] = append(st.edits[id], byFile[id]...)
	}
	return ""
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrEditOutOfRange):
		return "edit span out of range"
	case errors.Is(err, ErrStaleEdit):
		return "existing text does not match expected content"
	case errors.Is(err, ErrEditConflict):
		return "fix has overlapping edits"
	}
	return err.Error()
}

// commit renders every touched file in path order and, unless dryRun,
// writes it back in its on-disk encoding.
func (st *stage) commit(dryRun bool) ([]FileChange, error) {
	changes := make([]FileChange, 0, len(st.edits))
	for id, edits := range st.edits {
		file := st.fs.Get(id)
		content, err := ApplyEdits(file.Content, edits)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Path, err)
		}
		changes = append(changes, FileChange{
			Path:      file.DisplayPath(source.PathRelative, st.fs.BaseDir()),
			FileID:    id,
			EditCount: len(edits),
			Content:   content,
		})
	}
	slices.SortFunc(changes, func(a, b FileChange) int { return strings.Compare(a.Path, b.Path) })

	if dryRun {
		return changes, nil
	}
	for i, ch := range changes {
		if err := WriteFile(st.fs.Get(ch.FileID), ch.Content); err != nil {
			return changes[:i], err
		}
	}
	return changes, nil
}

func conflictsWithExisting(existing, edits []diag.TextEdit) bool {
	for _, prev := range existing {
		for _, e := range edits {
			if spansConflict(prev, e) {
				return true
			}
		}
	}
	return false
}

// spansConflict treats spans as half-open. Two insertions never conflict;
// an insertion conflicts with a replacement covering its offset.
func spansConflict(a, b diag.TextEdit) bool {
	as, ae := a.Span.Start, a.Span.End
	bs, be := b.Span.Start, b.Span.End
	switch {
	case as == ae && bs == be:
		return false
	case as == ae:
		return bs <= as && as < be
	case bs == be:
		return as <= bs && bs < ae
	}
	return as < be && bs < ae
}
