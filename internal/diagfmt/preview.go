package diagfmt

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"rustsafe/internal/diag"
	"rustsafe/internal/source"
)

type fixEditPreview struct {
	before []string
	after  []string
}

// buildFixPreview renders the whole lines touched by edits, before and after
// applying them. Edits must target one file and must not overlap. An edit
// that ends just past a newline does not pull in the following line.
func buildFixPreview(fs *source.FileSet, edits []diag.TextEdit) (fixEditPreview, error) {
	if len(edits) == 0 {
		return fixEditPreview{}, errors.New("fix has no edits")
	}
	file := fileOf(fs, edits[0].Span)
	if file == nil {
		return fixEditPreview{}, fmt.Errorf("file %d not found in FileSet", edits[0].Span.File)
	}
	content := file.Content

	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b diag.TextEdit) int {
		return cmp.Or(cmp.Compare(a.Span.Start, b.Span.Start), cmp.Compare(a.Span.End, b.Span.End))
	})

	lo, hi := int(sorted[0].Span.Start), 0
	closesLine := false
	for _, e := range sorted {
		if e.Span.File != file.ID {
			return fixEditPreview{}, errors.New("fix spans several files")
		}
		if end := int(e.Span.End); end >= hi {
			hi = end
			closesLine = !e.Span.Empty() && end > 0 && end <= len(content) && content[end-1] == '\n'
		}
	}
	if hi > len(content) {
		return fixEditPreview{}, fmt.Errorf("edit end %d past end of file", hi)
	}

	blockStart := bytes.LastIndexByte(content[:lo], '\n') + 1
	blockEnd := hi
	if !closesLine {
		if nl := bytes.IndexByte(content[hi:], '\n'); nl >= 0 {
			blockEnd = hi + nl + 1
		} else {
			blockEnd = len(content)
		}
	}

	var after []byte
	cursor := blockStart
	for _, e := range sorted {
		start := int(e.Span.Start)
		if start < cursor {
			return fixEditPreview{}, fmt.Errorf("edit at %d overlaps another edit", start)
		}
		after = append(after, content[cursor:start]...)
		after = append(after, e.NewText...)
		cursor = int(e.Span.End)
	}
	after = append(after, content[cursor:blockEnd]...)

	return fixEditPreview{
		before: previewLines(content[blockStart:blockEnd]),
		after:  previewLines(after),
	}, nil
}

// previewLines splits on newlines; a trailing newline adds no empty line.
func previewLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}
