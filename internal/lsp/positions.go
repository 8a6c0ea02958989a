package lsp

import (
	"slices"
	"unicode/utf16"
	"unicode/utf8"

	"fortio.org/safecast"

	"rustsafe/internal/source"
)

// LSP positions count UTF-16 code units within a line. Buffers are strings
// (open documents) or byte slices (loaded files).
type text interface{ ~string | ~[]byte }

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return ^uint32(0)
	}
	return v
}

// advanceUTF16 moves from byte offset i across up to units code units without
// leaving the line. A rune that would overshoot is not entered.
func advanceUTF16[T text](s T, i, units int) int {
	for i < len(s) && s[i] != '\n' && units > 0 {
		r, size := utf8.DecodeRuneInString(string(s[i:min(i+utf8.UTFMax, len(s))]))
		w := utf16.RuneLen(r)
		if w > units {
			break
		}
		units -= w
		i += size
	}
	return i
}

func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		n += utf16.RuneLen(r)
		b = b[size:]
	}
	return n
}

// offsetAt maps pos onto s, clamping past-the-end lines to len(s).
func offsetAt[T text](s T, pos position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	start := 0
	for line := pos.Line; line > 0; line-- {
		for start < len(s) && s[start] != '\n' {
			start++
		}
		if start == len(s) {
			return len(s)
		}
		start++
	}
	return advanceUTF16(s, start, pos.Character)
}

// applyChanges replays didChange events in order; a change without a range
// replaces the whole buffer.
func applyChanges(doc string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			doc = change.Text
			continue
		}
		start := offsetAt(doc, change.Range.Start)
		end := max(offsetAt(doc, change.Range.End), start)
		doc = doc[:start] + change.Text + doc[end:]
	}
	return doc
}

// offsetForPositionInFile is offsetAt using the file's line index.
func offsetForPositionInFile(file *source.File, pos position) uint32 {
	if file == nil || pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	start := 0
	switch {
	case pos.Line > len(file.LineIdx):
		return safeUint32(len(file.Content))
	case pos.Line > 0:
		start = int(file.LineIdx[pos.Line-1]) + 1
	}
	return safeUint32(advanceUTF16(file.Content, start, pos.Character))
}

func positionForOffsetInFile(file *source.File, offset uint32) position {
	if file == nil {
		return position{}
	}
	offset = min(offset, safeUint32(len(file.Content)))
	line, _ := slices.BinarySearch(file.LineIdx, offset)
	var start uint32
	if line > 0 {
		start = min(file.LineIdx[line-1]+1, offset)
	}
	return position{Line: line, Character: utf16Len(file.Content[start:offset])}
}

func rangeForSpan(file *source.File, span source.Span) lspRange {
	if file == nil {
		return lspRange{}
	}
	return lspRange{
		Start: positionForOffsetInFile(file, span.Start),
		End:   positionForOffsetInFile(file, span.End),
	}
}
