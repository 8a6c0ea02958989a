package source

import "fmt"

// Span is a half-open byte range [Start, End) inside one file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

func (s Span) Empty() bool { return s.Start == s.End }

func (s Span) Len() uint32 { return s.End - s.Start }

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Contains reports whether off falls in s. End is inclusive here so that a
// cursor sitting right after the last byte still hits the span.
func (s Span) Contains(off uint32) bool {
	return s.Start <= off && off <= s.End
}

// Overlaps reports whether s and o share a byte. Touching spans do not.
func (s Span) Overlaps(o Span) bool {
	return s.File == o.File && s.Start < o.End && o.Start < s.End
}
