package lsp

import (
	"strings"
	"testing"

	"rustsafe/internal/source"
)

func TestUTF16SpanMapping(t *testing.T) {
	src := strings.Join([]string{
		"fn main() {",
		"    let s = \"é🙂\"; unsafe { v.get_unchecked(0); }",
		"}",
		"",
	}, "\n")
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("main.rs", []byte(src)))

	off := strings.Index(src, "unsafe")
	pos := positionForOffsetInFile(file, uint32(off))
	// é is one UTF-16 unit, the emoji is a surrogate pair
	want := position{Line: 1, Character: len("    let s = \"") + 1 + 2 + len("\"; ")}
	if pos != want {
		t.Fatalf("position = %+v, want %+v", pos, want)
	}
	if back := offsetForPositionInFile(file, pos); back != uint32(off) {
		t.Fatalf("offset round trip = %d, want %d", back, off)
	}

	r := rangeForSpan(file, file.Span(uint32(off), uint32(off+len("unsafe"))))
	if r.End.Character-r.Start.Character != len("unsafe") {
		t.Fatalf("unexpected range %+v", r)
	}
}

func TestOffsetClamps(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("main.rs", []byte("ab\ncd")))

	tests := []struct {
		pos  position
		want uint32
	}{
		{position{Line: 0, Character: 0}, 0},
		{position{Line: 0, Character: 99}, 2},
		{position{Line: 1, Character: 1}, 4},
		{position{Line: 9, Character: 0}, 5},
		{position{Line: -1, Character: 0}, 0},
	}
	for _, tt := range tests {
		if got := offsetForPositionInFile(file, tt.pos); got != tt.want {
			t.Errorf("offset(%+v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestApplyChanges(t *testing.T) {
	text := "fn main() {\n    unsafe {}\n}\n"
	got := applyChanges(text, []textDocumentContentChangeEvent{
		{Range: &lspRange{Start: position{Line: 1, Character: 4}, End: position{Line: 1, Character: 10}}, Text: "loop"},
		{Range: &lspRange{Start: position{Line: 0, Character: 3}, End: position{Line: 0, Character: 7}}, Text: "run"},
	})
	if got != "fn run() {\n    loop {}\n}\n" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := applyChanges(text, []textDocumentContentChangeEvent{{Text: "full"}}); got != "full" {
		t.Fatalf("full sync failed: %q", got)
	}
}
