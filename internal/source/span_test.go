package source

import "testing"

func TestSpanOverlapAndContains(t *testing.T) {
	a := Span{File: 0, Start: 5, End: 10}
	tests := []struct {
		name string
		b    Span
		want bool
	}{
		{"shared bytes", Span{File: 0, Start: 8, End: 14}, true},
		{"touching", Span{File: 0, Start: 10, End: 12}, false},
		{"inside", Span{File: 0, Start: 6, End: 7}, true},
		{"other file", Span{File: 1, Start: 0, End: 100}, false},
	}
	for _, tt := range tests {
		if got := a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
	}
	if !a.Contains(10) || a.Contains(11) || a.Contains(4) {
		t.Error("Contains must include the end offset only")
	}
	if a.Len() != 5 || a.Empty() || !(Span{Start: 3, End: 3}).Empty() {
		t.Error("Len/Empty mismatch")
	}
}
