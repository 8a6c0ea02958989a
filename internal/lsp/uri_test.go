package lsp

import (
	"path/filepath"
	"testing"
)

func TestURIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir with space", "main.rs")
	uri := pathToURI(path)
	if got := uriToPath(uri); got != path {
		t.Fatalf("round trip: %q -> %q -> %q", path, uri, got)
	}
	if canonicalURI(uri) != uri {
		t.Fatalf("canonical form changed a clean uri: %q", canonicalURI(uri))
	}
}

func TestCanonicalURI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"file:///tmp/a/../b/main.rs", "file:///tmp/b/main.rs"},
		{"file:///tmp/b/./main.rs", "file:///tmp/b/main.rs"},
		{"untitled:Untitled-1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := canonicalURI(tt.in); got != tt.want {
			t.Errorf("canonicalURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
