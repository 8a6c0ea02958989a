package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFoldCRLFKeepsLoneCR(t *testing.T) {
	var flags FileFlags
	out := foldCRLF([]byte("a\r\nb\rc"), &flags)
	if flags&FileNormalizedCRLF == 0 {
		t.Fatal("expected FileNormalizedCRLF")
	}
	if string(out) != "a\nb\rc" {
		t.Errorf("got %q", out)
	}
	flags = 0
	foldCRLF([]byte("plain\r"), &flags)
	if flags != 0 {
		t.Error("text without CRLF reported as changed")
	}
}

func TestRelativePathOutsideBaseFallsBackToAbsolute(t *testing.T) {
	tmp := t.TempDir()
	baseDir := filepath.Join(tmp, "base")
	otherDir := filepath.Join(tmp, "other")
	for _, d := range []string{baseDir, otherDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	target := filepath.Join(otherDir, "lib.rs")
	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}
	if want := normalizePath(target); got != want {
		t.Fatalf("expected absolute fallback %q, got %q", want, got)
	}
}

func TestRelativePathInsideBaseStaysRelative(t *testing.T) {
	baseDir := t.TempDir()
	target := filepath.Join(baseDir, "src", "lib.rs")

	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}
	if want := "src/lib.rs"; got != want {
		t.Fatalf("expected relative path %q, got %q", want, got)
	}
}

func TestEncodeRestoresOnDiskForm(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"crlf", []byte("fn a() {}\r\nfn b() {}\r\n")},
		{"bom", append([]byte{0xEF, 0xBB, 0xBF}, "fn a() {}\n"...)},
		{"utf16le", []byte{0xFF, 0xFE, 'f', 0, 'n', 0, '\n', 0}},
		{"plain", []byte("fn a() {}\n")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := NewFileSet()
			path := filepath.Join(t.TempDir(), "lib.rs")
			if err := os.WriteFile(path, tc.raw, 0o600); err != nil {
				t.Fatal(err)
			}
			id, err := fs.Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			f := fs.Get(id)
			out, err := f.Encode(f.Content)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if string(out) != string(tc.raw) {
				t.Fatalf("round trip mismatch: got %q want %q", out, tc.raw)
			}
		})
	}
}
