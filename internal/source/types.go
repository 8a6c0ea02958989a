package source

import (
	"path/filepath"
	"strings"
)

// FileID indexes a file version inside a FileSet.
type FileID uint32

// FileFlags records how the bytes on disk were normalized on load, so a
// rewritten file can be written back in its original encoding.
type FileFlags uint8

const (
	FileVirtual FileFlags = 1 << iota // буфер редактора, stdin или тест
	FileHadBOM
	FileNormalizedCRLF
	FileDecodedUTF16
	FileUTF16BE
)

// File is one loaded version of a Rust source file. Content is UTF-8 with
// LF line endings.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // offsets of every '\n'
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a 1-based line and byte column.
type LineCol struct {
	Line uint32
	Col  uint32
}

// PathMode selects how a file path is shown to the user.
type PathMode uint8

const (
	// PathAuto keeps short or relative paths and trims long absolute ones to the base name.
	PathAuto PathMode = iota
	PathAbsolute
	PathRelative
	PathBasename
)

var pathModeNames = [...]string{
	PathAuto:     "auto",
	PathAbsolute: "absolute",
	PathRelative: "relative",
	PathBasename: "basename",
}

func (m PathMode) String() string {
	if int(m) < len(pathModeNames) {
		return pathModeNames[m]
	}
	return "auto"
}

// ParsePathMode accepts the names printed by String; empty means auto.
func ParsePathMode(s string) (PathMode, bool) {
	if s == "" {
		return PathAuto, true
	}
	for m, name := range pathModeNames {
		if strings.EqualFold(s, name) {
			return PathMode(m), true
		}
	}
	return PathAuto, false
}

// autoPathLimit is the length above which PathAuto shortens absolute paths.
const autoPathLimit = 40

// DisplayPath renders f.Path in the given mode. baseDir is only consulted
// by PathRelative; when empty the working directory is used.
func (f *File) DisplayPath(mode PathMode, baseDir string) string {
	switch mode {
	case PathAbsolute:
		if abs, err := AbsolutePath(f.Path); err == nil {
			return abs
		}
	case PathRelative:
		if rel, err := RelativePath(f.Path, baseDir); err == nil {
			return rel
		}
	case PathBasename:
		return filepath.Base(f.Path)
	case PathAuto:
		if len(f.Path) >= autoPathLimit && filepath.IsAbs(f.Path) {
			return filepath.Base(f.Path)
		}
	}
	return f.Path
}
