package source

import (
	"crypto/sha256"
	"fmt"
	"os"

	"fortio.org/safecast"
)

// FileSet owns every file version loaded during one run. IDs are dense and
// never reused, so a span stays valid after the same path is loaded again.
type FileSet struct {
	files   []File
	baseDir string // корень для относительных путей; пусто - рабочая директория
}

func NewFileSet() *FileSet { return &FileSet{} }

// NewFileSetWithBase is NewFileSet with SetBaseDir applied.
func NewFileSetWithBase(baseDir string) *FileSet {
	return &FileSet{baseDir: baseDir}
}

func (fileSet *FileSet) SetBaseDir(dir string) { fileSet.baseDir = dir }

// BaseDir returns the directory relative paths are computed against.
func (fileSet *FileSet) BaseDir() string {
	if fileSet.baseDir != "" {
		return fileSet.baseDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

// Add registers already normalized content under path and returns its ID.
// Files larger than 4GiB cannot be addressed by a Span and panic.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	if _, err := safecast.Conv[uint32](len(content)); err != nil {
		panic(fmt.Errorf("%s: file too large: %w", path, err))
	}
	n, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("file set overflow: %w", err))
	}
	id := FileID(n)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    normalizePath(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	return id
}

// Load reads path from disk. A BOM is stripped, UTF-16 is transcoded and
// CRLF is folded to LF; Flags remember each step for File.Encode.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from the command line or the walker
	if err != nil {
		return 0, err
	}
	content, flags, err := decodeSource(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	content = foldCRLF(content, &flags)
	return fileSet.Add(path, content, flags), nil
}

// AddVirtual registers in-memory content, such as an editor buffer.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

func (fileSet *FileSet) Get(id FileID) *File { return &fileSet.files[id] }

func (fileSet *FileSet) Len() int { return len(fileSet.files) }

// Resolve maps both ends of span to line and column.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.Get(span.File)
	return f.LineCol(span.Start), f.LineCol(span.End)
}

// Span builds a span of f.
func (f *File) Span(start, end uint32) Span {
	return Span{File: f.ID, Start: start, End: end}
}

func (f *File) Len() uint32 {
	return uint32(len(f.Content)) // #nosec G115 -- bounded in Add
}

func (f *File) LineCol(off uint32) LineCol { return toLineCol(f.LineIdx, off) }

func (f *File) lineCount() uint32 {
	return uint32(len(f.LineIdx)) + 1 // #nosec G115 -- bounded in Add
}

// LineStart returns the offset of the first byte of a 1-based line.
// Line numbers past the end clamp to Len.
func (f *File) LineStart(line uint32) uint32 {
	switch {
	case line <= 1:
		return 0
	case line > f.lineCount():
		return f.Len()
	}
	return f.LineIdx[line-2] + 1
}

// LineEnd returns the offset of the newline closing line, or Len for the
// last line.
func (f *File) LineEnd(line uint32) uint32 {
	line = max(line, 1)
	if line > uint32(len(f.LineIdx)) { // #nosec G115
		return f.Len()
	}
	return f.LineIdx[line-1]
}

// Offset is the inverse of LineCol. Columns past the end of the line clamp
// to the newline.
func (f *File) Offset(pos LineCol) uint32 {
	start, end := f.LineStart(pos.Line), f.LineEnd(pos.Line)
	return min(start+max(pos.Col, 1)-1, end)
}

// Line returns the text of a 1-based line without its newline, or "" when
// the line does not exist.
func (f *File) Line(n uint32) string {
	if n == 0 || n > f.lineCount() {
		return ""
	}
	start, end := f.LineStart(n), f.LineEnd(n)
	if start >= end {
		return ""
	}
	return string(f.Content[start:end])
}
