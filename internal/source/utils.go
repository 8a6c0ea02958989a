package source

import (
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeSource strips a byte order mark and transcodes UTF-16 input to UTF-8.
// Content without a BOM is taken as UTF-8 unchanged.
func decodeSource(content []byte) ([]byte, FileFlags, error) {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return content[len(bomUTF8):], FileHadBOM, nil
	case bytes.HasPrefix(content, bomUTF16LE), bytes.HasPrefix(content, bomUTF16BE):
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(dec, content)
		if err != nil {
			return nil, 0, fmt.Errorf("decode utf-16: %w", err)
		}
		flags := FileHadBOM | FileDecodedUTF16
		if bytes.HasPrefix(content, bomUTF16BE) {
			flags |= FileUTF16BE
		}
		return out, flags, nil
	}
	return content, 0, nil
}

// Encode converts normalized content back to the on-disk form the file was
// loaded from: CRLF line endings, BOM and UTF-16 are restored per Flags.
func (f *File) Encode(content []byte) ([]byte, error) {
	out := content
	if f.Flags&FileNormalizedCRLF != 0 {
		out = bytes.ReplaceAll(out, []byte{'\n'}, []byte{'\r', '\n'})
	}
	switch {
	case f.Flags&FileDecodedUTF16 != 0:
		endian := unicode.LittleEndian
		if f.Flags&FileUTF16BE != 0 {
			endian = unicode.BigEndian
		}
		enc := unicode.UTF16(endian, unicode.UseBOM).NewEncoder()
		encoded, _, err := transform.Bytes(enc, out)
		if err != nil {
			return nil, fmt.Errorf("encode utf-16: %w", err)
		}
		return encoded, nil
	case f.Flags&FileHadBOM != 0:
		return append(append(make([]byte, 0, len(bomUTF8)+len(out)), bomUTF8...), out...), nil
	}
	return out, nil
}

// foldCRLF replaces every CRLF pair with LF and sets FileNormalizedCRLF
// when it changed anything. A lone '\r' is kept.
func foldCRLF(content []byte, flags *FileFlags) []byte {
	if !bytes.Contains(content, []byte("\r\n")) {
		return content
	}
	*flags |= FileNormalizedCRLF
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte{'\n'})
}

func buildLineIndex(content []byte) []uint32 {
	idx := make([]uint32, 0, bytes.Count(content, []byte{'\n'}))
	for off := 0; ; off++ {
		n := bytes.IndexByte(content[off:], '\n')
		if n < 0 {
			return idx
		}
		off += n
		idx = append(idx, uint32(off)) // #nosec G115 -- file size checked in Add
	}
}

// toLineCol counts the newlines strictly before off to find the line.
func toLineCol(lineIdx []uint32, off uint32) LineCol {
	line, _ := slices.BinarySearch(lineIdx, off)
	var start uint32
	if line > 0 {
		start = lineIdx[line-1] + 1
	}
	return LineCol{Line: uint32(line) + 1, Col: off - start + 1} // #nosec G115
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// AbsolutePath returns the absolute, slash-normalised form of p.
func AbsolutePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return normalizePath(abs), nil
}

// RelativePath returns p relative to baseDir. Paths that escape baseDir
// fall back to their absolute form.
func RelativePath(p, baseDir string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return normalizePath(abs), nil
	}
	return normalizePath(rel), nil
}
