// Package syntax is a read-only view over a tree-sitter Rust parse tree.
//
// Nodes are small values carrying their owning Tree, so callers can ask for
// text and spans without threading the source buffer around. A zero Node
// stands for "absent" and every accessor on it is safe.
package syntax

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"rustsafe/internal/source"
	"rustsafe/internal/trace"
)

// ErrNoTree is returned when tree-sitter yields no tree (cancelled parse).
var ErrNoTree = errors.New("tree-sitter returned no tree")

// Tree owns a parsed Rust file.
type Tree struct {
	file *source.File
	tree *sitter.Tree
}

// Parse parses file as Rust. A fresh parser is created per call, so
// concurrent parses of different files are safe.
func Parse(ctx context.Context, file *source.File) (*Tree, error) {
	_, span := trace.Start(ctx, trace.ScopeFile, "parse")
	defer span.End(file.Path)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(rust.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, file.Content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file.Path, err)
	}
	if tree == nil {
		return nil, ErrNoTree
	}
	return &Tree{file: file, tree: tree}, nil
}

// Close releases the tree-sitter tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// File returns the file the tree was parsed from.
func (t *Tree) File() *source.File { return t.file }

// Source returns the parsed bytes.
func (t *Tree) Source() []byte { return t.file.Content }

// Root returns the source_file node.
func (t *Tree) Root() Node {
	return wrap(t, t.tree.RootNode())
}

// HasErrors reports whether tree-sitter had to recover from syntax errors.
func (t *Tree) HasErrors() bool {
	return t.tree.RootNode().HasError()
}

// ErrorNodes returns ERROR and MISSING nodes in document order.
func (t *Tree) ErrorNodes() []Node {
	var out []Node
	t.Root().Walk(func(n Node) bool {
		if n.Kind() == KindError || n.n.IsMissing() {
			out = append(out, n)
			return false
		}
		return n.n.HasError()
	})
	return out
}

// Text returns the source text in [start, end).
func (t *Tree) Text(start, end uint32) string {
	content := t.file.Content
	if end > uint32(len(content)) { // #nosec G115 -- bounded by source.FileSet
		end = uint32(len(content)) // #nosec G115
	}
	if start >= end {
		return ""
	}
	return string(content[start:end])
}

// LineStart returns the offset of the first byte of the line containing off.
func (t *Tree) LineStart(off uint32) uint32 {
	return t.file.LineStart(t.file.LineCol(off).Line)
}

// LineEnd returns the offset of the '\n' ending the line containing off,
// or the file length on the last line.
func (t *Tree) LineEnd(off uint32) uint32 {
	return t.file.LineEnd(t.file.LineCol(off).Line)
}

// IndentAt returns the leading whitespace of the line containing off.
func (t *Tree) IndentAt(off uint32) string {
	content := t.file.Content
	start := t.LineStart(off)
	end := start
	for end < uint32(len(content)) && (content[end] == ' ' || content[end] == '\t') { // #nosec G115
		end++
	}
	return string(content[start:end])
}

// OnlyWhitespaceBefore reports whether off is preceded only by blanks on its line.
func (t *Tree) OnlyWhitespaceBefore(off uint32) bool {
	content := t.file.Content
	for i := t.LineStart(off); i < off; i++ {
		if content[i] != ' ' && content[i] != '\t' {
			return false
		}
	}
	return true
}

// OnlyWhitespaceAfter reports whether off is followed only by blanks up to
// the end of its line. The '\r' of a CRLF terminator counts as blank.
func (t *Tree) OnlyWhitespaceAfter(off uint32) bool {
	content := t.file.Content
	end := t.LineEnd(off)
	for i := off; i < end; i++ {
		switch {
		case content[i] == ' ', content[i] == '\t':
		case content[i] == '\r' && i+1 == end:
		default:
			return false
		}
	}
	return true
}

// LineBreak returns the terminator of the line containing off, "\r\n" or
// "\n". A last line without one takes the file's first terminator.
func (t *Tree) LineBreak(off uint32) string {
	content := t.file.Content
	end := t.LineEnd(off)
	if end >= t.file.Len() {
		if len(t.file.LineIdx) == 0 {
			return "\n"
		}
		end = t.file.LineIdx[0]
	}
	if end > 0 && content[end-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
