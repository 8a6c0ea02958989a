package diag

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"rustsafe/internal/source"
)

// goldenLine is one "sev CODE path:line:col message" entry.
type goldenLine struct {
	sev, code, path string
	line, col       uint32
	msg             string
}

func (g goldenLine) String() string {
	return fmt.Sprintf("%s %s %s:%d:%d %s", g.sev, g.code, g.path, g.line, g.col, g.msg)
}

func compareGolden(a, b goldenLine) int {
	return cmp.Or(
		strings.Compare(a.path, b.path),
		cmp.Compare(a.line, b.line),
		cmp.Compare(a.col, b.col),
		strings.Compare(a.sev, b.sev),
		strings.Compare(a.code, b.code),
		strings.Compare(a.msg, b.msg),
	)
}

// FormatGoldenDiagnostics renders diags one per line in a stable order, for
// golden-file tests. Paths are relative to the FileSet base with forward
// slashes. Anything under target/ (cargo output) is left out. Notes become
// "note" lines when includeNotes is set.
func FormatGoldenDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil {
		return ""
	}
	var lines []goldenLine
	add := func(sev string, code Code, sp source.Span, msg string) {
		if int(sp.File) >= fs.Len() {
			return
		}
		path := goldenPath(fs.Get(sp.File).DisplayPath(source.PathRelative, fs.BaseDir()))
		if inTargetDir(path) {
			return
		}
		start, _ := fs.Resolve(sp)
		lines = append(lines, goldenLine{
			sev:  sev,
			code: code.ID(),
			path: path,
			line: start.Line,
			col:  start.Col,
			msg:  strings.Join(strings.Fields(msg), " "),
		})
	}
	for _, d := range diags {
		add(d.Severity.Label(), d.Code, d.Primary, d.Message)
		if includeNotes {
			for _, n := range d.Notes {
				add("note", d.Code, n.Span, n.Msg)
			}
		}
	}
	slices.SortStableFunc(lines, compareGolden)

	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return strings.Join(out, "\n")
}

func goldenPath(p string) string {
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

func inTargetDir(p string) bool {
	p = strings.TrimLeft(p, "/")
	return strings.HasPrefix(p, "target/") || strings.Contains(p, "/target/")
}
