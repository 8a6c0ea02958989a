package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"rustsafe/internal/diag"
	"rustsafe/internal/source"
)

// PrettyOpts controls the human-readable renderer.
type PrettyOpts struct {
	Color       bool
	Context     int8 // строк контекста вокруг основной строки
	PathMode    source.PathMode
	Width       uint8 // обрезка строк кода, 0 - без ограничения
	ShowNotes   bool
	ShowFixes   bool
	ShowPreview bool
}

type palette struct {
	err, warn, info, note, path, gutter, caret, added, removed *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan, color.Bold),
		note:    color.New(color.FgBlue),
		path:    color.New(color.Bold),
		gutter:  color.New(color.FgBlue),
		caret:   color.New(color.FgGreen, color.Bold),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.path, p.gutter, p.caret, p.added, p.removed} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes и Fixes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, pal)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	header := fmt.Sprintf("%s %s: %s", pal.severity(d.Severity).Sprint(d.Severity.String()), d.Code.ID(), d.Message)
	f := fileOf(fs, d.Primary)
	if f == nil {
		fmt.Fprintln(w, header)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", pal.path.Sprint(location(fs, f, d.Primary, opts.PathMode)), header)
	writeSnippet(w, fs, f, d.Primary, opts, pal)

	if opts.ShowNotes {
		for _, n := range d.Notes {
			if d.Code == diag.ObsTimings {
				fmt.Fprintf(w, "  %s %s\n", pal.note.Sprint("note:"), n.Msg)
				continue
			}
			nf := fileOf(fs, n.Span)
			if nf == nil {
				fmt.Fprintf(w, "  %s %s\n", pal.note.Sprint("note:"), n.Msg)
				continue
			}
			fmt.Fprintf(w, "  %s %s: %s\n", pal.note.Sprint("note:"), location(fs, nf, n.Span, opts.PathMode), n.Msg)
			if opts.Context > 0 {
				writeSnippet(w, fs, nf, n.Span, opts, pal)
			}
		}
	}

	if opts.ShowFixes {
		ctx := diag.FixBuildContext{FileSet: fs}
		for _, fix := range sortedFixes(d.Fixes) {
			resolved, err := fix.Resolve(ctx)
			if err != nil {
				fmt.Fprintf(w, "  %s %s (unavailable: %v)\n", pal.caret.Sprint("fix:"), fix.Title, err)
				continue
			}
			fmt.Fprintf(w, "  %s %s [%s, %s]\n", pal.caret.Sprint("fix:"), resolved.Title, resolved.Kind, resolved.Applicability)
			if !opts.ShowPreview {
				continue
			}
			preview, err := buildFixPreview(fs, resolved.Edits)
			if err != nil {
				continue
			}
			for _, line := range preview.before {
				fmt.Fprintf(w, "    %s\n", pal.removed.Sprint("- "+clip(line, opts.Width)))
			}
			for _, line := range preview.after {
				fmt.Fprintf(w, "    %s\n", pal.added.Sprint("+ "+clip(line, opts.Width)))
			}
		}
	}
}

func location(fs *source.FileSet, f *source.File, span source.Span, mode source.PathMode) string {
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", displayPath(fs, f, mode), start.Line, start.Col)
}

// writeSnippet печатает строку со span, Context строк перед ней и каретку под span.
func writeSnippet(w io.Writer, fs *source.FileSet, f *source.File, span source.Span, opts PrettyOpts, pal palette) {
	start, end := fs.Resolve(span)
	first := start.Line
	if opts.Context > 1 {
		back := uint32(opts.Context - 1)
		if back >= first {
			first = 1
		} else {
			first -= back
		}
	}
	gutterWidth := len(fmt.Sprint(start.Line))

	for ln := first; ln <= start.Line; ln++ {
		text := strings.TrimRight(f.Line(ln), "\r")
		fmt.Fprintf(w, "%s %s\n", pal.gutter.Sprintf("%*d |", gutterWidth, ln), clip(text, opts.Width))
	}

	line := f.Line(start.Line)
	col := min(int(start.Col)-1, len(line))
	endCol := len(line)
	if end.Line == start.Line {
		endCol = min(int(end.Col)-1, len(line))
	}
	pad := caretPad(line[:col])
	width := max(runewidth.StringWidth(line[col:endCol]), 1)
	marks := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "%s %s%s\n", pal.gutter.Sprint(strings.Repeat(" ", gutterWidth)+" |"), pad, pal.caret.Sprint(marks))
}

// caretPad повторяет отступ строки: табы сохраняются, остальное заменяется
// пробелами по ширине на экране.
func caretPad(prefix string) string {
	var sb strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			sb.WriteByte('\t')
			continue
		}
		sb.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return sb.String()
}

func clip(s string, width uint8) string {
	if width == 0 || runewidth.StringWidth(s) <= int(width) {
		return s
	}
	return runewidth.Truncate(s, int(width), "...")
}
