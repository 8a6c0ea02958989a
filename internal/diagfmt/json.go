package diagfmt

import (
	"encoding/json"
	"io"

	"rustsafe/internal/diag"
	"rustsafe/internal/source"
)

// JSONOpts controls the JSON renderer. Max trims the output only; the bag
// keeps everything.
type JSONOpts struct {
	PathMode         source.PathMode
	Max              int
	IncludePositions bool
	IncludeNotes     bool
	IncludeFixes     bool
	IncludePreviews  bool
}

// LocationJSON is a byte range plus, with IncludePositions, 1-based
// line/column pairs.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// FixEditJSON carries before/after lines when previews are requested.
type FixEditJSON struct {
	Location    LocationJSON `json:"location"`
	NewText     string       `json:"new_text"`
	OldText     string       `json:"old_text,omitempty"`
	BeforeLines []string     `json:"before_lines,omitempty"`
	AfterLines  []string     `json:"after_lines,omitempty"`
}

// FixJSON is a resolved fix; BuildError is set instead of Edits when a lazy
// fix could not be rebuilt.
type FixJSON struct {
	ID            string        `json:"id,omitempty"`
	Title         string        `json:"title"`
	Kind          string        `json:"kind"`
	Applicability string        `json:"applicability"`
	IsPreferred   bool          `json:"is_preferred,omitempty"`
	BuildError    string        `json:"build_error,omitempty"`
	Edits         []FixEditJSON `json:"edits,omitempty"`
}

type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title,omitempty"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
	Fixes    []FixJSON    `json:"fixes,omitempty"`
}

// DiagnosticsOutput is the document written by JSON. Dropped counts
// diagnostics refused by the bag's limit.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Dropped     int              `json:"dropped,omitempty"`
}

type jsonBuilder struct {
	fs   *source.FileSet
	opts JSONOpts
}

func (b jsonBuilder) location(span source.Span) LocationJSON {
	loc := LocationJSON{StartByte: span.Start, EndByte: span.End}
	f := fileOf(b.fs, span)
	if f == nil {
		return loc
	}
	loc.File = displayPath(b.fs, f, b.opts.PathMode)
	if b.opts.IncludePositions {
		start, end := b.fs.Resolve(span)
		loc.StartLine, loc.StartCol = start.Line, start.Col
		loc.EndLine, loc.EndCol = end.Line, end.Col
	}
	return loc
}

func (b jsonBuilder) diagnostic(d *diag.Diagnostic) DiagnosticJSON {
	out := DiagnosticJSON{
		Severity: d.Severity.String(),
		Code:     d.Code.ID(),
		Title:    d.Code.Title(),
		Message:  d.Message,
		Location: b.location(d.Primary),
	}
	// the timing payload lives in the note
	if b.opts.IncludeNotes || d.Code == diag.ObsTimings {
		for _, n := range d.Notes {
			out.Notes = append(out.Notes, NoteJSON{Message: n.Msg, Location: b.location(n.Span)})
		}
	}
	if b.opts.IncludeFixes {
		for _, f := range sortedFixes(d.Fixes) {
			out.Fixes = append(out.Fixes, b.fix(f))
		}
	}
	return out
}

func (b jsonBuilder) fix(f diag.Fix) FixJSON {
	resolved, err := f.Resolve(diag.FixBuildContext{FileSet: b.fs})
	out := FixJSON{
		ID:            resolved.ID,
		Title:         resolved.Title,
		Kind:          resolved.Kind.String(),
		Applicability: resolved.Applicability.String(),
		IsPreferred:   resolved.IsPreferred,
	}
	if err != nil {
		out.BuildError = err.Error()
		return out
	}
	for _, e := range resolved.Edits {
		out.Edits = append(out.Edits, b.edit(e))
	}
	return out
}

func (b jsonBuilder) edit(e diag.TextEdit) FixEditJSON {
	out := FixEditJSON{Location: b.location(e.Span), NewText: e.NewText, OldText: e.OldText}
	if b.opts.IncludePreviews {
		if p, err := buildFixPreview(b.fs, []diag.TextEdit{e}); err == nil {
			out.BeforeLines, out.AfterLines = p.before, p.after
		}
	}
	return out
}

// BuildDiagnosticsOutput converts bag without serializing it.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	b := jsonBuilder{fs: fs, opts: opts}
	out := DiagnosticsOutput{
		Diagnostics: make([]DiagnosticJSON, 0, len(items)),
		Dropped:     bag.Dropped(),
	}
	for i := range items {
		out.Diagnostics = append(out.Diagnostics, b.diagnostic(&items[i]))
	}
	out.Count = len(out.Diagnostics)
	return out
}

// JSON writes bag as one indented DiagnosticsOutput document.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
