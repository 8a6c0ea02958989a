package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"rustsafe/internal/diag"
	"rustsafe/internal/source"
)

// TestJSONBasic проверяет базовое JSON форматирование
func TestJSONBasic(t *testing.T) {
	bag, fs := sampleBag(t, "main.rs")

	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: source.PathBasename})
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput: %s", err, buf.String())
	}
	if output.Count != 1 || len(output.Diagnostics) != 1 {
		t.Fatalf("Expected 1 diagnostic, got %d", output.Count)
	}

	d := output.Diagnostics[0]
	if d.Severity != "WARNING" || d.Code != "RWR2005" {
		t.Errorf("unexpected severity/code %s %s", d.Severity, d.Code)
	}
	if d.Location.File != "main.rs" {
		t.Errorf("Expected file=main.rs, got %s", d.Location.File)
	}
	if d.Location.StartByte != 16 || d.Location.EndByte != 22 {
		t.Errorf("unexpected byte range %d..%d", d.Location.StartByte, d.Location.EndByte)
	}
	if d.Location.StartLine != 2 || d.Location.StartCol != 5 {
		t.Errorf("unexpected position %d:%d", d.Location.StartLine, d.Location.StartCol)
	}
	if len(d.Notes) != 0 || len(d.Fixes) != 0 {
		t.Errorf("notes and fixes should be opt-in")
	}
}

// TestJSONWithNotesAndFixes проверяет JSON с заметками и исправлениями
func TestJSONWithNotesAndFixes(t *testing.T) {
	bag, fs := sampleBag(t, "main.rs")

	var buf bytes.Buffer
	opts := JSONOpts{
		IncludePositions: true,
		PathMode:         source.PathBasename,
		IncludeNotes:     true,
		IncludeFixes:     true,
		IncludePreviews:  true,
	}
	if err := JSON(&buf, bag, fs, opts); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	d := output.Diagnostics[0]

	if len(d.Notes) != 1 || d.Notes[0].Message != "rewrite target" {
		t.Fatalf("unexpected notes: %+v", d.Notes)
	}
	if len(d.Fixes) != 1 {
		t.Fatalf("Expected 1 fix, got %d", len(d.Fixes))
	}
	fix := d.Fixes[0]
	if fix.ID != "convert_unsafe_to_safe@16" || !fix.IsPreferred {
		t.Errorf("unexpected fix metadata: %+v", fix)
	}
	if fix.Kind != "refactor.rewrite" || fix.Applicability != "safe-with-heuristics" {
		t.Errorf("unexpected kind/applicability %s %s", fix.Kind, fix.Applicability)
	}
	if fix.BuildError != "" {
		t.Fatalf("Unexpected build error: %s", fix.BuildError)
	}
	if len(fix.Edits) != 1 {
		t.Fatalf("Expected 1 edit, got %d", len(fix.Edits))
	}
	edit := fix.Edits[0]
	if edit.NewText != "    let index = vec.get(5).unwrap();\n" {
		t.Errorf("unexpected new_text %q", edit.NewText)
	}
	if len(edit.BeforeLines) != 3 || len(edit.AfterLines) != 1 || !strings.Contains(edit.AfterLines[0], "vec.get(5)") {
		t.Errorf("unexpected preview: %q / %q", edit.BeforeLines, edit.AfterLines)
	}
}

func TestJSONMaxAndTimings(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("a.rs", []byte("fn a() {}\n"))
	f := fs.Get(fileID)

	bag := diag.NewBag(4)
	bag.Add(diag.New(diag.SevInfo, diag.ObsTimings, f.Span(0, 0), "timings").WithNote(f.Span(0, 0), `{"kind":"scan"}`))
	bag.Add(diag.New(diag.SevWarning, diag.ParseSyntaxError, f.Span(0, 2), "syntax error"))

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{Max: 1}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if output.Count != 1 {
		t.Fatalf("Max not honoured: %d", output.Count)
	}
	// timing notes are always included
	if len(output.Diagnostics[0].Notes) != 1 {
		t.Fatalf("timing payload dropped")
	}
}

func TestSarif(t *testing.T) {
	bag, fs := sampleBag(t, "main.rs")

	var buf bytes.Buffer
	err := Sarif(&buf, bag, fs, SarifRunMeta{ToolName: "rustsafe", ToolVersion: "0.1.0", InvocationArgs: []string{"diag", "main.rs"}})
	if err != nil {
		t.Fatalf("Sarif() error: %v", err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("unexpected log header: %+v", log)
	}
	run := log.Runs[0]
	if len(run.Tool.Driver.Rules) != 1 || run.Tool.Driver.Rules[0].ID != "RWR2005" {
		t.Fatalf("unexpected rules: %+v", run.Tool.Driver.Rules)
	}
	if len(run.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(run.Results))
	}
	res := run.Results[0]
	if res.Level != "warning" || res.Locations[0].PhysicalLocation.Region.StartLine != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Fixes) != 1 || res.Fixes[0].ArtifactChanges[0].Replacements[0].DeletedRegion.ByteLength != 61 {
		t.Fatalf("unexpected fixes: %+v", res.Fixes)
	}
}
