package diag

import (
	"slices"

	"rustsafe/internal/source"
)

// Note points at a secondary span, such as the rewrite target.
type Note struct {
	Span source.Span `json:"span"`
	Msg  string      `json:"msg"`
}

// Diagnostic is a value; the With* helpers return modified copies.
type Diagnostic struct {
	Severity Severity    `json:"severity"`
	Code     Code        `json:"code"`
	Message  string      `json:"message"`
	Primary  source.Span `json:"primary"`
	Notes    []Note      `json:"notes,omitempty"`
	Fixes    []Fix       `json:"fixes,omitempty"`
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(slices.Clip(d.Notes), Note{Span: sp, Msg: msg})
	return d
}

// WithFixSuggestion attaches a configured fix, eager or lazy.
func (d Diagnostic) WithFixSuggestion(fix Fix) Diagnostic {
	d.Fixes = append(slices.Clip(d.Fixes), fix)
	return d
}
