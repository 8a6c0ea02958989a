package diag

import "rustsafe/internal/source"

// Reporter receives diagnostics from the scan stages.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter stores diagnostics in a Bag, subject to its cap.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag != nil {
		r.Bag.Add(d)
	}
}

// DedupReporter drops a diagnostic whose code, severity, primary span and
// message were already reported. tree-sitter tends to flag the same broken
// region more than once.
type DedupReporter struct {
	next Reporter
	seen map[dedupKey]struct{}
}

type dedupKey struct {
	code    Code
	sev     Severity
	primary source.Span
	msg     string
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(d Diagnostic) {
	key := dedupKey{code: d.Code, sev: d.Severity, primary: d.Primary, msg: d.Message}
	if _, dup := r.seen[key]; dup {
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(d)
	}
}

// ReportBuilder assembles a diagnostic and hands it to a Reporter on Emit.
// The fluent methods are nil-safe.
type ReportBuilder struct {
	to      Reporter
	diag    Diagnostic
	emitted bool
}

func NewReportBuilder(r Reporter, sev Severity, code Code, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{to: r, diag: New(sev, code, primary, msg)}
}

func ReportError(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevError, code, primary, msg)
}

func ReportWarning(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevWarning, code, primary, msg)
}

func ReportInfo(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevInfo, code, primary, msg)
}

func (b *ReportBuilder) WithNote(sp source.Span, msg string) *ReportBuilder {
	if b != nil {
		b.diag = b.diag.WithNote(sp, msg)
	}
	return b
}

// WithFixSuggestion attaches a configured fix, eager or lazy.
func (b *ReportBuilder) WithFixSuggestion(fix Fix) *ReportBuilder {
	if b != nil {
		b.diag = b.diag.WithFixSuggestion(fix)
	}
	return b
}

// Emit reports the diagnostic once; later calls do nothing.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	b.emitted = true
	if b.to != nil {
		b.to.Report(b.diag)
	}
}

// Diagnostic returns what Emit would report.
func (b *ReportBuilder) Diagnostic() Diagnostic {
	if b == nil {
		return Diagnostic{}
	}
	return b.diag
}
