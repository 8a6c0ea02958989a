package assist

import (
	"fmt"
	"sort"

	"rustsafe/internal/diag"
	"rustsafe/internal/fix"
	"rustsafe/internal/source"
)

// AssistID names a registered assist. Kind is always refactor.rewrite here.
type AssistID struct {
	Name string
	Kind diag.FixKind
}

// Assist is one registered suggestion. Edits are built on demand.
type Assist struct {
	ID     AssistID
	Label  string
	Target source.Span
	Code   diag.Code
	Idiom  IdiomKind

	file  *source.File
	build func(*EditBuilder)
}

// Assists collects suggestions for one file.
type Assists struct {
	file  *source.File
	items []Assist
	// pending metadata for the next Add
	code  diag.Code
	idiom IdiomKind
}

// NewAssists creates a sink for edits against file.
func NewAssists(file *source.File) *Assists {
	return &Assists{file: file}
}

// Add registers an assist. It returns true so callers can `return acc.Add(...)`.
func (a *Assists) Add(id AssistID, label string, target source.Span, build func(*EditBuilder)) bool {
	a.items = append(a.items, Assist{
		ID:     id,
		Label:  label,
		Target: target,
		Code:   a.code,
		Idiom:  a.idiom,
		file:   a.file,
		build:  build,
	})
	a.code, a.idiom = diag.UnknownCode, IdiomNone
	return true
}

func (a *Assists) tag(code diag.Code, idiom IdiomKind) {
	a.code, a.idiom = code, idiom
}

// Items returns the registered assists.
func (a *Assists) Items() []Assist { return a.items }

// Len returns the number of registered assists.
func (a *Assists) Len() int { return len(a.items) }

// Edits runs the edit builder and returns edits sorted by position.
func (as Assist) Edits() []diag.TextEdit {
	b := &EditBuilder{file: as.file}
	if as.build != nil {
		as.build(b)
	}
	return b.Finish()
}

// Fix describes the assist as a lazy diag.Fix.
func (as Assist) Fix() diag.Fix {
	thunk := diag.FixThunkFunc(func(diag.FixBuildContext) (diag.Fix, error) {
		return fix.Rewrite(as.Label, as.Edits(), fix.WithKind(as.ID.Kind)), nil
	})
	return fix.Lazy(as.Label, thunk,
		fix.WithID(fmt.Sprintf("%s@%d", as.ID.Name, as.Target.Start)),
		fix.WithKind(as.ID.Kind),
		fix.Preferred(),
	)
}

// EditBuilder records delete/replace/insert operations over original offsets.
type EditBuilder struct {
	file  *source.File
	edits []diag.TextEdit
}

func (b *EditBuilder) span(start, end uint32) source.Span {
	return source.Span{File: b.file.ID, Start: start, End: end}
}

func (b *EditBuilder) guard(sp source.Span) string {
	if sp.Empty() || sp.End > b.file.Len() {
		return ""
	}
	return string(b.file.Content[sp.Start:sp.End])
}

// Delete removes the bytes covered by sp.
func (b *EditBuilder) Delete(sp source.Span) {
	b.edits = append(b.edits, diag.TextEdit{Span: sp, OldText: b.guard(sp)})
}

// Replace swaps the bytes covered by sp for text.
func (b *EditBuilder) Replace(sp source.Span, text string) {
	b.edits = append(b.edits, diag.TextEdit{Span: sp, NewText: text, OldText: b.guard(sp)})
}

// Insert places text at offset at.
func (b *EditBuilder) Insert(at uint32, text string) {
	b.edits = append(b.edits, diag.TextEdit{Span: b.span(at, at), NewText: text})
}

// Finish returns the recorded edits ordered by start offset.
func (b *EditBuilder) Finish() []diag.TextEdit {
	out := append([]diag.TextEdit(nil), b.edits...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start < out[j].Span.Start
	})
	return out
}
