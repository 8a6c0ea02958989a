package diag

import (
	"errors"
	"fmt"

	"rustsafe/internal/source"
)

// FixKind classifies a fix the way editors group code actions.
type FixKind uint8

const (
	FixKindQuickFix FixKind = iota
	FixKindRefactor
	FixKindRefactorRewrite
	FixKindSourceAction
)

func (k FixKind) String() string {
	switch k {
	case FixKindQuickFix:
		return "quickfix"
	case FixKindRefactor:
		return "refactor"
	case FixKindRefactorRewrite:
		return "refactor.rewrite"
	case FixKindSourceAction:
		return "source"
	}
	return "unknown"
}

// FixApplicability expresses how much a fix can be trusted without review.
type FixApplicability uint8

const (
	FixApplicabilityAlwaysSafe FixApplicability = iota
	FixApplicabilitySafeWithHeuristics
	FixApplicabilityManualReview
)

func (a FixApplicability) String() string {
	switch a {
	case FixApplicabilityAlwaysSafe:
		return "always-safe"
	case FixApplicabilitySafeWithHeuristics:
		return "safe-with-heuristics"
	case FixApplicabilityManualReview:
		return "manual-review"
	}
	return "unknown"
}

// TextEdit replaces Span with NewText. OldText, when set, must match the
// current content for the edit to apply.
type TextEdit struct {
	Span    source.Span `msgpack:"span" json:"span"`
	NewText string      `msgpack:"new" json:"new_text"`
	OldText string      `msgpack:"old,omitempty" json:"old_text,omitempty"`
}

// FixBuildContext is handed to lazy fix builders.
type FixBuildContext struct {
	FileSet *source.FileSet
}

// FixThunk builds a fix on demand.
type FixThunk interface {
	BuildFix(ctx FixBuildContext) (Fix, error)
}

// FixThunkFunc adapts a function to FixThunk.
type FixThunkFunc func(ctx FixBuildContext) (Fix, error)

func (f FixThunkFunc) BuildFix(ctx FixBuildContext) (Fix, error) { return f(ctx) }

type Fix struct {
	ID            string           `msgpack:"id" json:"id"`
	Title         string           `msgpack:"title" json:"title"`
	Kind          FixKind          `msgpack:"kind" json:"kind"`
	Applicability FixApplicability `msgpack:"app" json:"applicability"`
	IsPreferred   bool             `msgpack:"preferred,omitempty" json:"preferred,omitempty"`
	RequiresAll   bool             `msgpack:"requires_all,omitempty" json:"requires_all,omitempty"`
	Edits         []TextEdit       `msgpack:"edits" json:"edits"`
	Thunk         FixThunk         `msgpack:"-" json:"-"`
}

// ErrEmptyThunk is returned when a lazy fix produces no edits.
var ErrEmptyThunk = errors.New("lazy fix produced no edits")

// Resolve runs the thunk if present. Metadata set on the placeholder wins
// over whatever the thunk returns, so callers can list a fix before building it.
func (f Fix) Resolve(ctx FixBuildContext) (Fix, error) {
	if f.Thunk == nil {
		return f, nil
	}
	built, err := f.Thunk.BuildFix(ctx)
	if err != nil {
		return Fix{}, fmt.Errorf("fix %q: %w", f.Title, err)
	}
	if len(built.Edits) == 0 {
		return Fix{}, fmt.Errorf("fix %q: %w", f.Title, ErrEmptyThunk)
	}
	if f.ID != "" {
		built.ID = f.ID
	}
	if f.Title != "" {
		built.Title = f.Title
	}
	if f.IsPreferred {
		built.IsPreferred = true
	}
	built.Thunk = nil
	return built, nil
}

// MaterializeFixes resolves every fix, stopping at the first failure.
func MaterializeFixes(ctx FixBuildContext, fixes []Fix) ([]Fix, error) {
	out := make([]Fix, 0, len(fixes))
	for _, f := range fixes {
		r, err := f.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
