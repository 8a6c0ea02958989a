package fix

import (
	"slices"

	"rustsafe/internal/diag"
)

// Option adjusts a fix built by Rewrite or Lazy. Nil options are ignored.
type Option func(*diag.Fix)

func WithApplicability(app diag.FixApplicability) Option {
	return func(f *diag.Fix) { f.Applicability = app }
}

func WithKind(kind diag.FixKind) Option {
	return func(f *diag.Fix) { f.Kind = kind }
}

// Preferred marks the fix as the one editors apply by default.
func Preferred() Option {
	return func(f *diag.Fix) { f.IsPreferred = true }
}

// WithID sets the identifier used by `fix --id`.
func WithID(id string) Option {
	return func(f *diag.Fix) { f.ID = id }
}

// WithRequiresAll marks a fix that is only valid together with its siblings;
// the single-fix modes refuse it.
func WithRequiresAll() Option {
	return func(f *diag.Fix) { f.RequiresAll = true }
}

// newFix starts every fix as a refactor.rewrite that is safe under the
// assist's own heuristics.
func newFix(title string, opts []Option) diag.Fix {
	f := diag.Fix{
		Title:         title,
		Kind:          diag.FixKindRefactorRewrite,
		Applicability: diag.FixApplicabilitySafeWithHeuristics,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&f)
		}
	}
	return f
}

// Rewrite builds an eager fix from ready edits.
func Rewrite(title string, edits []diag.TextEdit, opts ...Option) diag.Fix {
	f := newFix(title, opts)
	f.Edits = slices.Clone(edits)
	return f
}

// Lazy builds a fix whose edits are produced by thunk when the fix is
// materialised.
func Lazy(title string, thunk diag.FixThunk, opts ...Option) diag.Fix {
	f := newFix(title, opts)
	f.Thunk = thunk
	return f
}
