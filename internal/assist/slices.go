package assist

import (
	"rustsafe/internal/syntax"
)

// SliceRef is an index expression operand of a pointer copy:
// base[start..end] or base[index].
type SliceRef struct {
	Base  string
	Start string // empty when the range has no lower bound
	End   string
}

// startOr returns the start bound, or def when the range omits it.
func (s SliceRef) startOr(def string) string {
	if s.Start == "" {
		return def
	}
	return s.Start
}

// resolveSlice finds the index expression behind a copy argument: first
// inline in the argument, then through the let that bound a plain name.
func resolveSlice(r *EscapeRegion, arg syntax.Node) (SliceRef, bool) {
	if idx := arg.FirstDescendant(syntax.KindIndexExpr); !idx.IsNil() {
		return sliceFromIndex(idx)
	}
	if !arg.Is(syntax.KindIdentifier) {
		return SliceRef{}, false
	}
	value, ok := findLetValue(r, arg.Text())
	if !ok {
		return SliceRef{}, false
	}
	idx := value.FirstDescendant(syntax.KindIndexExpr)
	if idx.IsNil() {
		return SliceRef{}, false
	}
	return sliceFromIndex(idx)
}

func sliceFromIndex(idx syntax.Node) (SliceRef, bool) {
	named := idx.NamedChildren()
	if len(named) != 2 {
		return SliceRef{}, false
	}
	ref := SliceRef{Base: named[0].Text()}
	index := named[1]
	if !index.Is(syntax.KindRangeExpr) {
		ref.Start = index.Text()
		return ref, ref.Start != ""
	}

	// range_expression has no fields; the operator token splits the bounds.
	var op syntax.Node
	for _, c := range index.Children() {
		if !c.IsNamed() && (c.Kind() == ".." || c.Kind() == "..=" || c.Kind() == "...") {
			op = c
			break
		}
	}
	if op.IsNil() {
		return SliceRef{}, false
	}
	for _, c := range index.NamedChildren() {
		switch {
		case c.End() <= op.Start():
			ref.Start = c.Text()
		case c.Start() >= op.End():
			ref.End = c.Text()
		}
	}
	return ref, true
}

// resolveCopy fills Src and Dst of a copy site.
func resolveCopy(r *EscapeRegion, site *CandidateSite) bool {
	src, ok := resolveSlice(r, site.Args[0])
	if !ok {
		return false
	}
	dst, ok := resolveSlice(r, site.Args[1])
	if !ok {
		return false
	}
	site.Src, site.Dst = src, dst
	return true
}
