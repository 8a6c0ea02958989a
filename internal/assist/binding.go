package assist

import (
	"rustsafe/internal/syntax"
)

// bindSite finds the statement holding the call and how its value is bound.
// The statement must be a direct child of the region body.
func bindSite(r *EscapeRegion, site *CandidateSite) bool {
	call := site.Call
	parent := call.Parent()

	switch {
	case parent.Is(syntax.KindLet):
		if !parent.Field("value").Same(call) || !parent.Field("alternative").IsNil() {
			return false
		}
		pat := parent.Field("pattern")
		start := pat.Start()
		if mut := parent.FirstChildOfKind(syntax.KindMutable); !mut.IsNil() && mut.Start() < start {
			start = mut.Start()
		}
		site.Stmt = parent
		site.Binding = Binding{
			Shape:  ShapeDeclaration,
			Target: r.Body.Tree().Text(start, pat.End()),
			Type:   parent.Field("type"),
		}

	case parent.Is(syntax.KindAssignment):
		if !parent.Field("right").Same(call) {
			return false
		}
		site.Binding = Binding{Shape: ShapeAssignment, Target: parent.Field("left").Text()}
		site.Stmt = parent
		if gp := parent.Parent(); gp.Is(syntax.KindExprStatement) {
			site.Stmt = gp
		}

	case parent.Is(syntax.KindExprStatement):
		site.Stmt = parent

	case parent.Same(r.Body):
		site.Stmt = call

	default:
		return false
	}

	if !r.contains(site.Stmt) {
		return false
	}
	if site.Idiom.needsBinding() {
		return site.Binding.Shape != ShapeNone
	}
	return site.Binding.Shape == ShapeNone
}
