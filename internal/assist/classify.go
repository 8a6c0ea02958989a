package assist

import (
	"strings"

	"rustsafe/internal/syntax"
)

// CandidateSite is a call inside the region that matched an idiom.
type CandidateSite struct {
	Idiom IdiomKind
	Call  syntax.Node
	// Stmt is the direct child of the region body holding the call: a
	// let_declaration, expression_statement, or a tail expression.
	Stmt      syntax.Node
	Receiver  syntax.Node // method receiver, if any
	Args      []syntax.Node
	Qualifier string      // path before the function name, e.g. "std::ffi::CString"
	TypeArgs  syntax.Node // turbofish on the callee, if any
	Binding   Binding

	Companion *CompanionStatement
	Src, Dst  SliceRef // copy operands
}

// Binding captures how the call result is bound.
type Binding struct {
	Shape  BindingShape
	Target string      // pattern (with `mut`) or assignment left-hand side
	Type   syntax.Node // declared type of a let, if any
}

// signature is the structural identity of a call.
type signature struct {
	method    string // set for receiver.method(...)
	receiver  syntax.Node
	segments  []string // set for path calls: std::ptr::copy -> [std ptr copy]
	qualifier string
	typeArgs  syntax.Node
}

func callSignature(call syntax.Node) (signature, bool) {
	fn := call.Field("function")
	var sig signature
	if fn.Is(syntax.KindGenericFunction) {
		sig.typeArgs = fn.Field("type_arguments")
		fn = fn.Field("function")
	}
	switch {
	case fn.Is(syntax.KindFieldExpr):
		sig.method = fn.Field("field").Text()
		sig.receiver = fn.Field("value")
		return sig, sig.method != ""
	case fn.Is(syntax.KindScopedIdent):
		sig.segments = pathSegments(fn.Text())
		sig.qualifier = compact(fn.Field("path").Text())
		return sig, len(sig.segments) >= 2
	case fn.Is(syntax.KindIdentifier):
		sig.segments = []string{fn.Text()}
		return sig, true
	}
	return sig, false
}

// pathSegments splits a path on `::`, dropping whitespace and a leading `::`.
func pathSegments(path string) []string {
	segs := strings.Split(compact(path), "::")
	if len(segs) > 0 && segs[0] == "" {
		segs = segs[1:]
	}
	return segs
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// endsWith reports whether the path ends with the given segments.
func (s signature) endsWith(tail ...string) bool {
	if len(s.segments) < len(tail) {
		return false
	}
	off := len(s.segments) - len(tail)
	for i, t := range tail {
		if s.segments[off+i] != t {
			return false
		}
	}
	return true
}

func (s signature) last() string {
	if s.method != "" {
		return s.method
	}
	if len(s.segments) == 0 {
		return ""
	}
	return s.segments[len(s.segments)-1]
}

// matchIdiom maps a call signature and arity to a rewritable idiom.
func matchIdiom(sig signature, arity int) IdiomKind {
	if sig.method != "" {
		switch {
		case sig.method == "set_len" && arity == 1:
			return UncheckedLengthSet
		case sig.method == "get_unchecked" && arity == 1:
			return UncheckedIndexGet
		case sig.method == "get_unchecked_mut" && arity == 1:
			return UncheckedIndexGetMut
		}
		return IdiomNone
	}
	switch {
	case sig.endsWith("ptr", "copy") && arity == 3:
		return CopyWithin
	case sig.endsWith("ptr", "copy_nonoverlapping") && arity == 3:
		return NonOverlappingCopy
	case sig.endsWith("CString", "from_vec_unchecked") && arity == 1:
		return UncheckedCStringFromBytes
	case sig.endsWith("libc", "strlen") && arity == 1:
		return NativeCStringLength
	case (sig.endsWith("str", "from_utf8_unchecked") || sig.endsWith("String", "from_utf8_unchecked")) && arity == 1:
		return UncheckedBytesToText
	case sig.endsWith("mem", "transmute") && arity == 1:
		return RawBitReinterpret
	}
	return IdiomNone
}

func callArgs(call syntax.Node) []syntax.Node {
	var out []syntax.Node
	for _, a := range call.Field("arguments").NamedChildren() {
		if !syntax.IsComment(a.Kind()) && !a.Is(syntax.KindAttributeItem) {
			out = append(out, a)
		}
	}
	return out
}

// classify returns the first call in document order that matches an enabled
// idiom. A set_len whose guard fails is skipped and the scan continues; any
// later match ends the scan whether or not it can be rewritten.
func classify(c *Context, r *EscapeRegion) (*CandidateSite, bool) {
	for _, n := range r.Body.Descendants() {
		if !n.Is(syntax.KindCall) {
			continue
		}
		sig, ok := callSignature(n)
		if !ok {
			continue
		}
		args := callArgs(n)
		kind := matchIdiom(sig, len(args))
		if kind == IdiomNone || c.Disabled[kind] {
			continue
		}

		site := &CandidateSite{
			Idiom:     kind,
			Call:      n,
			Receiver:  sig.receiver,
			Args:      args,
			Qualifier: sig.qualifier,
			TypeArgs:  sig.typeArgs,
		}
		if kind == UncheckedLengthSet {
			comp, ok := findCapacityCompanion(r, site.Receiver)
			if !ok {
				c.note("classify", "set_len without capacity companion")
				continue
			}
			if w, ok := writeAfter(r, site.Receiver); ok {
				c.note("classify", "set_len vetoed by later write")
				c.decline(Decline{
					Kind:   kind,
					Call:   n.Span(),
					Cause:  w.Span(),
					Reason: "the buffer is written after the unsafe block",
				})
				continue
			}
			site.Companion = comp
		}
		c.note("classify", kind.String())
		return site, true
	}
	return nil, false
}
