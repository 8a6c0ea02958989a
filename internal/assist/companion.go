package assist

import (
	"rustsafe/internal/syntax"
)

// CompanionStatement is a statement outside the region consumed by the rewrite.
type CompanionStatement struct {
	Kind CompanionKind
	Stmt syntax.Node
}

var writeMethods = map[string]bool{
	"write":       true,
	"write_all":   true,
	"write_bytes": true,
}

// findCapacityCompanion scans backward from the region, nearest first, for
// the statement that gave receiver its capacity. A let rebinding the same
// name without with_capacity ends the scan.
func findCapacityCompanion(r *EscapeRegion, receiver syntax.Node) (*CompanionStatement, bool) {
	name := compact(receiver.Text())
	if name == "" {
		return nil, false
	}
	for _, s := range r.Anchor.Siblings(syntax.Prev) {
		switch {
		case s.Is(syntax.KindLet):
			if compact(s.Field("pattern").Text()) != name {
				continue
			}
			if hasCallNamed(s.Field("value"), "with_capacity") {
				return &CompanionStatement{Kind: CompanionDeclaration, Stmt: s}, true
			}
			return nil, false

		case s.Is(syntax.KindExprStatement):
			call := s.NamedChild(0)
			if !call.Is(syntax.KindCall) {
				continue
			}
			sig, ok := callSignature(call)
			if !ok || (sig.method != "reserve" && sig.method != "reserve_exact") {
				continue
			}
			if compact(sig.receiver.Text()) == name && len(callArgs(call)) == 1 {
				return &CompanionStatement{Kind: CompanionReserve, Stmt: s}, true
			}
		}
	}
	return nil, false
}

// writeAfter returns the first statement after the region that both names
// the receiver and writes into a buffer.
func writeAfter(r *EscapeRegion, receiver syntax.Node) (syntax.Node, bool) {
	root := rootIdent(receiver)
	if root == "" {
		return syntax.Node{}, false
	}
	for _, s := range r.Anchor.Siblings(syntax.Next) {
		if mentions(s, root) && hasWrite(s) {
			return s, true
		}
	}
	return syntax.Node{}, false
}

// rootIdent returns the leftmost identifier of an expression: `buf` for
// `buf`, `self` for `self.buf`.
func rootIdent(n syntax.Node) string {
	if n.Is(syntax.KindIdentifier) || n.Is(syntax.KindSelf) {
		return n.Text()
	}
	for cur := n; !cur.IsNil(); cur = cur.NamedChild(0) {
		if cur.Is(syntax.KindIdentifier) || cur.Is(syntax.KindSelf) {
			return cur.Text()
		}
	}
	return ""
}

func mentions(n syntax.Node, ident string) bool {
	found := false
	n.Walk(func(c syntax.Node) bool {
		if found {
			return false
		}
		if (c.Is(syntax.KindIdentifier) || c.Is(syntax.KindSelf)) && c.Text() == ident {
			found = true
		}
		return true
	})
	return found
}

// hasWrite looks for write calls (`w.write(..)`, `ptr::write(..)`) and
// `write!`/`writeln!` macros.
func hasWrite(n syntax.Node) bool {
	found := false
	n.Walk(func(c syntax.Node) bool {
		if found {
			return false
		}
		switch {
		case c.Is(syntax.KindCall):
			if sig, ok := callSignature(c); ok {
				if sig.method != "" && writeMethods[sig.method] {
					found = true
				} else if sig.method == "" && (sig.endsWith("ptr", "write") || sig.endsWith("ptr", "write_bytes")) {
					found = true
				}
			}
		case c.Is(syntax.KindMacroInvocation):
			name := c.Field("macro").Text()
			if name == "write" || name == "writeln" {
				found = true
			}
		}
		return true
	})
	return found
}

// hasCallNamed reports whether n contains a call whose method or final
// path segment is name.
func hasCallNamed(n syntax.Node, name string) bool {
	found := false
	n.Walk(func(c syntax.Node) bool {
		if found {
			return false
		}
		if c.Is(syntax.KindCall) {
			if sig, ok := callSignature(c); ok && sig.last() == name {
				found = true
			}
		}
		return true
	})
	return found
}

// findLetValue returns the initialiser of the nearest earlier `let name = ...`.
func findLetValue(r *EscapeRegion, name string) (syntax.Node, bool) {
	for _, s := range r.Anchor.Siblings(syntax.Prev) {
		if s.Is(syntax.KindLet) && compact(s.Field("pattern").Text()) == name {
			v := s.Field("value")
			return v, !v.IsNil()
		}
	}
	return syntax.Node{}, false
}
