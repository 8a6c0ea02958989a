package syntax

// TokensAt returns the leaf tokens touching off: the token ending at off
// (if any) followed by the token starting at or spanning off.
func (t *Tree) TokensAt(off uint32) []Node {
	var out []Node
	t.Root().Walk(func(n Node) bool {
		if off < n.Start() || off > n.End() {
			return false
		}
		if n.ChildCount() == 0 && n.End() > n.Start() {
			out = append(out, n)
		}
		return true
	})
	return out
}

// NodeAt returns the smallest named node whose range contains off.
func (t *Tree) NodeAt(off uint32) Node {
	cur := t.Root()
	if off > cur.End() {
		return Node{}
	}
	for {
		next := Node{}
		for _, c := range cur.NamedChildren() {
			if off >= c.Start() && off < c.End() {
				next = c
				break
			}
		}
		if next.IsNil() {
			return cur
		}
		cur = next
	}
}

// EnclosingOfKind returns n or its nearest ancestor of the given kind.
func EnclosingOfKind(n Node, kind string) Node {
	for cur := n; !cur.IsNil(); cur = cur.Parent() {
		if cur.Is(kind) {
			return cur
		}
	}
	return Node{}
}
