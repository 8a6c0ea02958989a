package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"

	"rustsafe/internal/source"
)

// Node is a handle to a syntax node. The zero value is the absent node.
type Node struct {
	t *Tree
	n *sitter.Node
}

func wrap(t *Tree, n *sitter.Node) Node {
	if n == nil || n.IsNull() {
		return Node{}
	}
	return Node{t: t, n: n}
}

// IsNil reports whether the node is absent.
func (n Node) IsNil() bool { return n.n == nil }

// Kind returns the grammar kind, e.g. "call_expression". Empty for nil nodes.
func (n Node) Kind() string {
	if n.n == nil {
		return ""
	}
	return n.n.Type()
}

// Is reports whether the node has the given kind.
func (n Node) Is(kind string) bool { return n.n != nil && n.n.Type() == kind }

// IsNamed reports whether the node is a named grammar node (not punctuation).
func (n Node) IsNamed() bool { return n.n != nil && n.n.IsNamed() }

// HasError reports whether the node or one of its descendants is a syntax error.
func (n Node) HasError() bool { return n.n != nil && n.n.HasError() }

// Tree returns the owning tree.
func (n Node) Tree() *Tree { return n.t }

// Start returns the byte offset of the first byte.
func (n Node) Start() uint32 {
	if n.n == nil {
		return 0
	}
	return n.n.StartByte()
}

// End returns the byte offset just past the last byte.
func (n Node) End() uint32 {
	if n.n == nil {
		return 0
	}
	return n.n.EndByte()
}

// Span returns the node range in the owning file.
func (n Node) Span() source.Span {
	if n.n == nil {
		return source.Span{}
	}
	return source.Span{File: n.t.file.ID, Start: n.Start(), End: n.End()}
}

// Text returns the verbatim source text of the node.
func (n Node) Text() string {
	if n.n == nil {
		return ""
	}
	return n.t.Text(n.Start(), n.End())
}

// Same reports whether both handles denote the same node.
func (n Node) Same(other Node) bool {
	if n.n == nil || other.n == nil {
		return n.n == nil && other.n == nil
	}
	return n.n.Equal(other.n)
}

// Parent returns the parent node, nil at the root.
func (n Node) Parent() Node {
	if n.n == nil {
		return Node{}
	}
	return wrap(n.t, n.n.Parent())
}

// Field returns the child stored under a grammar field such as "value".
func (n Node) Field(name string) Node {
	if n.n == nil {
		return Node{}
	}
	return wrap(n.t, n.n.ChildByFieldName(name))
}

// ChildCount returns the number of children including anonymous tokens.
func (n Node) ChildCount() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.ChildCount())
}

// Child returns the i-th child including anonymous tokens.
func (n Node) Child(i int) Node {
	if n.n == nil || i < 0 || i >= n.ChildCount() {
		return Node{}
	}
	return wrap(n.t, n.n.Child(i))
}

// Children returns all children including anonymous tokens.
func (n Node) Children() []Node {
	out := make([]Node, 0, n.ChildCount())
	for i := range n.ChildCount() {
		out = append(out, n.Child(i))
	}
	return out
}

// NamedChildCount returns the number of named children.
func (n Node) NamedChildCount() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.NamedChildCount())
}

// NamedChild returns the i-th named child.
func (n Node) NamedChild(i int) Node {
	if n.n == nil || i < 0 || i >= n.NamedChildCount() {
		return Node{}
	}
	return wrap(n.t, n.n.NamedChild(i))
}

// NamedChildren returns all named children in order.
func (n Node) NamedChildren() []Node {
	out := make([]Node, 0, n.NamedChildCount())
	for i := range n.NamedChildCount() {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// FirstChildOfKind returns the first direct child of the given kind.
func (n Node) FirstChildOfKind(kind string) Node {
	for i := range n.ChildCount() {
		if c := n.Child(i); c.Is(kind) {
			return c
		}
	}
	return Node{}
}

// PrevSibling returns the previous named sibling.
func (n Node) PrevSibling() Node {
	if n.n == nil {
		return Node{}
	}
	return wrap(n.t, n.n.PrevNamedSibling())
}

// NextSibling returns the next named sibling.
func (n Node) NextSibling() Node {
	if n.n == nil {
		return Node{}
	}
	return wrap(n.t, n.n.NextNamedSibling())
}

// Direction selects sibling traversal order.
type Direction uint8

const (
	Prev Direction = iota
	Next
)

// Siblings returns named siblings walking away from n in the given
// direction, nearest first. n itself is excluded.
func (n Node) Siblings(dir Direction) []Node {
	var out []Node
	cur := n
	for {
		if dir == Prev {
			cur = cur.PrevSibling()
		} else {
			cur = cur.NextSibling()
		}
		if cur.IsNil() {
			return out
		}
		out = append(out, cur)
	}
}

// Ancestors returns the parent chain, nearest first.
func (n Node) Ancestors() []Node {
	var out []Node
	for p := n.Parent(); !p.IsNil(); p = p.Parent() {
		out = append(out, p)
	}
	return out
}

// Walk visits n and its descendants in pre-order. Returning false from
// visit skips the children of that node.
func (n Node) Walk(visit func(Node) bool) {
	if n.n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := range n.ChildCount() {
		n.Child(i).Walk(visit)
	}
}

// Descendants returns all named descendants of n in pre-order, n included.
func (n Node) Descendants() []Node {
	var out []Node
	n.Walk(func(c Node) bool {
		if c.IsNamed() {
			out = append(out, c)
		}
		return true
	})
	return out
}

// FirstDescendant returns the first pre-order descendant (n included) of the given kind.
func (n Node) FirstDescendant(kind string) Node {
	var found Node
	n.Walk(func(c Node) bool {
		if !found.IsNil() {
			return false
		}
		if c.Is(kind) {
			found = c
			return false
		}
		return true
	})
	return found
}

// Contains reports whether other lies inside n (inclusive).
func (n Node) Contains(other Node) bool {
	return !n.IsNil() && !other.IsNil() && other.Start() >= n.Start() && other.End() <= n.End()
}

// String renders the node as an s-expression.
func (n Node) String() string {
	if n.n == nil {
		return "<nil>"
	}
	return n.n.String()
}
