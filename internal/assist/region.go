package assist

import (
	"rustsafe/internal/source"
	"rustsafe/internal/syntax"
)

// EscapeRegion is the unsafe block the cursor sits in.
type EscapeRegion struct {
	Block syntax.Node // unsafe_block
	Body  syntax.Node // its block
	// Anchor is the node whose siblings are scanned for companions: the
	// statement wrapping the block, or the block itself in tail position.
	Anchor syntax.Node

	BlockRange     source.Span
	EffectiveRange source.Span
	Statements     []syntax.Node // named children of Body, comments included
}

// LocateRegion finds the unsafe block enclosing offset. Blocks in value
// position (let initialisers, call arguments, ...) are not regions.
func LocateRegion(tree *syntax.Tree, offset uint32) (*EscapeRegion, bool) {
	block := syntax.Node{}
	for _, tok := range tree.TokensAt(offset) {
		if tok.Is(syntax.KindUnsafeKeyword) && tok.Parent().Is(syntax.KindUnsafeBlock) {
			block = tok.Parent()
			break
		}
	}
	if block.IsNil() {
		block = syntax.EnclosingOfKind(tree.NodeAt(offset), syntax.KindUnsafeBlock)
	}
	if block.IsNil() {
		return nil, false
	}

	body := block.FirstChildOfKind(syntax.KindBlock)
	if body.IsNil() {
		return nil, false
	}

	var anchor syntax.Node
	switch parent := block.Parent(); {
	case parent.Is(syntax.KindExprStatement):
		anchor = parent
	case parent.Is(syntax.KindBlock):
		anchor = block
	default:
		return nil, false
	}

	return &EscapeRegion{
		Block:          block,
		Body:           body,
		Anchor:         anchor,
		BlockRange:     block.Span(),
		EffectiveRange: effectiveRange(tree, anchor),
		Statements:     body.NamedChildren(),
	}, true
}

// effectiveRange is the anchor range, extended over a `;` that follows the
// block on the same line when the grammar left it outside the statement.
func effectiveRange(tree *syntax.Tree, anchor syntax.Node) source.Span {
	sp := anchor.Span()
	if next := anchor.NextSibling(); next.Is(syntax.KindEmptyStatement) && tree.LineStart(next.Start()) == tree.LineStart(sp.End) {
		sp.End = next.End()
	}
	return sp
}

// sole reports whether stmt is the only named child of the region body.
func (r *EscapeRegion) sole(stmt syntax.Node) bool {
	return len(r.Statements) == 1 && r.Statements[0].Same(stmt)
}

// contains reports whether stmt is a direct child of the region body.
func (r *EscapeRegion) contains(stmt syntax.Node) bool {
	return stmt.Parent().Same(r.Body)
}

// BlockOffsets returns the start of every unsafe block in tree, in document order.
func BlockOffsets(tree *syntax.Tree) []uint32 {
	var out []uint32
	for _, n := range tree.Root().Descendants() {
		if n.Is(syntax.KindUnsafeBlock) {
			out = append(out, n.Start())
		}
	}
	return out
}
