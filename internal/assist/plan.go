package assist

import (
	"rustsafe/internal/source"
	"rustsafe/internal/syntax"
)

// EditPlan is the single edit produced by an invocation.
type EditPlan struct {
	Target    source.Span
	Deletions []source.Span
	Replace   *Replacement
	Insert    *Insertion
	Collapsed bool // the whole unsafe block goes away
}

// Replacement swaps a range for generated text.
type Replacement struct {
	Span source.Span
	Text string
}

// Insertion places generated text at an offset.
type Insertion struct {
	At   uint32
	Text string
}

// Apply records the plan on an edit builder.
func (p *EditPlan) Apply(b *EditBuilder) {
	for _, d := range p.Deletions {
		b.Delete(d)
	}
	if p.Replace != nil {
		b.Replace(p.Replace.Span, p.Replace.Text)
	}
	if p.Insert != nil {
		b.Insert(p.Insert.At, p.Insert.Text)
	}
}

// planEdit decides between collapsing the region and splicing text in front of it.
func planEdit(r *EscapeRegion, site *CandidateSite, text string) *EditPlan {
	tree := r.Body.Tree()
	sole := r.sole(site.Stmt)

	if site.Companion != nil {
		plan := &EditPlan{
			Replace: &Replacement{Span: site.Companion.Stmt.Span(), Text: text},
		}
		if sole {
			plan.Target = r.EffectiveRange
			plan.Deletions = []source.Span{wholeLines(tree, r.EffectiveRange)}
			plan.Collapsed = true
		} else {
			plan.Target = site.Stmt.Span()
			plan.Deletions = []source.Span{wholeLines(tree, site.Stmt.Span())}
		}
		return plan
	}

	if sole {
		return &EditPlan{
			Target:    r.EffectiveRange,
			Replace:   &Replacement{Span: r.EffectiveRange, Text: text},
			Collapsed: true,
		}
	}

	return &EditPlan{
		Target:    site.Stmt.Span(),
		Deletions: []source.Span{wholeLines(tree, site.Stmt.Span())},
		Insert:    spliceBefore(tree, r.Anchor, text),
	}
}

// wholeLines widens sp to full lines (with the trailing newline, and its
// '\r' on CRLF input) when nothing but blanks shares those lines with it.
func wholeLines(tree *syntax.Tree, sp source.Span) source.Span {
	if !tree.OnlyWhitespaceBefore(sp.Start) || !tree.OnlyWhitespaceAfter(sp.End) {
		return sp
	}
	sp.Start = tree.LineStart(sp.Start)
	sp.End = tree.LineEnd(sp.End)
	if sp.End < tree.File().Len() {
		sp.End++ // '\n'
	}
	return sp
}

// spliceBefore places text on its own line right after the anchor's
// previous sibling, or above the anchor, indented like the anchor.
func spliceBefore(tree *syntax.Tree, anchor syntax.Node, text string) *Insertion {
	indent := tree.IndentAt(anchor.Start())
	anchorLine := tree.LineStart(anchor.Start())
	eol := tree.LineBreak(anchor.Start())

	if prev := anchor.PrevSibling(); !prev.IsNil() {
		if end := tree.LineEnd(prev.End()); end < anchorLine {
			return &Insertion{At: end + 1, Text: indent + text + eol}
		}
	}
	if tree.OnlyWhitespaceBefore(anchor.Start()) {
		return &Insertion{At: anchorLine, Text: indent + text + eol}
	}
	return &Insertion{At: anchor.Start(), Text: text + " "}
}
