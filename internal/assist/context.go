package assist

import (
	"context"

	"rustsafe/internal/source"
	"rustsafe/internal/syntax"
	"rustsafe/internal/trace"
)

// Context is the input of one assist invocation.
type Context struct {
	Tree   *syntax.Tree
	Offset uint32

	// Disabled idioms are skipped by the classifier as if they did not match.
	Disabled map[IdiomKind]bool

	tracer   trace.Tracer
	parent   uint64
	declined []Decline
}

// Decline is an idiom the classifier recognised but would not rewrite.
type Decline struct {
	Kind   IdiomKind
	Call   source.Span
	Cause  source.Span // statement that blocked the rewrite
	Reason string
}

// Declined lists the idioms passed over during the last invocation.
func (c *Context) Declined() []Decline { return c.declined }

func (c *Context) decline(d Decline) { c.declined = append(c.declined, d) }

// NewContext binds a parsed tree and cursor offset. The tracer and parent
// span are taken from ctx.
func NewContext(ctx context.Context, tree *syntax.Tree, offset uint32) *Context {
	return &Context{
		Tree:   tree,
		Offset: offset,
		tracer: trace.FromContext(ctx),
		parent: trace.CurrentSpan(ctx).SpanID,
	}
}

// WithDisabled returns c with the given idioms switched off.
func (c *Context) WithDisabled(kinds ...IdiomKind) *Context {
	if len(kinds) == 0 {
		return c
	}
	if c.Disabled == nil {
		c.Disabled = make(map[IdiomKind]bool, len(kinds))
	}
	for _, k := range kinds {
		c.Disabled[k] = true
	}
	return c
}

func (c *Context) note(step, detail string) {
	if c.tracer == nil {
		return
	}
	trace.Point(c.tracer, trace.ScopeNode, step, detail, c.parent)
}
