package syntax

import (
	"fmt"
	"io"
	"strings"
)

// DumpOptions controls Dump output.
type DumpOptions struct {
	Anonymous bool // include punctuation and keyword tokens
	Text      bool // append leaf text
	MaxDepth  int  // 0 = unlimited
}

// Dump writes an indented outline of n and its descendants.
func Dump(w io.Writer, n Node, opts DumpOptions) error {
	return dump(w, n, opts, 0)
}

func dump(w io.Writer, n Node, opts DumpOptions, depth int) error {
	if n.IsNil() {
		return nil
	}
	if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
		return nil
	}
	line := fmt.Sprintf("%s%s [%d..%d)", strings.Repeat("  ", depth), n.Kind(), n.Start(), n.End())
	if !n.IsNamed() {
		line = fmt.Sprintf("%s%q [%d..%d)", strings.Repeat("  ", depth), n.Kind(), n.Start(), n.End())
	}
	if opts.Text && n.ChildCount() == 0 && n.IsNamed() {
		line += " " + fmt.Sprintf("%q", n.Text())
	}
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if !opts.Anonymous && !c.IsNamed() {
			continue
		}
		if err := dump(w, c, opts, depth+1); err != nil {
			return err
		}
	}
	return nil
}
