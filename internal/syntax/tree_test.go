package syntax

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"rustsafe/internal/source"
)

func parseString(t *testing.T, src string) *Tree {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.rs", []byte(src)))
	tree, err := Parse(context.Background(), file)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	t.Cleanup(tree.Close)
	return tree
}

const sample = `fn main() {
    let v = buf.get(1);
    let w = 2;
    w = 3;
}
`

func TestParseFieldsAndText(t *testing.T) {
	tree := parseString(t, sample)
	if tree.HasErrors() {
		t.Fatalf("unexpected syntax errors: %s", tree.Root())
	}

	call := tree.Root().FirstDescendant(KindCall)
	if call.IsNil() {
		t.Fatal("no call_expression found")
	}
	if got := call.Text(); got != "buf.get(1)" {
		t.Errorf("call text = %q", got)
	}
	fn := call.Field("function")
	if !fn.Is(KindFieldExpr) {
		t.Fatalf("function kind = %s", fn.Kind())
	}
	if fn.Field("value").Text() != "buf" || fn.Field("field").Text() != "get" {
		t.Errorf("field expression = %q / %q", fn.Field("value").Text(), fn.Field("field").Text())
	}

	let := EnclosingOfKind(call, KindLet)
	if let.Field("pattern").Text() != "v" {
		t.Errorf("pattern = %q", let.Field("pattern").Text())
	}
	if !let.Field("value").Same(call) {
		t.Error("let value should be the call")
	}
}

func TestSiblingsAndAncestors(t *testing.T) {
	tree := parseString(t, sample)
	body := tree.Root().FirstDescendant(KindBlock)
	stmts := body.NamedChildren()
	if len(stmts) != 3 {
		t.Fatalf("statements = %d, want 3", len(stmts))
	}

	prev := stmts[2].Siblings(Prev)
	if len(prev) != 2 || !prev[0].Same(stmts[1]) || !prev[1].Same(stmts[0]) {
		t.Fatalf("Siblings(Prev) not nearest-first")
	}
	if next := stmts[0].Siblings(Next); len(next) != 2 {
		t.Fatalf("Siblings(Next) = %d", len(next))
	}

	anc := stmts[0].Ancestors()
	if len(anc) < 3 || !anc[0].Is(KindBlock) || !anc[len(anc)-1].Is(KindSourceFile) {
		t.Fatalf("unexpected ancestors")
	}
}

func TestTokensAndNodeAt(t *testing.T) {
	tree := parseString(t, sample)
	off := uint32(strings.Index(sample, "get"))

	node := tree.NodeAt(off + 1)
	if !node.Is(KindFieldIdent) || node.Text() != "get" {
		t.Fatalf("NodeAt = %s %q", node.Kind(), node.Text())
	}

	toks := tree.TokensAt(off)
	if len(toks) != 2 || toks[0].Text() != "." || toks[1].Text() != "get" {
		var got []string
		for _, tok := range toks {
			got = append(got, tok.Text())
		}
		t.Fatalf("TokensAt = %q", got)
	}
}

func TestLineHelpers(t *testing.T) {
	tree := parseString(t, sample)
	off := uint32(strings.Index(sample, "let w"))

	if got := tree.IndentAt(off + 4); got != "    " {
		t.Errorf("IndentAt = %q", got)
	}
	if !tree.OnlyWhitespaceBefore(off) || tree.OnlyWhitespaceBefore(off+1) {
		t.Error("OnlyWhitespaceBefore mismatch")
	}
	end := off + uint32(len("let w = 2;"))
	if !tree.OnlyWhitespaceAfter(end) || tree.OnlyWhitespaceAfter(off) {
		t.Error("OnlyWhitespaceAfter mismatch")
	}
	if tree.Text(tree.LineStart(off), tree.LineEnd(off)) != "    let w = 2;" {
		t.Errorf("line = %q", tree.Text(tree.LineStart(off), tree.LineEnd(off)))
	}
}

func TestLineHelpersCRLF(t *testing.T) {
	src := "fn f() {\r\n    let w = 2; \r\n    g();\r\n}"
	tree := parseString(t, src)
	off := uint32(strings.Index(src, "let w"))
	end := off + uint32(len("let w = 2;"))

	if !tree.OnlyWhitespaceAfter(end) {
		t.Error("trailing blank and CR should count as whitespace")
	}
	withCR := uint32(strings.Index(src, "\r"))
	if !tree.OnlyWhitespaceAfter(withCR) {
		t.Error("CR right before LF should count as whitespace")
	}
	if got := tree.LineBreak(off); got != "\r\n" {
		t.Errorf("LineBreak = %q", got)
	}
	// последняя строка без перевода берёт первый терминатор файла
	if got := tree.LineBreak(uint32(len(src)) - 1); got != "\r\n" {
		t.Errorf("LineBreak on last line = %q", got)
	}
	if got := parseString(t, "fn f() {}\n").LineBreak(0); got != "\n" {
		t.Errorf("LF LineBreak = %q", got)
	}
}

func TestErrorNodes(t *testing.T) {
	tree := parseString(t, "fn main() { let = ; }\n")
	if !tree.HasErrors() {
		t.Fatal("expected syntax error")
	}
	if len(tree.ErrorNodes()) == 0 {
		t.Fatal("expected at least one error node")
	}
}

func TestDump(t *testing.T) {
	tree := parseString(t, "fn f() {}\n")
	var buf bytes.Buffer
	if err := Dump(&buf, tree.Root(), DumpOptions{Text: true}); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "source_file [0..") || !strings.Contains(out, `identifier [3..4) "f"`) {
		t.Fatalf("dump:\n%s", out)
	}
}
