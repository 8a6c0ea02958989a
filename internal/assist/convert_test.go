package assist

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"rustsafe/internal/diag"
	"rustsafe/internal/fix"
	"rustsafe/internal/source"
	"rustsafe/internal/syntax"
	"rustsafe/internal/testkit"
)

const cursorMarker = "$0"

// fixture is one testdata/*.txtar case: input.rs with a $0 cursor and
// either output.rs or an empty no-edit section.
type fixture struct {
	name   string
	input  []byte
	offset uint32
	output []byte
	noEdit bool
}

func loadFixtures(t *testing.T) []fixture {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no fixtures under testdata")
	}

	out := make([]fixture, 0, len(paths))
	for _, path := range paths {
		ar, err := txtar.ParseFile(path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		fx := fixture{name: strings.TrimSuffix(filepath.Base(path), ".txtar")}
		var haveInput, haveOutput bool
		for _, f := range ar.Files {
			switch f.Name {
			case "input.rs":
				idx := bytes.Index(f.Data, []byte(cursorMarker))
				if idx < 0 {
					t.Fatalf("%s: input.rs has no %s cursor", path, cursorMarker)
				}
				fx.offset = uint32(idx) // #nosec G115 -- fixture sized
				fx.input = append(append([]byte(nil), f.Data[:idx]...), f.Data[idx+len(cursorMarker):]...)
				haveInput = true
			case "output.rs":
				fx.output = f.Data
				haveOutput = true
			case "no-edit":
				fx.noEdit = true
			default:
				t.Fatalf("%s: unexpected section %q", path, f.Name)
			}
		}
		if !haveInput || haveOutput == fx.noEdit {
			t.Fatalf("%s: need input.rs and exactly one of output.rs / no-edit", path)
		}
		out = append(out, fx)
	}
	return out
}

func parseFixture(t *testing.T, src []byte) *syntax.Tree {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("fixture.rs", src))
	tree, err := syntax.Parse(context.Background(), file)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	t.Cleanup(tree.Close)
	return tree
}

func TestConvertUnsafeToSafeFixtures(t *testing.T) {
	for _, fx := range loadFixtures(t) {
		t.Run(fx.name, func(t *testing.T) {
			tree := parseFixture(t, fx.input)
			if tree.HasErrors() {
				t.Fatalf("fixture does not parse cleanly:\n%s", tree.Root())
			}

			acc := NewAssists(tree.File())
			ok := ConvertUnsafeToSafe(acc, NewContext(context.Background(), tree, fx.offset))

			if fx.noEdit {
				if ok || acc.Len() != 0 {
					t.Fatalf("expected no edit, got %d assist(s)", acc.Len())
				}
				return
			}
			if !ok || acc.Len() != 1 {
				t.Fatalf("expected exactly one assist, ok=%v len=%d", ok, acc.Len())
			}

			item := acc.Items()[0]
			if item.ID != ConvertUnsafeToSafeID {
				t.Fatalf("unexpected assist id %+v", item.ID)
			}
			edits := item.Edits()
			if err := testkit.CheckEditInvariants(fx.input, edits); err != nil {
				t.Fatalf("edit invariants: %v", err)
			}
			got, err := fix.ApplyEdits(fx.input, edits)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if !bytes.Equal(got, fx.output) {
				t.Fatalf("output mismatch\n--- got ---\n%s\n--- want ---\n%s", got, fx.output)
			}
		})
	}
}

// Editor buffers may keep CRLF endings. Every fixture must give the same
// rewrite with CRLF input and CRLF output, with no stray '\r' lines and
// no bare '\n' terminators.
func TestFixturesKeepCRLF(t *testing.T) {
	crlf := func(b []byte) []byte { return bytes.ReplaceAll(b, []byte("\n"), []byte("\r\n")) }
	for _, fx := range loadFixtures(t) {
		if fx.noEdit {
			continue
		}
		t.Run(fx.name, func(t *testing.T) {
			input := crlf(fx.input)
			offset := fx.offset + uint32(bytes.Count(fx.input[:fx.offset], []byte("\n"))) // #nosec G115
			tree := parseFixture(t, input)

			acc := NewAssists(tree.File())
			if !ConvertUnsafeToSafe(acc, NewContext(context.Background(), tree, offset)) {
				t.Fatal("expected an assist on CRLF input")
			}
			got, err := fix.ApplyEdits(input, acc.Items()[0].Edits())
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if want := crlf(fx.output); !bytes.Equal(got, want) {
				t.Fatalf("output mismatch\n--- got ---\n%q\n--- want ---\n%q", got, want)
			}
		})
	}
}

func TestVetoIsRecordedAsDecline(t *testing.T) {
	src := "fn f() {\n    let mut buf = Vec::with_capacity(8);\n    unsafe {\n        buf.set_len(8);\n    }\n    out.write_all(&buf).unwrap();\n}\n"
	tree := parseFixture(t, []byte(src))
	off := uint32(strings.Index(src, "unsafe")) // #nosec G115

	c := NewContext(context.Background(), tree, off)
	if ConvertUnsafeToSafe(NewAssists(tree.File()), c) {
		t.Fatal("vetoed set_len must not be rewritten")
	}
	declined := c.Declined()
	if len(declined) != 1 || declined[0].Kind != UncheckedLengthSet {
		t.Fatalf("declined = %+v", declined)
	}
	if got := tree.Text(declined[0].Cause.Start, declined[0].Cause.End); got != "out.write_all(&buf).unwrap();" {
		t.Errorf("cause = %q", got)
	}
	if got := tree.Text(declined[0].Call.Start, declined[0].Call.End); got != "buf.set_len(8)" {
		t.Errorf("call = %q", got)
	}
}

// Repeated runs over the same tree give the same answer.
func TestConvertIsDeterministic(t *testing.T) {
	for _, fx := range loadFixtures(t) {
		tree := parseFixture(t, fx.input)
		var first string
		for i := 0; i < 3; i++ {
			acc := NewAssists(tree.File())
			ConvertUnsafeToSafe(acc, NewContext(context.Background(), tree, fx.offset))
			var sb strings.Builder
			for _, it := range acc.Items() {
				for _, e := range it.Edits() {
					sb.WriteString(e.Span.String())
					sb.WriteString(e.NewText)
				}
			}
			if i == 0 {
				first = sb.String()
			} else if sb.String() != first {
				t.Fatalf("%s: run %d differs from the first", fx.name, i)
			}
		}
	}
}

func TestCollapseAndPreservationLaws(t *testing.T) {
	for _, fx := range loadFixtures(t) {
		if fx.noEdit {
			continue
		}
		t.Run(fx.name, func(t *testing.T) {
			tree := parseFixture(t, fx.input)
			c := NewContext(context.Background(), tree, fx.offset)
			plan, site, ok := Plan(c)
			if !ok {
				t.Fatal("expected a plan")
			}
			region, _ := LocateRegion(tree, fx.offset)

			out, err := fix.ApplyEdits(fx.input, func() []diag.TextEdit {
				b := &EditBuilder{file: tree.File()}
				plan.Apply(b)
				return b.Finish()
			}())
			if err != nil {
				t.Fatalf("apply: %v", err)
			}

			if plan.Collapsed {
				if plan.Target != region.EffectiveRange {
					t.Fatalf("collapsed target %v, want effective range %v", plan.Target, region.EffectiveRange)
				}
				if plan.Replace != nil {
					if err := testkit.CheckNoWrapper(plan.Replace.Text); err != nil {
						t.Fatal(err)
					}
				}
				return
			}

			var keep []string
			for _, s := range region.Statements {
				if !s.Same(site.Stmt) {
					keep = append(keep, s.Text())
				}
			}
			if err := testkit.CheckPreserved(out, keep...); err != nil {
				t.Fatal(err)
			}
			if !bytes.Contains(out, []byte("unsafe")) {
				t.Fatal("non-collapsed rewrite dropped the unsafe wrapper")
			}
		})
	}
}

func TestBindingShapeFidelity(t *testing.T) {
	tests := []struct {
		src     string
		wantLet bool
	}{
		{"fn f() {\n    unsafe {\n        let x = v.get_unchecked(0);\n    }\n}\n", true},
		{"fn f() {\n    let x;\n    unsafe {\n        x = v.get_unchecked(0);\n    }\n}\n", false},
		{"fn f() {\n    unsafe {\n        let mut s = CString::from_vec_unchecked(b);\n    }\n}\n", true},
		{"fn f() {\n    let s;\n    unsafe {\n        s = CString::from_vec_unchecked(b);\n    }\n}\n", false},
	}
	for _, tt := range tests {
		tree := parseFixture(t, []byte(tt.src))
		off := uint32(strings.Index(tt.src, "unsafe")) // #nosec G115
		plan, site, ok := Plan(NewContext(context.Background(), tree, off))
		if !ok {
			t.Fatalf("no plan for %q", tt.src)
		}
		text := ""
		if plan.Replace != nil {
			text = plan.Replace.Text
		} else if plan.Insert != nil {
			text = strings.TrimSpace(plan.Insert.Text)
		}
		if got := strings.HasPrefix(text, "let "); got != tt.wantLet {
			t.Errorf("%s: generated %q, want let prefix=%v", site.Binding.Shape, text, tt.wantLet)
		}
	}
}

func TestDisabledIdiomIsSkipped(t *testing.T) {
	src := "fn f() {\n    unsafe {\n        let a = v.get_unchecked(0);\n        let b = v.get_unchecked_mut(1);\n    }\n}\n"
	tree := parseFixture(t, []byte(src))
	off := uint32(strings.Index(src, "unsafe")) // #nosec G115

	c := NewContext(context.Background(), tree, off).WithDisabled(UncheckedIndexGet)
	_, site, ok := Plan(c)
	if !ok {
		t.Fatal("expected the get_unchecked_mut call to be picked")
	}
	if site.Idiom != UncheckedIndexGetMut {
		t.Fatalf("picked %s", site.Idiom)
	}

	c = NewContext(context.Background(), tree, off).WithDisabled(UncheckedIndexGet, UncheckedIndexGetMut)
	if _, _, ok := Plan(c); ok {
		t.Fatal("expected no plan with both idioms disabled")
	}
}

func TestAssistFixIsLazy(t *testing.T) {
	src := "fn f() {\n    unsafe {\n        let a = v.get_unchecked(0);\n    }\n}\n"
	tree := parseFixture(t, []byte(src))
	off := uint32(strings.Index(src, "unsafe")) // #nosec G115

	acc := NewAssists(tree.File())
	if !ConvertUnsafeToSafe(acc, NewContext(context.Background(), tree, off)) {
		t.Fatal("expected an assist")
	}
	item := acc.Items()[0]
	if item.Code != diag.RewriteCheckedGet || item.Idiom != UncheckedIndexGet {
		t.Fatalf("unexpected tags %v %v", item.Code, item.Idiom)
	}

	f := item.Fix()
	if len(f.Edits) != 0 || f.Thunk == nil {
		t.Fatal("fix must be lazy")
	}
	if f.Kind != diag.FixKindRefactorRewrite || !f.IsPreferred {
		t.Fatalf("unexpected fix metadata %+v", f)
	}
	resolved, err := f.Resolve(diag.FixBuildContext{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, err := fix.ApplyEdits([]byte(src), resolved.Edits)
	if err != nil {
		t.Fatal(err)
	}
	want := "fn f() {\n    let a = v.get(0).unwrap();\n}\n"
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBlockOffsets(t *testing.T) {
	src := "fn f() {\n    unsafe { a(); }\n    let x = unsafe { b() };\n}\n"
	tree := parseFixture(t, []byte(src))
	got := BlockOffsets(tree)
	if len(got) != 2 {
		t.Fatalf("expected 2 blocks, got %v", got)
	}
	if first := uint32(strings.Index(src, "unsafe")); got[0] != first { // #nosec G115
		t.Fatalf("first block at %d, want %d", got[0], first)
	}
}
