package assist

import (
	"fmt"
	"strings"

	"rustsafe/internal/syntax"
)

// generate renders the safe replacement for a resolved site.
func generate(site *CandidateSite) (string, bool) {
	switch site.Idiom {
	case UncheckedLengthSet:
		return genLengthSet(site)
	case CopyWithin:
		if site.Src.Base == site.Dst.Base {
			return genCopyWithin(site), true
		}
		return genCopyFromSlice(site), true
	case NonOverlappingCopy:
		return genCopyFromSlice(site), true
	case UncheckedIndexGet:
		return bind(site, fmt.Sprintf("%s.get(%s).unwrap()", site.Receiver.Text(), site.Args[0].Text())), true
	case UncheckedIndexGetMut:
		return bind(site, fmt.Sprintf("%s.get_mut(%s).unwrap()", site.Receiver.Text(), site.Args[0].Text())), true
	case UncheckedCStringFromBytes:
		return bind(site, fmt.Sprintf("%s::new(%s).unwrap()", site.Qualifier, site.Args[0].Text())), true
	case NativeCStringLength:
		return genByteLength(site)
	case UncheckedBytesToText:
		return bind(site, fmt.Sprintf("%s::from_utf8(%s).unwrap()", site.Qualifier, site.Args[0].Text())), true
	case RawBitReinterpret:
		if !targetsStr(site) {
			return "", false
		}
		return bind(site, fmt.Sprintf("str::from_utf8(%s).unwrap()", site.Args[0].Text())), true
	}
	return "", false
}

// bind prefixes value with the binding: `let pat = value;` or `lhs = value;`.
func bind(site *CandidateSite, value string) string {
	prefix := ""
	if site.Binding.Shape == ShapeDeclaration {
		prefix = "let "
	}
	return fmt.Sprintf("%s%s = %s;", prefix, site.Binding.Target, value)
}

func genLengthSet(site *CandidateSite) (string, bool) {
	if site.Companion == nil {
		return "", false
	}
	recv := site.Receiver.Text()
	n := site.Args[0].Text()
	switch site.Companion.Kind {
	case CompanionDeclaration:
		return fmt.Sprintf("let mut %s = vec![0; %s];", recv, n), true
	case CompanionReserve:
		return fmt.Sprintf("%s.resize(%s, 0);", recv, n), true
	}
	return "", false
}

// genCopyWithin renders base.copy_within(src..src + count, dst).
func genCopyWithin(site *CandidateSite) string {
	count := site.Args[2].Text()
	start := site.Src.startOr("0")
	end := count
	if start != "0" {
		end = start + " + " + count
	}
	return fmt.Sprintf("%s.copy_within(%s..%s, %s);", site.Src.Base, start, end, site.Dst.startOr("0"))
}

// genCopyFromSlice renders dst[d..d + n].copy_from_slice(&src[s..s + n]).
func genCopyFromSlice(site *CandidateSite) string {
	count := site.Args[2].Text()
	return fmt.Sprintf("%s[%s].copy_from_slice(&%s[%s]);",
		site.Dst.Base, window(site.Dst, count), site.Src.Base, window(site.Src, count))
}

func window(s SliceRef, count string) string {
	if s.Start == "" {
		return ".." + count
	}
	return fmt.Sprintf("%s..%s + %s", s.Start, s.Start, count)
}

// genByteLength needs the argument to be `s.as_ptr()`.
func genByteLength(site *CandidateSite) (string, bool) {
	arg := site.Args[0]
	if !arg.Is(syntax.KindCall) || len(callArgs(arg)) != 0 {
		return "", false
	}
	sig, ok := callSignature(arg)
	if !ok || sig.method != "as_ptr" {
		return "", false
	}
	return bind(site, sig.receiver.Text()+".as_bytes().len()"), true
}

// targetsStr reports whether a transmute produces &str, judged by the let
// type or the second turbofish argument.
func targetsStr(site *CandidateSite) bool {
	if isStrRef(site.Binding.Type) {
		return true
	}
	if site.TypeArgs.IsNil() {
		return false
	}
	var types []syntax.Node
	for _, t := range site.TypeArgs.NamedChildren() {
		if !t.Is(syntax.KindLifetime) {
			types = append(types, t)
		}
	}
	return len(types) == 2 && isStrRef(types[1])
}

// isStrRef matches `&str` and `&'a str`, not `&mut str`.
func isStrRef(t syntax.Node) bool {
	if !t.Is(syntax.KindReferenceType) {
		return false
	}
	if !t.FirstChildOfKind(syntax.KindMutable).IsNil() {
		return false
	}
	inner := t.Field("type")
	return inner.Is(syntax.KindPrimitiveType) && strings.TrimSpace(inner.Text()) == "str"
}
