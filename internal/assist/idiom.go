package assist

import (
	"fmt"
	"strings"

	"rustsafe/internal/diag"
)

// IdiomKind tags a recognised unsafe operation.
type IdiomKind uint8

const (
	IdiomNone IdiomKind = iota
	UncheckedLengthSet
	CapacityReserve
	FullBufferWrite // only ever vetoes a rewrite
	CopyWithin
	NonOverlappingCopy
	UncheckedIndexGet
	UncheckedIndexGetMut
	UncheckedCStringFromBytes
	NativeCStringLength
	UncheckedBytesToText
	RawBitReinterpret
)

var idiomNames = [...]string{
	IdiomNone:                 "none",
	UncheckedLengthSet:        "set_len",
	CapacityReserve:           "reserve",
	FullBufferWrite:           "write",
	CopyWithin:                "copy",
	NonOverlappingCopy:        "copy_nonoverlapping",
	UncheckedIndexGet:         "get_unchecked",
	UncheckedIndexGetMut:      "get_unchecked_mut",
	UncheckedCStringFromBytes: "from_vec_unchecked",
	NativeCStringLength:       "strlen",
	UncheckedBytesToText:      "from_utf8_unchecked",
	RawBitReinterpret:         "transmute",
}

func (k IdiomKind) String() string {
	if int(k) < len(idiomNames) {
		return idiomNames[k]
	}
	return fmt.Sprintf("idiom(%d)", k)
}

// ParseIdiom maps a configuration name such as "get_unchecked" to its kind.
// Only kinds that start a rewrite can be named: reserve and write are
// companion signals of set_len.
func ParseIdiom(name string) (IdiomKind, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for k, n := range idiomNames {
		kind := IdiomKind(k)
		if n != name || kind == IdiomNone {
			continue
		}
		if !kind.Rewritable() {
			return IdiomNone, fmt.Errorf("idiom %q only qualifies set_len and cannot be disabled on its own", name)
		}
		return kind, nil
	}
	return IdiomNone, fmt.Errorf("unknown idiom %q", name)
}

// Rewritable reports whether the classifier can start a rewrite from k.
func (k IdiomKind) Rewritable() bool {
	switch k {
	case UncheckedLengthSet, CopyWithin, NonOverlappingCopy,
		UncheckedIndexGet, UncheckedIndexGetMut,
		UncheckedCStringFromBytes, NativeCStringLength,
		UncheckedBytesToText, RawBitReinterpret:
		return true
	}
	return false
}

// needsBinding reports whether the idiom's value must be bound by let or assignment.
func (k IdiomKind) needsBinding() bool {
	switch k {
	case UncheckedIndexGet, UncheckedIndexGetMut, UncheckedCStringFromBytes,
		NativeCStringLength, UncheckedBytesToText, RawBitReinterpret:
		return true
	}
	return false
}

// BindingShape says how the call's result is bound.
type BindingShape uint8

const (
	ShapeNone        BindingShape = iota // bare call statement
	ShapeDeclaration                     // let <pat> = <call>;
	ShapeAssignment                      // <lhs> = <call>
)

func (s BindingShape) String() string {
	switch s {
	case ShapeDeclaration:
		return "declaration"
	case ShapeAssignment:
		return "assignment"
	}
	return "none"
}

// CompanionKind distinguishes the two set_len companions.
type CompanionKind uint8

const (
	CompanionDeclaration CompanionKind = iota + 1 // let mut v = Vec::with_capacity(n);
	CompanionReserve                              // v.reserve(n);
)

// diagCode returns the diagnostic code describing the rewrite produced for a site.
func diagCode(site *CandidateSite) diag.Code {
	switch site.Idiom {
	case UncheckedLengthSet:
		if site.Companion != nil && site.Companion.Kind == CompanionReserve {
			return diag.RewriteResize
		}
		return diag.RewriteZeroFilledVec
	case CopyWithin:
		if site.Src.Base == site.Dst.Base {
			return diag.RewriteCopyWithin
		}
		return diag.RewriteCopyFromSlice
	case NonOverlappingCopy:
		return diag.RewriteCopyFromSlice
	case UncheckedIndexGet:
		return diag.RewriteCheckedGet
	case UncheckedIndexGetMut:
		return diag.RewriteCheckedGetMut
	case UncheckedCStringFromBytes:
		return diag.RewriteCStringNew
	case NativeCStringLength:
		return diag.RewriteByteLength
	case UncheckedBytesToText:
		return diag.RewriteFromUTF8
	case RawBitReinterpret:
		return diag.RewriteTransmuteToStr
	}
	return diag.RewriteInfo
}
