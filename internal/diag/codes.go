package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Разбор исходника
	ParseInfo        Code = 1000
	ParseSyntaxError Code = 1001

	// Переписывание unsafe-идиом, по одному коду на безопасную замену
	RewriteInfo             Code = 2000
	RewriteZeroFilledVec    Code = 2001 // with_capacity + set_len
	RewriteResize           Code = 2002 // reserve + set_len
	RewriteCopyWithin       Code = 2003
	RewriteCopyFromSlice    Code = 2004
	RewriteCheckedGet       Code = 2005
	RewriteCheckedGetMut    Code = 2006
	RewriteCStringNew       Code = 2007
	RewriteByteLength       Code = 2008
	RewriteFromUTF8         Code = 2009
	RewriteTransmuteToStr   Code = 2010
	RewriteDisqualified     Code = 2090 // idiom found, rewrite declined

	IOInfo          Code = 4000
	IOLoadFileError Code = 4001
	IOCacheError    Code = 4002

	ConfInfo    Code = 5000
	ConfInvalid Code = 5001

	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:           "Unknown error",
		ParseInfo:             "Parse information",
		ParseSyntaxError:      "syntax error",
		RewriteInfo:           "Rewrite information",
		RewriteZeroFilledVec:  "unsafe set_len after with_capacity can be a zero-filled vec!",
		RewriteResize:         "unsafe set_len after reserve can be resize",
		RewriteCopyWithin:     "ptr::copy within one slice can be copy_within",
		RewriteCopyFromSlice:  "raw pointer copy can be copy_from_slice",
		RewriteCheckedGet:     "get_unchecked can be a checked get",
		RewriteCheckedGetMut:  "get_unchecked_mut can be a checked get_mut",
		RewriteCStringNew:     "CString::from_vec_unchecked can be CString::new",
		RewriteByteLength:     "libc::strlen on as_ptr can be as_bytes().len()",
		RewriteFromUTF8:       "from_utf8_unchecked can be a checked from_utf8",
		RewriteTransmuteToStr: "transmute to &str can be str::from_utf8",
		RewriteDisqualified:   "unsafe idiom is not rewritable here",
		IOInfo:                "I/O information",
		IOLoadFileError:       "I/O load file error",
		IOCacheError:          "scan cache error",
		ConfInfo:              "Configuration information",
		ConfInvalid:           "invalid configuration",
		ObsInfo:               "Observability information",
		ObsTimings:            "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("PAR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("RWR%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// ParseCodeID resolves an ID such as "RWR2005" back to its Code.
func ParseCodeID(id string) (Code, bool) {
	for c := range codeDescription {
		if c.ID() == id {
			return c, true
		}
	}
	return UnknownCode, false
}
