package dbf

// CodePage identifies a legacy character encoding by the canonical name
// used in the DBF ecosystem (the header stores a one-byte mark, see the
// table below, not this string).
type CodePage string

// Supported code pages. CodePageUTF8 is also used as the fallback when
// a header's mark is unrecognized.
const (
	CodePageUTF8  CodePage = "UTF-8"
	CodePageASCII CodePage = "ASCII"
	CodePage437   CodePage = "CP437"
	CodePage850   CodePage = "CP850"
	CodePage852   CodePage = "CP852"
	CodePage861   CodePage = "CP861"
	CodePage865   CodePage = "CP865"
	CodePage866   CodePage = "CP866"
	CodePage874   CodePage = "CP874"
	CodePage932   CodePage = "CP932"
	CodePage936   CodePage = "CP936"
	CodePage949   CodePage = "CP949"
	CodePage950   CodePage = "CP950"
	CodePage1250  CodePage = "CP1250"
	CodePage1251  CodePage = "CP1251"
	CodePage1252  CodePage = "CP1252"
	CodePage1253  CodePage = "CP1253"
	CodePage1254  CodePage = "CP1254"
	CodePage1255  CodePage = "CP1255"
	CodePage1256  CodePage = "CP1256"
)

// codePageMarks maps the header's one-byte code-page mark (offset 29)
// to the CodePage it canonically identifies. Building a table always emits
// the mark on the left of this table for the CodePage it was built with.
var codePageMarks = map[byte]CodePage{
	0x00: CodePageUTF8,
	0x01: CodePage437,
	0x02: CodePage850,
	0x03: CodePage1252,
	0x08: CodePage865,
	0x24: CodePage861,
	0x26: CodePage852,
	0x65: CodePage866,
	0x7B: CodePage932,
	0x7A: CodePage936,
	0x79: CodePage949,
	0x78: CodePage950,
	0x7C: CodePage874,
	0xC8: CodePage1250,
	0xC9: CodePage1251,
	0xCB: CodePage1253,
	0xCA: CodePage1254,
	0x7D: CodePage1255,
	0x7E: CodePage1256,
}

var markByCodePage = func() map[CodePage]byte {
	m := make(map[CodePage]byte, len(codePageMarks))
	for mark, cp := range codePageMarks {
		m[cp] = mark
	}
	return m
}()

// codePageForMark returns the CodePage for a header mark, defaulting to
// CodePageUTF8 for unrecognized marks, and whether the mark was recognized.
func codePageForMark(mark byte) (CodePage, bool) {
	cp, ok := codePageMarks[mark]
	if !ok {
		return CodePageUTF8, false
	}
	return cp, true
}

// markForCodePage returns the canonical header mark for a CodePage.
// ASCII has no dedicated dBase mark; it is written as UTF-8's mark since
// every ASCII byte sequence is also valid UTF-8.
func markForCodePage(cp CodePage) byte {
	if cp == CodePageASCII {
		return markByCodePage[CodePageUTF8]
	}
	return markByCodePage[cp]
}
