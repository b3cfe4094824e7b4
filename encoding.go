package dbf

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// Encoding is the capability a Table uses to translate Character and Memo
// field bytes (and field names) to and from UTF-8 Go strings; Numeric and
// Float digits are parsed as plain ASCII without it. Implementations must be safe to reuse across many Decode/Encode
// calls; a Table keeps a single instance for its lifetime.
type Encoding interface {
	// Decode converts raw on-disk bytes to a UTF-8 string.
	Decode(raw []byte) (string, error)
	// Encode converts a UTF-8 string to the on-disk byte representation.
	// The caller is responsible for padding/truncating to the field width.
	Encode(s string) ([]byte, error)
	// CodePageMark returns the byte this Encoding should be advertised as
	// in a newly written header.
	CodePageMark() byte
}

// NewEncoding returns the canonical Encoding for a code page, in its
// "lossy" flavour: decode substitutes the Unicode replacement character for
// un-mappable bytes, encode substitutes '?' for runes the code page can't
// represent. Use NewStrictEncoding for an Encoding that instead errors.
// CodePageASCII has a single flavour, which errors on any byte >= 0x80.
func NewEncoding(cp CodePage) (Encoding, error) {
	return newCodePageEncoding(cp, false)
}

// NewStrictEncoding returns the canonical Encoding for a code page that
// fails on any byte or rune it cannot map, rather than substituting.
func NewStrictEncoding(cp CodePage) (Encoding, error) {
	return newCodePageEncoding(cp, true)
}

func newCodePageEncoding(cp CodePage, strict bool) (Encoding, error) {
	switch cp {
	case CodePageUTF8:
		if strict {
			return &unicodeStrictEncoding{}, nil
		}
		return &unicodeLossyEncoding{}, nil
	case CodePageASCII:
		return &asciiEncoding{}, nil
	}
	xe, ok := xtextEncodings[cp]
	if !ok {
		return nil, &UnsupportedCodePageError{Mark: markForCodePage(cp)}
	}
	return &charmapEncoding{cp: cp, enc: xe, strict: strict}, nil
}

// xtextEncodings maps every non-Unicode, non-ASCII CodePage this package
// supports to its golang.org/x/text encoding.Encoding implementation.
// Single-byte legacy DOS/Windows code pages come from x/text/encoding/charmap;
// the East Asian multi-byte code pages come from their dedicated x/text
// subpackages.
var xtextEncodings = map[CodePage]encoding.Encoding{
	CodePage437:  charmap.CodePage437,
	CodePage850:  charmap.CodePage850,
	CodePage852:  charmap.CodePage852,
	CodePage861:  charmap.CodePage861,
	CodePage865:  charmap.CodePage865,
	CodePage866:  charmap.CodePage866,
	CodePage874:  charmap.Windows874,
	CodePage1250: charmap.Windows1250,
	CodePage1251: charmap.Windows1251,
	CodePage1252: charmap.Windows1252,
	CodePage1253: charmap.Windows1253,
	CodePage1254: charmap.Windows1254,
	CodePage1255: charmap.Windows1255,
	CodePage1256: charmap.Windows1256,
	CodePage932:  japanese.ShiftJIS,
	CodePage936:  simplifiedchinese.GBK,
	CodePage949:  korean.EUCKR,
	CodePage950:  traditionalchinese.Big5,
}

// unicodeStrictEncoding returns an error on invalid UTF-8 input.
type unicodeStrictEncoding struct{}

func (unicodeStrictEncoding) Decode(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("dbf: invalid UTF-8 data")
	}
	return string(raw), nil
}

func (unicodeStrictEncoding) Encode(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("dbf: invalid UTF-8 data")
	}
	return []byte(s), nil
}

func (unicodeStrictEncoding) CodePageMark() byte { return markForCodePage(CodePageUTF8) }

// unicodeLossyEncoding substitutes the Unicode replacement character for
// invalid byte sequences rather than erroring.
type unicodeLossyEncoding struct{}

func (unicodeLossyEncoding) Decode(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	return fixInvalidUTF8(raw), nil
}

func (unicodeLossyEncoding) Encode(s string) ([]byte, error) {
	return []byte(s), nil
}

func (unicodeLossyEncoding) CodePageMark() byte { return markForCodePage(CodePageUTF8) }

// fixInvalidUTF8 replaces every byte that is not part of a valid UTF-8
// sequence with one Unicode replacement character (unlike
// strings.ToValidUTF8, a run of invalid bytes is not collapsed into one).
func fixInvalidUTF8(raw []byte) string {
	var b bytes.Buffer
	b.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size <= 1 {
			b.WriteRune(utf8.RuneError)
			raw = raw[1:]
			continue
		}
		b.WriteRune(r)
		raw = raw[size:]
	}
	return b.String()
}

// asciiEncoding truncates at the first NUL (the header/field-name
// convention) then errors on any byte >= 0x80.
type asciiEncoding struct{}

func (asciiEncoding) Decode(raw []byte) (string, error) {
	if i := bytes.IndexByte(raw, 0x00); i >= 0 {
		raw = raw[:i]
	}
	for _, b := range raw {
		if b >= 0x80 {
			return "", fmt.Errorf("dbf: byte 0x%02x is not valid ASCII", b)
		}
	}
	return string(raw), nil
}

func (asciiEncoding) Encode(s string) ([]byte, error) {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return nil, fmt.Errorf("dbf: rune at byte %d is not valid ASCII", i)
		}
	}
	return []byte(s), nil
}

func (asciiEncoding) CodePageMark() byte { return markForCodePage(CodePageUTF8) }

// charmapEncoding adapts a golang.org/x/text encoding.Encoding (a legacy
// single- or multi-byte code page) to the Encoding capability, in either a
// strict (error on un-mappable data) or lossy ('?'/replacement character)
// flavour.
type charmapEncoding struct {
	cp     CodePage
	enc    encoding.Encoding
	strict bool
}

func (c *charmapEncoding) Decode(raw []byte) (string, error) {
	dec := c.enc.NewDecoder()
	if c.strict {
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("dbf: decode %s: %w", c.cp, err)
		}
		if bytes.ContainsRune(out, utf8.RuneError) {
			return "", fmt.Errorf("dbf: decode %s: byte sequence has no mapping", c.cp)
		}
		return string(out), nil
	}
	r := transform.NewReader(bytes.NewReader(raw), dec)
	out, err := ioutil.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("dbf: decode %s: %w", c.cp, err)
	}
	return string(out), nil
}

func (c *charmapEncoding) Encode(s string) ([]byte, error) {
	enc := c.enc.NewEncoder()
	if c.strict {
		out, err := enc.Bytes([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("dbf: encode %s: %w", c.cp, err)
		}
		return out, nil
	}
	var out []byte
	for _, r := range s {
		b, err := enc.Bytes([]byte(string(r)))
		if err != nil {
			out = append(out, '?')
			continue
		}
		out = append(out, b...)
	}
	return out, nil
}

func (c *charmapEncoding) CodePageMark() byte { return markForCodePage(c.cp) }
