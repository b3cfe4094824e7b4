package dbf

import "testing"

func TestNewEncodingUTF8RoundTrip(t *testing.T) {
	enc, err := NewEncoding(CodePageUTF8)
	if err != nil {
		t.Fatalf("NewEncoding: %v", err)
	}
	raw, err := enc.Encode("héllo wörld")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := enc.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "héllo wörld" {
		t.Errorf("round trip = %q, want %q", got, "héllo wörld")
	}
}

func TestNewEncodingCodePage437RoundTrip(t *testing.T) {
	enc, err := NewEncoding(CodePage437)
	if err != nil {
		t.Fatalf("NewEncoding: %v", err)
	}
	raw, err := enc.Encode("cafe")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := enc.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "cafe" {
		t.Errorf("round trip = %q, want %q", got, "cafe")
	}
	if enc.CodePageMark() != 0x01 {
		t.Errorf("CodePageMark() = 0x%02x, want 0x01", enc.CodePageMark())
	}
}

func TestNewEncodingUnsupportedCodePage(t *testing.T) {
	_, err := NewEncoding(CodePage("CP-DOES-NOT-EXIST"))
	if _, ok := err.(*UnsupportedCodePageError); !ok {
		t.Errorf("NewEncoding() err = %v (%T), want *UnsupportedCodePageError", err, err)
	}
}

func TestStrictASCIIRejectsHighBytes(t *testing.T) {
	enc, err := NewStrictEncoding(CodePageASCII)
	if err != nil {
		t.Fatalf("NewStrictEncoding: %v", err)
	}
	if _, err := enc.Decode([]byte{0xFF}); err == nil {
		t.Errorf("Decode() of a non-ASCII byte should error in strict ASCII mode")
	}
}

func TestASCIIEncodingTruncatesAtNUL(t *testing.T) {
	enc, err := NewEncoding(CodePageASCII)
	if err != nil {
		t.Fatalf("NewEncoding: %v", err)
	}
	got, err := enc.Decode([]byte("field\x00\x00\x00"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "field" {
		t.Errorf("Decode() = %q, want %q", got, "field")
	}
}

func TestCodePageMarkRoundTrip(t *testing.T) {
	for mark, cp := range codePageMarks {
		gotCP, ok := codePageForMark(mark)
		if !ok {
			t.Fatalf("codePageForMark(0x%02x) not found", mark)
		}
		if gotCP != cp {
			t.Errorf("codePageForMark(0x%02x) = %s, want %s", mark, gotCP, cp)
		}
		if got := markForCodePage(cp); got != mark {
			t.Errorf("markForCodePage(%s) = 0x%02x, want 0x%02x", cp, got, mark)
		}
	}
}

func TestCodePageForUnknownMarkDefaultsToUTF8(t *testing.T) {
	cp, ok := codePageForMark(0xAB)
	if ok {
		t.Errorf("codePageForMark(0xAB) ok = true, want false for unrecognized mark")
	}
	if cp != CodePageUTF8 {
		t.Errorf("codePageForMark(0xAB) = %s, want %s", cp, CodePageUTF8)
	}
}
