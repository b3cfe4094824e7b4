package dbf

import (
	"testing"
)

func utf8Codec() *FieldCodec {
	enc, _ := NewEncoding(CodePageUTF8)
	return &FieldCodec{Enc: enc, Trim: TrimBoth}
}

func TestFieldCodecLogical(t *testing.T) {
	c := utf8Codec()
	fd := &FieldDescriptor{Type: 'L', Length: 1}

	cases := []struct {
		raw      byte
		wantNull bool
		wantBool bool
	}{
		{'T', false, true},
		{'t', false, true},
		{'Y', false, true},
		{'1', false, true},
		{'F', false, false},
		{'N', false, false},
		{'0', false, false}, // classical interpretation is the default
		{' ', true, false},
		{'?', true, false},
	}
	for _, c2 := range cases {
		v, err := c.Decode(fd, []byte{c2.raw})
		if err != nil {
			t.Fatalf("Decode(%q): %v", c2.raw, err)
		}
		if v.IsNull() != c2.wantNull {
			t.Errorf("Decode(%q).IsNull() = %v, want %v", c2.raw, v.IsNull(), c2.wantNull)
		}
		if !c2.wantNull {
			b, err := v.AsBool()
			if err != nil {
				t.Fatalf("AsBool: %v", err)
			}
			if b != c2.wantBool {
				t.Errorf("Decode(%q) = %v, want %v", c2.raw, b, c2.wantBool)
			}
		}
	}
}

func TestFieldCodecLogicalZeroIsTrueOption(t *testing.T) {
	c := utf8Codec()
	c.LogicalZeroIsTrue = true
	fd := &FieldDescriptor{Type: 'L', Length: 1}
	v, err := c.Decode(fd, []byte{'0'})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b, _ := v.AsBool()
	if !b {
		t.Errorf("with LogicalZeroIsTrue, '0' should decode true")
	}
}

func TestFieldCodecLogicalEncodeBytes(t *testing.T) {
	c := utf8Codec()
	fd := &FieldDescriptor{Type: 'L', Length: 1}

	cases := []struct {
		value FieldValue
		want  byte
	}{
		{LogicalValue(boolptr(true)), 't'},
		{LogicalValue(boolptr(false)), 'f'},
		{LogicalValue(nil), ' '},
	}
	for _, c2 := range cases {
		dst := make([]byte, 1)
		if err := c.Encode(fd, c2.value, dst); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if dst[0] != c2.want {
			t.Errorf("Encode() wrote %q, want %q", dst[0], c2.want)
		}
	}
}

func boolptr(b bool) *bool { return &b }

func TestFieldCodecCharacterTrim(t *testing.T) {
	c := utf8Codec()
	fd := &FieldDescriptor{Type: 'C', Length: 10}

	v, err := c.Decode(fd, []byte("  hello   "))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	s, err := v.AsString()
	if err != nil {
		t.Fatalf("AsString: %v", err)
	}
	if s != "hello" {
		t.Errorf("AsString() = %q, want %q", s, "hello")
	}

	dst := make([]byte, 10)
	if err := c.Encode(fd, CharacterValue(&s), dst); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(dst) != "hello     " {
		t.Errorf("Encode() = %q, want %q", dst, "hello     ")
	}
}

func TestFieldCodecCharacterAllSpacesIsNull(t *testing.T) {
	c := utf8Codec()
	fd := &FieldDescriptor{Type: 'C', Length: 5}
	v, err := c.Decode(fd, []byte("     "))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("all-space Character field should decode to null")
	}
}

func TestFieldCodecNumericRoundTrip(t *testing.T) {
	c := utf8Codec()
	fd := &FieldDescriptor{Type: 'N', Length: 8, Decimals: 2}

	f := 123.45
	dst := make([]byte, 8)
	if err := c.Encode(fd, NumericValue(&f), dst); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	v, err := c.Decode(fd, dst)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := v.AsFloat64()
	if err != nil {
		t.Fatalf("AsFloat64: %v", err)
	}
	if got != f {
		t.Errorf("round trip = %v, want %v", got, f)
	}
}

func TestFieldCodecNumericOverflowErrors(t *testing.T) {
	c := utf8Codec()
	fd := &FieldDescriptor{Type: 'N', Length: 3, Decimals: 0}
	f := 123456.0
	dst := make([]byte, 3)
	err := c.Encode(fd, NumericValue(&f), dst)
	if err != ErrFieldValueTooLong {
		t.Errorf("Encode() err = %v, want ErrFieldValueTooLong", err)
	}
}

func TestFieldCodecDateRoundTrip(t *testing.T) {
	c := utf8Codec()
	fd := &FieldDescriptor{Type: 'D', Length: 8}
	d, _ := NewDate(2024, 6, 15)
	dst := make([]byte, 8)
	if err := c.Encode(fd, DateValue(&d), dst); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(dst) != "20240615" {
		t.Errorf("Encode() = %q, want %q", dst, "20240615")
	}
	v, err := c.Decode(fd, dst)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := v.AsDate()
	if err != nil {
		t.Fatalf("AsDate: %v", err)
	}
	if got != d {
		t.Errorf("round trip = %+v, want %+v", got, d)
	}
}

func TestFieldCodecIntegerRoundTrip(t *testing.T) {
	c := utf8Codec()
	fd := &FieldDescriptor{Type: 'I', Length: 4}
	dst := make([]byte, 4)
	if err := c.Encode(fd, IntegerValue(-7), dst); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	v, err := c.Decode(fd, dst)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := v.AsInt32()
	if err != nil {
		t.Fatalf("AsInt32: %v", err)
	}
	if got != -7 {
		t.Errorf("round trip = %d, want -7", got)
	}
}

func TestFieldCodecDoubleAndCurrencyRoundTrip(t *testing.T) {
	c := utf8Codec()

	fdB := &FieldDescriptor{Type: 'B', Length: 8}
	dstB := make([]byte, 8)
	if err := c.Encode(fdB, DoubleValue(3.14159), dstB); err != nil {
		t.Fatalf("Encode Double: %v", err)
	}
	vB, err := c.Decode(fdB, dstB)
	if err != nil {
		t.Fatalf("Decode Double: %v", err)
	}
	if got, _ := vB.AsFloat64(); got != 3.14159 {
		t.Errorf("Double round trip = %v, want 3.14159", got)
	}

	fdY := &FieldDescriptor{Type: 'Y', Length: 8}
	dstY := make([]byte, 8)
	if err := c.Encode(fdY, CurrencyValue(19.99), dstY); err != nil {
		t.Fatalf("Encode Currency: %v", err)
	}
	vY, err := c.Decode(fdY, dstY)
	if err != nil {
		t.Fatalf("Decode Currency: %v", err)
	}
	if got, _ := vY.AsFloat64(); got != 19.99 {
		t.Errorf("Currency round trip = %v, want 19.99", got)
	}
}

func TestFieldCodecDateTimeRoundTrip(t *testing.T) {
	c := utf8Codec()
	fd := &FieldDescriptor{Type: 'T', Length: 8}
	date, _ := NewDate(2024, 6, 15)
	tm, _ := NewTime(13, 45, 30)
	dt := NewDateTime(date, tm)

	dst := make([]byte, 8)
	if err := c.Encode(fd, DateTimeValue(dt), dst); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	v, err := c.Decode(fd, dst)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := v.AsDateTime()
	if err != nil {
		t.Fatalf("AsDateTime: %v", err)
	}
	if got != dt {
		t.Errorf("round trip = %+v, want %+v", got, dt)
	}
}

// fakeMemo is an in-memory memoReader for testing the Memo field codec
// without a real MemoFile framing.
type fakeMemo struct {
	blocks [][]byte
}

func (m *fakeMemo) ReadBlock(index uint32) ([]byte, bool, error) {
	if index == 0 || int(index) > len(m.blocks) {
		return nil, true, ErrIncomplete
	}
	return m.blocks[index-1], true, nil
}

func (m *fakeMemo) WriteBlock(data []byte, isText bool) (uint32, error) {
	m.blocks = append(m.blocks, append([]byte{}, data...))
	return uint32(len(m.blocks)), nil
}

func TestFieldCodecMemoRoundTrip(t *testing.T) {
	c := utf8Codec()
	c.Memo = &fakeMemo{}
	fd := &FieldDescriptor{Type: 'M', Length: 10}

	dst := make([]byte, 10)
	if err := c.Encode(fd, MemoValue("long text here"), dst); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	v, err := c.Decode(fd, dst)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := v.AsString()
	if err != nil {
		t.Fatalf("AsString: %v", err)
	}
	if got != "long text here" {
		t.Errorf("Memo round trip = %q, want %q", got, "long text here")
	}
}

func TestFieldCodecMemoWithoutFileErrors(t *testing.T) {
	c := utf8Codec()
	fd := &FieldDescriptor{Type: 'M', Length: 4}
	_, err := c.Decode(fd, []byte{0x01, 0x00, 0x00, 0x00})
	if err != ErrNoMemoFile {
		t.Errorf("Decode() err = %v, want ErrNoMemoFile", err)
	}
}
