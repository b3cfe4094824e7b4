package dbf

import "testing"

func TestHeaderWriteReadRoundTrip(t *testing.T) {
	enc, _ := NewEncoding(CodePageUTF8)
	fields := []FieldDescriptor{
		{Name: "NAME", Type: 'C', Length: 20},
		{Name: "AGE", Type: 'N', Length: 3, Decimals: 0},
	}
	h := &Header{
		FileType:    FileTypeVisualFoxPro,
		NumRecords:  0,
		FirstRecord: firstRecordOffset(fields, FileTypeVisualFoxPro),
		RecordSize:  recordSize(fields),
	}
	h.SetCodePageMark(markForCodePage(CodePageUTF8))

	rw := newMemRWS()
	if err := writeHeader(rw, h); err != nil {
		t.Fatalf("writeHeader: %v", err)
	}
	if err := writeFieldDescriptors(rw, fields, h.FileType, enc); err != nil {
		t.Fatalf("writeFieldDescriptors: %v", err)
	}

	got, err := readHeader(rw)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if got.FileType != h.FileType || got.RecordSize != h.RecordSize || got.FirstRecord != h.FirstRecord {
		t.Errorf("readHeader() = %+v, want %+v", got, h)
	}

	gotFields, err := readFieldDescriptors(rw, got, enc)
	if err != nil {
		t.Fatalf("readFieldDescriptors: %v", err)
	}
	if len(gotFields) != len(fields) {
		t.Fatalf("len(gotFields) = %d, want %d", len(gotFields), len(fields))
	}
	for i, fd := range fields {
		if gotFields[i].Name != fd.Name || gotFields[i].Type != fd.Type || gotFields[i].Length != fd.Length {
			t.Errorf("field %d = %+v, want %+v", i, gotFields[i], fd)
		}
	}
}

func TestRecordSizeInvariant(t *testing.T) {
	fields := []FieldDescriptor{
		{Name: "A", Type: 'C', Length: 5},
		{Name: "B", Type: 'N', Length: 8, Decimals: 2},
	}
	// 1 deletion-flag byte + 5 + 8.
	if got, want := recordSize(fields), uint16(14); got != want {
		t.Errorf("recordSize() = %d, want %d", got, want)
	}
}

func TestFixedBinaryLength(t *testing.T) {
	cases := map[byte]byte{'L': 1, 'D': 8, 'I': 4, 'Y': 8, 'T': 8, 'B': 8}
	for ft, want := range cases {
		got, ok := FixedBinaryLength(ft)
		if !ok || got != want {
			t.Errorf("FixedBinaryLength(%q) = (%d, %v), want (%d, true)", ft, got, ok, want)
		}
	}
	if _, ok := FixedBinaryLength('C'); ok {
		t.Errorf("FixedBinaryLength('C') should report false (author-chosen length)")
	}
}

func TestInvalidHeaderTerminator(t *testing.T) {
	enc, _ := NewEncoding(CodePageUTF8)
	fields := []FieldDescriptor{{Name: "A", Type: 'C', Length: 1}}
	h := &Header{FileType: FileTypeDBaseIVTable, FirstRecord: firstRecordOffset(fields, FileTypeDBaseIVTable), RecordSize: recordSize(fields)}

	rw := newMemRWS()
	if err := writeHeader(rw, h); err != nil {
		t.Fatalf("writeHeader: %v", err)
	}
	// Write a field descriptor but corrupt the terminator byte.
	buf := make([]byte, fieldDescriptorSize)
	copy(buf[0:11], []byte("A"))
	buf[11] = 'C'
	buf[16] = 1
	if _, err := rw.Write(buf); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if _, err := rw.Write([]byte{0xFF}); err != nil { // wrong terminator
		t.Fatalf("write terminator: %v", err)
	}

	if _, err := rw.Seek(headerSize, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	_, err := readFieldDescriptors(rw, h, enc)
	if err != ErrInvalidHeaderTerminator {
		t.Errorf("readFieldDescriptors() err = %v, want ErrInvalidHeaderTerminator", err)
	}
}
