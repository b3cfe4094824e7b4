package dbf

import (
	"os"
	"path/filepath"
	"time"
)

// TableBuilder constructs a new table's schema field by field, then
// materializes it either as an in-memory description (BuildTableInfo), onto
// a caller-supplied stream (BuildWithDest), or onto a new file pair on disk
// (BuildWithFileDest).
//
// A TableBuilder is single-use: once any Build* method has been called, its
// schema is frozen and further Add calls fail with ErrSchemaFrozen, mirroring
// the immutable-once-open rule Table itself follows.
type TableBuilder struct {
	fileType FileType
	encoding Encoding
	fields   []FieldDescriptor
	built    bool
}

// NewTableBuilder starts a new schema with the Visual FoxPro file type and
// UTF-8 encoding as defaults; both can be overridden before any field is
// added.
func NewTableBuilder() *TableBuilder {
	enc, _ := NewEncoding(CodePageUTF8)
	return &TableBuilder{fileType: FileTypeVisualFoxPro, encoding: enc}
}

// SetEncoding overrides the code page field names and Character/Memo values
// are translated through.
func (b *TableBuilder) SetEncoding(enc Encoding) *TableBuilder {
	b.encoding = enc
	return b
}

// SetFileType overrides the file-type discriminator written to the header,
// which also selects the memo-file framing a Memo field pairs with.
func (b *TableBuilder) SetFileType(ft FileType) *TableBuilder {
	b.fileType = ft
	return b
}

func (b *TableBuilder) addField(fd FieldDescriptor) error {
	if b.built {
		return ErrSchemaFrozen
	}
	if len(fd.Name) == 0 || len(fd.Name) > 11 {
		return ErrInvalidField
	}
	b.fields = append(b.fields, fd)
	return nil
}

// AddCharacterField adds a Character field of the given on-disk byte width.
func (b *TableBuilder) AddCharacterField(name string, length byte) error {
	return b.addField(FieldDescriptor{Name: name, Type: 'C', Length: length})
}

// AddNumericField adds a Numeric field with the given width and decimal
// places.
func (b *TableBuilder) AddNumericField(name string, length, decimals byte) error {
	return b.addField(FieldDescriptor{Name: name, Type: 'N', Length: length, Decimals: decimals})
}

// AddFloatField adds a Float field with the given width and decimal places.
func (b *TableBuilder) AddFloatField(name string, length, decimals byte) error {
	return b.addField(FieldDescriptor{Name: name, Type: 'F', Length: length, Decimals: decimals})
}

// AddLogicalField adds a 1-byte Logical field.
func (b *TableBuilder) AddLogicalField(name string) error {
	length, _ := FixedBinaryLength('L')
	return b.addField(FieldDescriptor{Name: name, Type: 'L', Length: length})
}

// AddDateField adds an 8-byte Date field.
func (b *TableBuilder) AddDateField(name string) error {
	length, _ := FixedBinaryLength('D')
	return b.addField(FieldDescriptor{Name: name, Type: 'D', Length: length})
}

// AddIntegerField adds a 4-byte Integer field.
func (b *TableBuilder) AddIntegerField(name string) error {
	length, _ := FixedBinaryLength('I')
	return b.addField(FieldDescriptor{Name: name, Type: 'I', Length: length})
}

// AddCurrencyField adds an 8-byte Currency field.
func (b *TableBuilder) AddCurrencyField(name string) error {
	length, _ := FixedBinaryLength('Y')
	return b.addField(FieldDescriptor{Name: name, Type: 'Y', Length: length})
}

// AddDoubleField adds an 8-byte Double field.
func (b *TableBuilder) AddDoubleField(name string) error {
	length, _ := FixedBinaryLength('B')
	return b.addField(FieldDescriptor{Name: name, Type: 'B', Length: length})
}

// AddDateTimeField adds an 8-byte DateTime field.
func (b *TableBuilder) AddDateTimeField(name string) error {
	length, _ := FixedBinaryLength('T')
	return b.addField(FieldDescriptor{Name: name, Type: 'T', Length: length})
}

// AddMemoField adds a Memo field whose on-disk slot is length bytes wide
// (the conventional value is 10, a decimal block-index string; the FoxPro
// convention of a 4-byte binary block index also works as long as length
// is exactly 4).
func (b *TableBuilder) AddMemoField(name string, length byte) error {
	return b.addField(FieldDescriptor{Name: name, Type: 'M', Length: length})
}

func (b *TableBuilder) hasMemoField() bool {
	for _, fd := range b.fields {
		if fd.Type == 'M' {
			return true
		}
	}
	return false
}

func (b *TableBuilder) header() *Header {
	h := &Header{
		FileType:    b.fileType,
		FirstRecord: firstRecordOffset(b.fields, b.fileType),
		RecordSize:  recordSize(b.fields),
	}
	now := time.Now()
	h.LastUpdate = [3]byte{byte(now.Year() - 1900), byte(now.Month()), byte(now.Day())}
	h.SetCodePageMark(markForCodePage(b.codePage()))
	if b.hasMemoField() {
		h.SetTableFlags(h.TableFlags() | 0x02)
	}
	return h
}

func (b *TableBuilder) codePage() CodePage {
	cp, ok := codePageForMark(b.encoding.CodePageMark())
	if !ok {
		return CodePageUTF8
	}
	return cp
}

// TableInfo is the in-memory description of a schema, built without
// writing any bytes.
type TableInfo struct {
	Header *Header
	Fields []FieldDescriptor
}

// BuildTableInfo freezes the schema and returns its in-memory description
// without writing anything.
func (b *TableBuilder) BuildTableInfo() (*TableInfo, error) {
	if len(b.fields) == 0 {
		return nil, ErrNotEnoughFields
	}
	b.built = true
	return &TableInfo{Header: b.header(), Fields: append([]FieldDescriptor(nil), b.fields...)}, nil
}

// BuildWithDest freezes the schema, writes the header and field descriptors
// to dest, and returns a Table open on it with zero records. memo, if
// non-nil, becomes the table's memo stream (required if the schema has any
// Memo field); its file header is written fresh.
func (b *TableBuilder) BuildWithDest(dest ReadWriteSeeker, memo ReadWriteSeeker) (*Table, error) {
	info, err := b.BuildTableInfo()
	if err != nil {
		return nil, err
	}
	if b.hasMemoField() && memo == nil {
		return nil, ErrNoMemoFile
	}

	if _, err := dest.Seek(0, 0); err != nil {
		return nil, err
	}
	if err := writeHeader(dest, info.Header); err != nil {
		return nil, err
	}
	if err := writeFieldDescriptors(dest, info.Fields, info.Header.FileType, b.encoding); err != nil {
		return nil, err
	}

	opts := []Option{WithEncoding(b.encoding)}
	if memo != nil {
		if _, err := createMemoFile(memo, info.Header.FileType.memoFormat()); err != nil {
			return nil, err
		}
		opts = append(opts, WithMemoReader(memo))
	}
	return OpenStream(dest, nil, opts...)
}

// BuildWithFileDest freezes the schema and creates a new table file (and,
// if the schema has any Memo field, its paired .dbt/.fpt memo file) at
// path, then opens and returns it.
func (b *TableBuilder) BuildWithFileDest(path string) (*Table, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	var memf *os.File
	if b.hasMemoField() {
		memoPath := memoFilePath(path, b.fileType)
		memf, err = os.OpenFile(memoPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	var memRW ReadWriteSeeker
	if memf != nil {
		memRW = memf
	}
	t, err := b.BuildWithDest(f, memRW)
	if err != nil {
		f.Close()
		if memf != nil {
			memf.Close()
		}
		return nil, err
	}
	t.f = f
	t.memf = memf
	return t, nil
}
