package dbf

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadWriteSeeker is the capability Table needs from its underlying byte
// source: random-access reads for cursors, writes for in-place mutation and
// append, and ReadAt-free positioning via Seek (the engine tracks position
// itself rather than requiring io.ReaderAt, so in-memory buffers and
// *os.File both work unmodified).
type ReadWriteSeeker interface {
	io.Reader
	io.Writer
	io.Seeker
}

// Option configures how a Table is opened (character encoding, trimming,
// and compatibility quirks). Options follow the functional-options idiom,
// the same shape most Go database drivers use for open-time knobs.
type Option func(*openConfig)

type openConfig struct {
	encoding          Encoding
	trim              TrimPolicy
	logicalZeroIsTrue bool
	memo              ReadWriteSeeker
	memoProvided      bool
}

// WithEncoding overrides automatic code-page detection with an explicit
// Encoding, used for both field names and Character/Memo field payloads.
func WithEncoding(enc Encoding) Option {
	return func(c *openConfig) { c.encoding = enc }
}

// WithTrimPolicy overrides the default TrimBoth policy for Character fields.
func WithTrimPolicy(p TrimPolicy) Option {
	return func(c *openConfig) { c.trim = p }
}

// WithLogicalZeroIsTrue makes Logical fields read an ASCII '0' as true
// instead of the classical false, matching files produced by tools that
// follow that convention.
func WithLogicalZeroIsTrue() Option {
	return func(c *openConfig) { c.logicalZeroIsTrue = true }
}

// WithMemoReader supplies an explicit memo-file stream, for OpenStream
// callers whose memo data doesn't live beside the main file on disk.
func WithMemoReader(rw ReadWriteSeeker) Option {
	return func(c *openConfig) { c.memo = rw; c.memoProvided = true }
}

// Table is a single dBase-family table file, opened for random-access
// reading and, when its underlying stream supports writes, in-place
// mutation and append. A Table is not safe for concurrent use.
type Table struct {
	header *Header
	fields []FieldDescriptor
	// fieldOffset[j] is the byte offset of field j within a record, after
	// the one-byte deletion flag.
	fieldOffset []int

	engine *recordEngine
	codec  *FieldCodec
	memo   *MemoFile

	nameEncoding Encoding

	f    *os.File
	memf *os.File

	headerCorrected bool
	unknownCodePage bool
}

func buildFieldOffsets(fields []FieldDescriptor) []int {
	offsets := make([]int, len(fields))
	pos := 1
	for i, fd := range fields {
		offsets[i] = pos
		pos += int(fd.Length)
	}
	return offsets
}

// OpenFile opens a dBase table file (and its memo side-file, if the header
// advertises one) from disk for reading and writing, falling back to
// read-only when a file cannot be opened for writing. The caller must call
// Close when done.
func OpenFile(path string, opts ...Option) (*Table, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if ro, roErr := os.Open(path); roErr == nil {
			f = ro
		} else {
			return nil, err
		}
	}

	t, err := openTable(f, nil, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	t.f = f

	if t.header.HasMemo() && t.memo == nil {
		memoPath := memoFilePath(path, t.header.FileType)
		memf, memErr := os.OpenFile(memoPath, os.O_RDWR, 0)
		if memErr != nil {
			if ro, roErr := os.Open(memoPath); roErr == nil {
				memf = ro
			}
			// Absence of the memo file is tolerated until a memo read is
			// attempted; t.memo stays nil.
		}
		if memf != nil {
			memoFile, memErr := openMemoFile(memf, t.header.FileType.memoFormat())
			if memErr != nil {
				memf.Close()
				f.Close()
				return nil, memErr
			}
			t.memo = memoFile
			t.codec.Memo = memoFile
			t.memf = memf
		}
	}

	return t, nil
}

func memoFilePath(dbfPath string, ft FileType) string {
	ext := ".dbt"
	if ft.memoFormat() == memoFormatFoxPro {
		ext = ".fpt"
	}
	fileExt := filepath.Ext(dbfPath)
	if strings.ToUpper(fileExt) == fileExt && fileExt != "" {
		ext = strings.ToUpper(ext)
	}
	return strings.TrimSuffix(dbfPath, fileExt) + ext
}

// OpenStream opens a table whose bytes come from an in-memory or
// otherwise non-file ReadWriteSeeker. memoRW may be nil if the table has no
// memo fields, or supplied via WithMemoReader.
func OpenStream(rw ReadWriteSeeker, memoRW ReadWriteSeeker, opts ...Option) (*Table, error) {
	return openTable(rw, memoRW, opts...)
}

func openTable(rw ReadWriteSeeker, memoRW ReadWriteSeeker, opts ...Option) (*Table, error) {
	cfg := &openConfig{trim: TrimBoth}
	for _, o := range opts {
		o(cfg)
	}
	if memoRW != nil {
		cfg.memo = memoRW
		cfg.memoProvided = true
	}

	header, err := readHeader(rw)
	if err != nil {
		return nil, err
	}

	nameEnc := cfg.encoding
	unknownCP := false
	if nameEnc == nil {
		cp, known := codePageForMark(header.CodePageMark())
		unknownCP = !known
		nameEnc, err = NewEncoding(cp)
		if err != nil {
			return nil, err
		}
	}

	fields, err := readFieldDescriptors(rw, header, nameEnc)
	if err != nil {
		return nil, err
	}

	// Recompute and correct the record size, tolerating files (written by
	// other tools) whose declared size omits the deletion-flag byte.
	want := recordSize(fields)
	corrected := false
	if header.RecordSize != want {
		header.RecordSize = want
		corrected = true
	}

	if _, err := rw.Seek(int64(header.FirstRecord), io.SeekStart); err != nil {
		return nil, err
	}

	engine, err := newRecordEngine(rw, header)
	if err != nil {
		return nil, err
	}

	t := &Table{
		header:          header,
		fields:          fields,
		fieldOffset:     buildFieldOffsets(fields),
		engine:          engine,
		nameEncoding:    nameEnc,
		headerCorrected: corrected,
		unknownCodePage: unknownCP,
	}

	codec := &FieldCodec{Enc: nameEnc, Trim: cfg.trim, LogicalZeroIsTrue: cfg.logicalZeroIsTrue}
	t.codec = codec

	if cfg.memoProvided && cfg.memo != nil {
		memoFile, err := openMemoFile(cfg.memo, header.FileType.memoFormat())
		if err != nil {
			return nil, err
		}
		t.memo = memoFile
		codec.Memo = memoFile
	}

	return t, nil
}

// Close closes the underlying file handle(s), if Table owns any (i.e. it
// was opened with OpenFile rather than OpenStream).
func (t *Table) Close() error {
	var err error
	if t.f != nil {
		err = t.f.Close()
	}
	if t.memf != nil {
		if memErr := t.memf.Close(); memErr != nil && err == nil {
			err = memErr
		}
	}
	return err
}

// Header returns the table's header for inspection.
func (t *Table) Header() *Header { return t.header }

// Fields returns the field descriptors in declaration order.
func (t *Table) Fields() []FieldDescriptor { return t.fields }

// NumFields returns the number of fields in the schema.
func (t *Table) NumFields() int { return len(t.fields) }

// NumRecords returns the number of records (including deleted ones).
func (t *Table) NumRecords() uint32 { return t.header.NumRecords }

// FieldPos returns the zero-based position of fieldname, or -1 if not found.
func (t *Table) FieldPos(fieldname string) int {
	for i, fd := range t.fields {
		if fd.Name == fieldname {
			return i
		}
	}
	return -1
}

// HeaderWasCorrected reports whether opening this table found a record-size
// header value that disagreed with the schema's actual record size and
// silently corrected it in memory (the corrected value
// is only written to disk the next time the header is flushed).
func (t *Table) HeaderWasCorrected() bool { return t.headerCorrected }

// CodePageWasUnknown reports whether the header carried a code-page mark
// this package does not recognize, in which case the table fell back to
// UTF-8. It is always false when the encoding was supplied explicitly
// via WithEncoding.
func (t *Table) CodePageWasUnknown() bool { return t.unknownCodePage }

// Encoding returns the Encoding this table decodes/encodes Character, Memo
// and field-name bytes with.
func (t *Table) Encoding() Encoding { return t.nameEncoding }

// Record returns a cursor over record index, or ErrEOF if index is at or
// beyond NumRecords.
func (t *Table) Record(index uint32) (*RecordCursor, error) {
	if index >= t.NumRecords() {
		return nil, ErrEOF
	}
	return &RecordCursor{table: t, index: index}, nil
}

// blankRecord builds the byte image of a live record with every field
// blank: text-encoded slots are space-filled (the null/empty value those
// types decode from), binary slots stay zero.
func (t *Table) blankRecord() []byte {
	blank := make([]byte, t.header.RecordSize)
	blank[0] = ' '
	for j, fd := range t.fields {
		switch fd.Type {
		case 'C', 'N', 'F', 'D', 'L':
			off := t.fieldOffset[j]
			for i := 0; i < int(fd.Length); i++ {
				blank[off+i] = ' '
			}
		case 'M':
			if fd.Length > 4 {
				off := t.fieldOffset[j]
				for i := 0; i < int(fd.Length); i++ {
					blank[off+i] = ' '
				}
			}
		}
	}
	return blank
}

// AppendRecord appends a new, all-blank, live record and returns a cursor
// positioned on it, ready to have its fields written.
func (t *Table) AppendRecord() (*RecordCursor, error) {
	blank := t.blankRecord()
	if err := t.engine.appendRecord(blank); err != nil {
		return nil, err
	}
	if err := t.engine.flushHeader(); err != nil {
		return nil, err
	}
	return &RecordCursor{table: t, index: t.NumRecords() - 1}, nil
}

// RecordCursor is a view over one record, exposing per-field read/write and
// whole-record read/write.
type RecordCursor struct {
	table *Table
	index uint32
}

// Index returns the record's zero-based position.
func (rc *RecordCursor) Index() uint32 { return rc.index }

// IsDeleted reports whether the record's deletion flag is set.
func (rc *RecordCursor) IsDeleted() (bool, error) {
	return rc.table.engine.isDeleted(rc.index)
}

// Delete sets the record's deletion flag.
func (rc *RecordCursor) Delete() error {
	return rc.table.engine.writeFieldSlice(rc.index, 0, []byte{0x2A})
}

// Undelete clears the record's deletion flag.
func (rc *RecordCursor) Undelete() error {
	return rc.table.engine.writeFieldSlice(rc.index, 0, []byte{0x20})
}

// Field returns a cursor over field j (0-based) of this record, or
// ErrInvalidField if j is out of range.
func (rc *RecordCursor) Field(j int) (*FieldCursor, error) {
	if j < 0 || j >= len(rc.table.fields) {
		return nil, ErrInvalidField
	}
	return &FieldCursor{record: rc, field: j}, nil
}

// FieldByName returns a cursor over the field named name, or
// ErrInvalidField if no such field exists.
func (rc *RecordCursor) FieldByName(name string) (*FieldCursor, error) {
	j := rc.table.FieldPos(name)
	if j < 0 {
		return nil, ErrInvalidField
	}
	return &FieldCursor{record: rc, field: j}, nil
}

// ReadFieldValues decodes every field of the record, in declaration order.
func (rc *RecordCursor) ReadFieldValues() ([]FieldValue, error) {
	if _, err := rc.table.engine.ensureLoaded(rc.index); err != nil {
		return nil, recordErr(rc.index, nil, err)
	}
	values := make([]FieldValue, len(rc.table.fields))
	for j := range rc.table.fields {
		v, err := rc.decodeField(j)
		if err != nil {
			return values, recordErr(rc.index, &rc.table.fields[j], err)
		}
		values[j] = v
	}
	return values, nil
}

func (rc *RecordCursor) decodeField(j int) (FieldValue, error) {
	fd := &rc.table.fields[j]
	off := rc.table.fieldOffset[j]
	raw := rc.table.engine.buf[off : off+int(fd.Length)]
	return rc.table.codec.Decode(fd, raw)
}

// ReadMap decodes the record into a map from field name to FieldValue, the
// default ReadableRecord implementation.
func (rc *RecordCursor) ReadMap() (map[string]FieldValue, error) {
	values, err := rc.ReadFieldValues()
	if err != nil {
		return nil, err
	}
	out := make(map[string]FieldValue, len(values))
	for j, fd := range rc.table.fields {
		out[fd.Name] = values[j]
	}
	return out, nil
}

// WriteFieldValues encodes and writes every field of the record, in
// declaration order, in a single whole-record write.
func (rc *RecordCursor) WriteFieldValues(values []FieldValue) error {
	if len(values) != len(rc.table.fields) {
		if len(values) < len(rc.table.fields) {
			return ErrNotEnoughFields
		}
		return ErrTooManyFields
	}
	buf := make([]byte, rc.table.header.RecordSize)
	buf[0] = ' '
	for j, fd := range rc.table.fields {
		off := rc.table.fieldOffset[j]
		slot := buf[off : off+int(fd.Length)]
		for i := range slot {
			slot[i] = 0
		}
		if err := rc.table.codec.Encode(&fd, values[j], slot); err != nil {
			return recordErr(rc.index, &rc.table.fields[j], err)
		}
	}
	return rc.table.engine.writeRecord(rc.index, buf)
}

// FieldCursor is a view over one field of one record.
type FieldCursor struct {
	record *RecordCursor
	field  int
}

// Descriptor returns the field's schema descriptor.
func (fc *FieldCursor) Descriptor() *FieldDescriptor {
	return &fc.record.table.fields[fc.field]
}

// Read decodes the current value of the field.
func (fc *FieldCursor) Read() (FieldValue, error) {
	if _, err := fc.record.table.engine.ensureLoaded(fc.record.index); err != nil {
		return FieldValue{}, recordErr(fc.record.index, fc.Descriptor(), err)
	}
	v, err := fc.record.decodeField(fc.field)
	if err != nil {
		return FieldValue{}, recordErr(fc.record.index, fc.Descriptor(), err)
	}
	return v, nil
}

// Write encodes and writes v to the field's slot in place. When this record
// is the one held in the table's record buffer, the buffer is updated too,
// so a subsequent Read on the same record sees the new value without
// further I/O; otherwise the next Read loads the record from the stream.
func (fc *FieldCursor) Write(v FieldValue) error {
	fd := fc.Descriptor()
	off := fc.record.table.fieldOffset[fc.field]
	slot := fc.record.table.engine.fieldScratch(int(fd.Length))
	if err := fc.record.table.codec.Encode(fd, v, slot); err != nil {
		return recordErr(fc.record.index, fd, err)
	}
	return fc.record.table.engine.writeFieldSlice(fc.record.index, off, slot)
}
