package dbf

import (
	"bytes"
	"encoding/binary"
	"io"
)

// FileType is the one-byte file-type discriminator at header offset 0,
// distinguishing dBase III, dBase IV and Visual FoxPro dialects.
type FileType byte

// Recognized file types, per the dBase/FoxPro file format documentation.
const (
	FileTypeFoxBASE             FileType = 0x02
	FileTypeFoxBASEPlusNoMemo   FileType = 0x03
	FileTypeVisualFoxPro        FileType = 0x30
	FileTypeVisualFoxProAI      FileType = 0x31
	FileTypeVisualFoxProVarchar FileType = 0x32
	FileTypeDBaseIVTable        FileType = 0x43
	FileTypeDBaseIVSystem       FileType = 0x63
	FileTypeFoxBASEPlusMemo     FileType = 0x83
	FileTypeDBaseIVMemo         FileType = 0x8B
	FileTypeDBaseIVTableMemo    FileType = 0xCB
	FileTypeFoxPro2Memo         FileType = 0xF5
	FileTypeHiPerSix            FileType = 0xE5
)

// IsVisualFoxPro reports whether the file type is one of the Visual FoxPro
// dialects, which carry a 263-byte backlink after the field-descriptor
// terminator.
func (ft FileType) IsVisualFoxPro() bool {
	switch ft {
	case FileTypeVisualFoxPro, FileTypeVisualFoxProAI, FileTypeVisualFoxProVarchar, FileTypeHiPerSix:
		return true
	default:
		return false
	}
}

// memoFormat identifies which of the three memo-file framings
// pairs with this file type.
type memoFormat int

const (
	memoFormatNone memoFormat = iota
	memoFormatDBaseIII
	memoFormatDBaseIV
	memoFormatFoxPro
)

func (ft FileType) memoFormat() memoFormat {
	switch ft {
	case FileTypeFoxBASEPlusMemo:
		return memoFormatDBaseIII
	case FileTypeDBaseIVMemo, FileTypeDBaseIVTableMemo:
		return memoFormatDBaseIV
	case FileTypeVisualFoxPro, FileTypeVisualFoxProAI, FileTypeVisualFoxProVarchar, FileTypeFoxPro2Memo, FileTypeHiPerSix:
		return memoFormatFoxPro
	default:
		return memoFormatNone
	}
}

const (
	headerSize          = 32
	fieldDescriptorSize = 32
	vfpBacklinkSize     = 263
	headerTerminator    = 0x0D
)

// Header is the 32-byte fixed portion of a DBF file.
type Header struct {
	FileType    FileType
	LastUpdate  [3]byte // YY, MM, DD
	NumRecords  uint32
	FirstRecord uint16 // offset to the first data record
	RecordSize  uint16 // size of one record, including the deletion-flag byte
	reserved    [20]byte
}

// TableFlags returns the table-flags byte (header offset 28).
func (h *Header) TableFlags() byte { return h.reserved[16] }

// SetTableFlags sets the table-flags byte (header offset 28).
func (h *Header) SetTableFlags(flags byte) { h.reserved[16] = flags }

// CodePageMark returns the code-page mark byte (header offset 29).
func (h *Header) CodePageMark() byte { return h.reserved[17] }

// SetCodePageMark sets the code-page mark byte (header offset 29).
func (h *Header) SetCodePageMark(mark byte) { h.reserved[17] = mark }

// HasMemo reports whether the table-flags byte advertises an attached memo
// file (bit 0x02).
func (h *Header) HasMemo() bool {
	return h.TableFlags()&0x02 != 0
}

// FieldDescriptor describes one field's name, type and on-disk layout.
// Displacement, Flags, the autoincrement counters and the trailing
// reserved bytes are preserved byte-for-byte on a read/write round trip but
// are not otherwise interpreted by this package.
type FieldDescriptor struct {
	Name     string
	Type     byte
	Length   byte
	Decimals byte

	Displacement      [4]byte
	Flags             byte
	AutoIncrementNext [5]byte
	AutoIncrementStep byte
	Reserved          [7]byte
}

// FixedBinaryLength returns the on-disk length mandated for binary-encoded
// field types (Logical, Date, Integer, Currency, DateTime, Double), and
// false for text-encoded types (Character, Numeric, Float, Memo) whose
// length is author-chosen.
func FixedBinaryLength(fieldType byte) (byte, bool) {
	switch fieldType {
	case 'L':
		return 1, true
	case 'D':
		return 8, true
	case 'I':
		return 4, true
	case 'Y':
		return 8, true
	case 'T':
		return 8, true
	case 'B':
		return 8, true
	default:
		return 0, false
	}
}

// IsValidFieldType reports whether b is one of the recognized type letters:
// C D F L N Y T I B M.
func IsValidFieldType(b byte) bool {
	switch b {
	case 'C', 'D', 'F', 'L', 'N', 'Y', 'T', 'I', 'B', 'M':
		return true
	default:
		return false
	}
}

// readHeader seeks to stream offset 0 and parses the 32-byte header there.
func readHeader(r io.ReadSeeker) (*Header, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	h := &Header{
		FileType: FileType(buf[0]),
	}
	copy(h.LastUpdate[:], buf[1:4])
	h.NumRecords = binary.LittleEndian.Uint32(buf[4:8])
	h.FirstRecord = binary.LittleEndian.Uint16(buf[8:10])
	h.RecordSize = binary.LittleEndian.Uint16(buf[10:12])
	copy(h.reserved[:], buf[12:32])
	return h, nil
}

// writeHeader emits the 32-byte header at the current stream position,
// which the caller must have already seeked to offset 0.
func writeHeader(w io.Writer, h *Header) error {
	buf := make([]byte, headerSize)
	buf[0] = byte(h.FileType)
	copy(buf[1:4], h.LastUpdate[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.NumRecords)
	binary.LittleEndian.PutUint16(buf[8:10], h.FirstRecord)
	binary.LittleEndian.PutUint16(buf[10:12], h.RecordSize)
	copy(buf[12:32], h.reserved[:])
	_, err := w.Write(buf)
	return err
}

// numFieldDescriptors derives the field count from the first-record offset:
// (first_record_offset - 32 - 1 - backlink_size) / 32.
func numFieldDescriptors(h *Header) int {
	backlink := 0
	if h.FileType.IsVisualFoxPro() {
		backlink = vfpBacklinkSize
	}
	n := int(h.FirstRecord) - headerSize - 1 - backlink
	if n < 0 {
		return 0
	}
	return n / fieldDescriptorSize
}

// readFieldDescriptors reads the field-descriptor table following the
// header, verifies the 0x0D terminator, and leaves the stream positioned
// right after the terminator (or the VFP backlink, if present).
func readFieldDescriptors(r io.ReadSeeker, h *Header, nameDec Encoding) ([]FieldDescriptor, error) {
	n := numFieldDescriptors(h)
	fields := make([]FieldDescriptor, 0, n)
	buf := make([]byte, fieldDescriptorSize)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		fd := FieldDescriptor{}
		name, err := nameDec.Decode(bytes.TrimRight(buf[0:11], "\x00"))
		if err != nil {
			name = string(bytes.TrimRight(buf[0:11], "\x00"))
		}
		fd.Name = name
		fd.Type = buf[11]
		copy(fd.Displacement[:], buf[12:16])
		fd.Length = buf[16]
		fd.Decimals = buf[17]
		fd.Flags = buf[18]
		copy(fd.AutoIncrementNext[:], buf[19:24])
		fd.AutoIncrementStep = buf[24]
		copy(fd.Reserved[:], buf[25:32])
		fields = append(fields, fd)
	}

	term := make([]byte, 1)
	if _, err := io.ReadFull(r, term); err != nil {
		return nil, err
	}
	if term[0] != headerTerminator {
		return nil, ErrInvalidHeaderTerminator
	}
	if h.FileType.IsVisualFoxPro() {
		if _, err := r.Seek(vfpBacklinkSize, io.SeekCurrent); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// writeFieldDescriptors emits the field-descriptor table, the terminator,
// and (for Visual FoxPro dialects) a zeroed backlink.
func writeFieldDescriptors(w io.Writer, fields []FieldDescriptor, fileType FileType, nameEnc Encoding) error {
	for _, fd := range fields {
		buf := make([]byte, fieldDescriptorSize)
		nameBytes, err := nameEnc.Encode(fd.Name)
		if err != nil {
			return err
		}
		if len(nameBytes) > 11 {
			nameBytes = nameBytes[:11]
		}
		copy(buf[0:11], nameBytes)
		buf[11] = fd.Type
		copy(buf[12:16], fd.Displacement[:])
		buf[16] = fd.Length
		buf[17] = fd.Decimals
		buf[18] = fd.Flags
		copy(buf[19:24], fd.AutoIncrementNext[:])
		buf[24] = fd.AutoIncrementStep
		copy(buf[25:32], fd.Reserved[:])
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	if _, err := w.Write([]byte{headerTerminator}); err != nil {
		return err
	}
	if fileType.IsVisualFoxPro() {
		if _, err := w.Write(make([]byte, vfpBacklinkSize)); err != nil {
			return err
		}
	}
	return nil
}

// recordSize computes 1 (deletion flag) + the sum of every field's length,
// the value the header's RecordSize must equal.
func recordSize(fields []FieldDescriptor) uint16 {
	total := 1
	for _, fd := range fields {
		total += int(fd.Length)
	}
	return uint16(total)
}

// firstRecordOffset computes the header's FirstRecord value for a schema
// about to be written: 32 (header) + 32*len(fields) (descriptors) + 1
// (terminator) + the VFP backlink if applicable.
func firstRecordOffset(fields []FieldDescriptor, fileType FileType) uint16 {
	n := headerSize + fieldDescriptorSize*len(fields) + 1
	if fileType.IsVisualFoxPro() {
		n += vfpBacklinkSize
	}
	return uint16(n)
}
