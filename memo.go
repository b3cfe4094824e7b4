package dbf

import (
	"encoding/binary"
	"io"
)

// memoTerminatorIII is the byte that ends a dBase III memo payload.
const memoTerminatorIII = 0x1A

// memoTerminatorIV is the two-byte sequence that ends a dBase IV memo
// payload.
var memoTerminatorIV = [2]byte{0x1F, 0x1F}

const defaultMemoBlockSize = 512

// MemoFile reads and writes the variable-length payloads a memo (M) field
// addresses by block index. Three on-disk framings are supported,
// selected by the owning table's file-type discriminator:
//
//   - dBase III (.dbt): fixed 512-byte blocks, payload runs to a 0x1A terminator.
//   - dBase IV (.dbt): length-prefixed records terminated by 0x1F 0x1F.
//   - FoxPro (.fpt): big-endian type+length prefixed records, no terminator.
type MemoFile struct {
	rw        io.ReadWriteSeeker
	format    memoFormat
	blockSize uint32
	nextFree  uint32

	buf []byte // reused read buffer, grown as needed
}

// openMemoFile reads a memo file's header and returns a MemoFile ready for
// ReadBlock/WriteBlock calls.
func openMemoFile(rw io.ReadWriteSeeker, format memoFormat) (*MemoFile, error) {
	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	hdr := make([]byte, 8)
	if _, err := io.ReadFull(rw, hdr); err != nil {
		return nil, err
	}

	m := &MemoFile{rw: rw, format: format}
	switch format {
	case memoFormatDBaseIII:
		m.nextFree = binary.LittleEndian.Uint32(hdr[0:4])
		m.blockSize = defaultMemoBlockSize
	case memoFormatDBaseIV:
		m.nextFree = binary.LittleEndian.Uint32(hdr[0:4])
		m.blockSize = uint32(binary.LittleEndian.Uint16(hdr[4:6]))
		if m.blockSize == 0 {
			m.blockSize = defaultMemoBlockSize
		}
	case memoFormatFoxPro:
		// Only block_size is big-endian in an .fpt header; the
		// next-free-block counter is little-endian like the .dbt formats.
		m.nextFree = binary.LittleEndian.Uint32(hdr[0:4])
		m.blockSize = uint32(binary.BigEndian.Uint16(hdr[6:8]))
	default:
		m.blockSize = defaultMemoBlockSize
	}
	if m.nextFree == 0 {
		m.nextFree = 1
	}
	return m, nil
}

// createMemoFile writes a fresh, empty memo file header for format.
func createMemoFile(rw io.ReadWriteSeeker, format memoFormat) (*MemoFile, error) {
	m := &MemoFile{rw: rw, format: format, blockSize: defaultMemoBlockSize, nextFree: 1}
	if err := m.writeFileHeader(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MemoFile) writeFileHeader() error {
	if _, err := m.rw.Seek(0, io.SeekStart); err != nil {
		return err
	}
	hdr := make([]byte, 8)
	switch m.format {
	case memoFormatDBaseIII:
		binary.LittleEndian.PutUint32(hdr[0:4], m.nextFree)
	case memoFormatDBaseIV:
		binary.LittleEndian.PutUint32(hdr[0:4], m.nextFree)
		binary.LittleEndian.PutUint16(hdr[4:6], uint16(m.blockSize))
	case memoFormatFoxPro:
		binary.LittleEndian.PutUint32(hdr[0:4], m.nextFree)
		binary.BigEndian.PutUint16(hdr[6:8], uint16(m.blockSize))
	}
	_, err := m.rw.Write(hdr)
	return err
}

func (m *MemoFile) ensureBuf(n int) {
	if cap(m.buf) < n {
		m.buf = make([]byte, n)
	}
	m.buf = m.buf[:n]
}

// ReadBlock reads the memo payload starting at block index, returning the
// raw bytes and whether the payload is text (as opposed to raw binary).
func (m *MemoFile) ReadBlock(index uint32) ([]byte, bool, error) {
	switch m.format {
	case memoFormatDBaseIII:
		return m.readBlockDBaseIII(index)
	case memoFormatDBaseIV:
		return m.readBlockDBaseIV(index)
	case memoFormatFoxPro:
		return m.readBlockFoxPro(index)
	default:
		return nil, false, ErrNoMemoFile
	}
}

func (m *MemoFile) seekBlock(index uint32) error {
	_, err := m.rw.Seek(int64(index)*int64(m.blockSize), io.SeekStart)
	return err
}

func (m *MemoFile) readBlockDBaseIII(index uint32) ([]byte, bool, error) {
	if err := m.seekBlock(index); err != nil {
		return nil, false, err
	}
	var out []byte
	chunk := make([]byte, m.blockSize)
	for {
		n, err := m.rw.Read(chunk)
		if n > 0 {
			if i := indexOfByte(chunk[:n], memoTerminatorIII); i >= 0 {
				out = append(out, chunk[:i]...)
				return out, true, nil
			}
			out = append(out, chunk[:n]...)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// The final block is allowed to end without a terminator.
			return out, true, nil
		}
		if err != nil {
			return out, true, err
		}
	}
}

func (m *MemoFile) readBlockDBaseIV(index uint32) ([]byte, bool, error) {
	if err := m.seekBlock(index); err != nil {
		return nil, false, err
	}
	rec := make([]byte, 8)
	if _, err := io.ReadFull(m.rw, rec); err != nil {
		return nil, false, err
	}
	length := binary.LittleEndian.Uint32(rec[4:8])
	m.ensureBuf(int(length))
	if length > 0 {
		if _, err := io.ReadFull(m.rw, m.buf); err != nil {
			return nil, true, err
		}
	}
	out := make([]byte, length)
	copy(out, m.buf)
	return out, true, nil
}

func (m *MemoFile) readBlockFoxPro(index uint32) ([]byte, bool, error) {
	if err := m.seekBlock(index); err != nil {
		return nil, false, err
	}
	rec := make([]byte, 8)
	if _, err := io.ReadFull(m.rw, rec); err != nil {
		return nil, false, err
	}
	sign := binary.BigEndian.Uint32(rec[0:4])
	length := binary.BigEndian.Uint32(rec[4:8])
	isText := sign == 1
	m.ensureBuf(int(length))
	if length > 0 {
		if _, err := io.ReadFull(m.rw, m.buf); err != nil {
			return nil, isText, err
		}
	}
	out := make([]byte, length)
	copy(out, m.buf)
	if isText {
		out = trimTrailingNUL(out)
	}
	return out, isText, nil
}

func indexOfByte(b []byte, target byte) int {
	for i, c := range b {
		if c == target {
			return i
		}
	}
	return -1
}

func trimTrailingNUL(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return b[:i]
}

// WriteBlock appends data as a new memo record, returning the block index
// it was written at. text indicates whether the payload should be framed
// as text (as opposed to raw binary) where the format distinguishes the two.
func (m *MemoFile) WriteBlock(data []byte, text bool) (uint32, error) {
	switch m.format {
	case memoFormatDBaseIII:
		return m.writeBlockDBaseIII(data)
	case memoFormatDBaseIV:
		return m.writeBlockDBaseIV(data)
	case memoFormatFoxPro:
		return m.writeBlockFoxPro(data, text)
	default:
		return 0, ErrNoMemoFile
	}
}

func (m *MemoFile) blocksNeeded(n int) uint32 {
	b := uint32(n) / m.blockSize
	if uint32(n)%m.blockSize != 0 {
		b++
	}
	if b == 0 {
		b = 1
	}
	return b
}

func (m *MemoFile) writeBlockDBaseIII(data []byte) (uint32, error) {
	index := m.nextFree
	if err := m.seekBlock(index); err != nil {
		return 0, err
	}
	payload := append(append([]byte{}, data...), memoTerminatorIII)
	if _, err := m.rw.Write(payload); err != nil {
		return 0, err
	}
	m.nextFree += m.blocksNeeded(len(payload))
	return index, m.writeFileHeader()
}

func (m *MemoFile) writeBlockDBaseIV(data []byte) (uint32, error) {
	index := m.nextFree
	if err := m.seekBlock(index); err != nil {
		return 0, err
	}
	rec := make([]byte, 8+len(data)+2)
	binary.LittleEndian.PutUint32(rec[0:4], 0x00000008)
	binary.LittleEndian.PutUint32(rec[4:8], uint32(len(data)))
	copy(rec[8:], data)
	copy(rec[8+len(data):], memoTerminatorIV[:])
	if _, err := m.rw.Write(rec); err != nil {
		return 0, err
	}
	m.nextFree += m.blocksNeeded(len(rec))
	return index, m.writeFileHeader()
}

func (m *MemoFile) writeBlockFoxPro(data []byte, text bool) (uint32, error) {
	index := m.nextFree
	if err := m.seekBlock(index); err != nil {
		return 0, err
	}
	sign := uint32(0)
	if text {
		sign = 1
	}
	rec := make([]byte, 8+len(data))
	binary.BigEndian.PutUint32(rec[0:4], sign)
	binary.BigEndian.PutUint32(rec[4:8], uint32(len(data)))
	copy(rec[8:], data)
	if _, err := m.rw.Write(rec); err != nil {
		return 0, err
	}
	m.nextFree += m.blocksNeeded(len(rec))
	return index, m.writeFileHeader()
}
