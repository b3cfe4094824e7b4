package dbf

import (
	"io"
)

// recordEngine is the buffered, position-tracking record I/O layer
// underneath Table. It holds one record-sized buffer and one 255-byte
// field scratch buffer for the lifetime of the handle.
type recordEngine struct {
	rw     io.ReadWriteSeeker
	header *Header

	recordSize  int64
	firstRecord int64

	pos int64 // the stream position this engine believes it's at

	buf       []byte
	bufRecord int64 // record index currently held in buf, -1 if none
	bufValid  bool

	scratch [255]byte
}

func newRecordEngine(rw io.ReadWriteSeeker, header *Header) (*recordEngine, error) {
	pos, err := rw.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &recordEngine{
		rw:          rw,
		header:      header,
		recordSize:  int64(header.RecordSize),
		firstRecord: int64(header.FirstRecord),
		pos:         pos,
		buf:         make([]byte, header.RecordSize),
		bufRecord:   -1,
	}, nil
}

// recordOffset computes a record's absolute byte offset.
func (e *recordEngine) recordOffset(index uint32) int64 {
	return e.firstRecord + int64(index)*e.recordSize
}

func (e *recordEngine) numRecords() uint32 { return e.header.NumRecords }

// seekTo seeks the stream to off, skipping the syscall if the engine's
// tracked position already equals off.
func (e *recordEngine) seekTo(off int64) error {
	if e.pos == off {
		return nil
	}
	if _, err := e.rw.Seek(off, io.SeekStart); err != nil {
		return err
	}
	e.pos = off
	return nil
}

// ensureLoaded makes e.buf hold record index's bytes, returning loaded=true
// if a seek+read was actually performed (false when the buffer already
// held this record).
func (e *recordEngine) ensureLoaded(index uint32) (loaded bool, err error) {
	if index >= e.numRecords() {
		return false, ErrEOF
	}
	if e.bufValid && e.bufRecord == int64(index) {
		return false, nil
	}
	off := e.recordOffset(index)
	if err := e.seekTo(off); err != nil {
		return false, err
	}
	n, err := io.ReadFull(e.rw, e.buf)
	e.pos += int64(n)
	if err != nil {
		e.bufValid = false
		return false, err
	}
	e.bufRecord = int64(index)
	e.bufValid = true
	return true, nil
}

// writeRecord writes data (len(data) == recordSize) to record index and
// refreshes the buffer to match, so a subsequent read sees the new value
// without re-issuing I/O.
func (e *recordEngine) writeRecord(index uint32, data []byte) error {
	if index >= e.numRecords() {
		return ErrEOF
	}
	off := e.recordOffset(index)
	if err := e.seekTo(off); err != nil {
		return err
	}
	n, err := e.rw.Write(data)
	e.pos += int64(n)
	if err != nil {
		e.bufValid = false
		return err
	}
	copy(e.buf, data)
	e.bufRecord = int64(index)
	e.bufValid = true
	return nil
}

// fieldScratch returns the engine's reusable field-sized scratch buffer,
// zeroed and truncated to n bytes. Callers must finish with the slice before the
// next call, since it aliases e.scratch.
func (e *recordEngine) fieldScratch(n int) []byte {
	s := e.scratch[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}

// writeFieldSlice writes a single field's byte range at record index
// without touching the rest of the record, and keeps the buffer consistent.
func (e *recordEngine) writeFieldSlice(index uint32, fieldStart int, data []byte) error {
	if index >= e.numRecords() {
		return ErrEOF
	}
	off := e.recordOffset(index) + int64(fieldStart)
	if err := e.seekTo(off); err != nil {
		return err
	}
	n, err := e.rw.Write(data)
	e.pos += int64(n)
	if err != nil {
		e.bufValid = false
		return err
	}
	if e.bufValid && e.bufRecord == int64(index) {
		copy(e.buf[fieldStart:fieldStart+len(data)], data)
	}
	return nil
}

// appendRecord writes data as a new record past the last existing one and
// increments the in-memory record count; the caller must call flushHeader
// to persist the new count.
func (e *recordEngine) appendRecord(data []byte) error {
	off := e.recordOffset(e.numRecords())
	if err := e.seekTo(off); err != nil {
		return err
	}
	n, err := e.rw.Write(data)
	e.pos += int64(n)
	if err != nil {
		return err
	}
	e.header.NumRecords++
	copy(e.buf, data)
	e.bufRecord = int64(e.header.NumRecords - 1)
	e.bufValid = true
	return nil
}

// flushHeader rewinds, rewrites the 32-byte header (to propagate an updated
// record count or record size), and restores the previous position.
func (e *recordEngine) flushHeader() error {
	saved := e.pos
	if _, err := e.rw.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := writeHeader(e.rw, e.header); err != nil {
		return err
	}
	e.pos = headerSize
	return e.seekTo(saved)
}

// isDeleted reports whether record index's deletion flag is set, loading
// the whole record into the buffer if it is not already there.
func (e *recordEngine) isDeleted(index uint32) (bool, error) {
	if index >= e.numRecords() {
		return false, ErrEOF
	}
	if _, err := e.ensureLoaded(index); err != nil {
		return false, err
	}
	return e.buf[0] == 0x2A, nil
}
