package wire

import (
	"encoding/binary"
	"math"
)

// Writer appends typed fields to a caller-provided buffer and tracks the
// write cursor. All multi-byte values are little-endian unless noted.
// The buffer must be large enough for the packet being built; builders size
// their buffers from pool capacities fixed per protocol.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter creates a Writer over buf starting at offset 0.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// WriteUint8 writes one byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf[w.pos] = v
	w.pos++
}

// WriteUint16 writes a uint16 (LE).
func (w *Writer) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
}

// WriteUint32 writes a uint32 (LE).
func (w *Writer) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
}

// WriteUint64 writes a uint64 (LE).
func (w *Writer) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.pos:], v)
	w.pos += 8
}

// WriteFloat32 writes a float32 (LE IEEE 754).
func (w *Writer) WriteFloat32(v float32) {
	binary.LittleEndian.PutUint32(w.buf[w.pos:], math.Float32bits(v))
	w.pos += 4
}

// WriteBytes writes b verbatim.
func (w *Writer) WriteBytes(b []byte) {
	copy(w.buf[w.pos:], b)
	w.pos += len(b)
}

// WriteCString writes s followed by a null terminator.
func (w *Writer) WriteCString(s string) {
	copy(w.buf[w.pos:], s)
	w.pos += len(s)
	w.buf[w.pos] = 0
	w.pos++
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.pos
}

// Skip reserves n bytes at the cursor, returning their offset. Used for
// size fields backfilled once the body length is known.
func (w *Writer) Skip(n int) int {
	off := w.pos
	for i := range n {
		w.buf[off+i] = 0
	}
	w.pos += n
	return off
}

// PutUint16At backfills a uint16 (LE) at a previously reserved offset.
func (w *Writer) PutUint16At(off int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[off:], v)
}
