package wire

import (
	"bytes"
	"math"
	"testing"
)

func TestWriter_LittleEndianScalars(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)

	w.WriteUint8(0x2A)
	w.WriteUint16(0x1234)
	w.WriteUint32(0x12345678)
	w.WriteUint64(0x0123456789ABCDEF)

	want := []byte{
		0x2A,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0xEF, 0xCD, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01,
	}
	if !bytes.Equal(buf[:w.Len()], want) {
		t.Fatalf("wrote %x, want %x", buf[:w.Len()], want)
	}
}

func TestWriter_RoundTripWithReader(t *testing.T) {
	buf := make([]byte, 64)
	w := NewWriter(buf)
	w.WriteCString("Azeroth")
	w.WriteFloat32(1.5)
	w.WriteBytes([]byte{0xAA, 0xBB})

	r := NewReader(buf[:w.Len()])
	s, err := r.ReadCString()
	if err != nil || s != "Azeroth" {
		t.Fatalf("ReadCString = %q, %v", s, err)
	}
	raw, err := r.ReadUint32()
	if err != nil {
		t.Fatal(err)
	}
	if f := math.Float32frombits(raw); f != 1.5 {
		t.Fatalf("float round-trip = %v", f)
	}
	rest, err := r.ReadBytes(2)
	if err != nil || !bytes.Equal(rest, []byte{0xAA, 0xBB}) {
		t.Fatalf("ReadBytes = %x, %v", rest, err)
	}
}

func TestWriter_SkipAndBackfill(t *testing.T) {
	buf := make([]byte, 16)
	w := NewWriter(buf)

	w.WriteUint8(0x10)
	sizeAt := w.Skip(2)
	w.WriteUint32(0xDEADBEEF)

	// Backfill the reserved size field once the body length is known.
	w.PutUint16At(sizeAt, uint16(w.Len()-3))

	want := []byte{0x10, 0x04, 0x00, 0xEF, 0xBE, 0xAD, 0xDE}
	if !bytes.Equal(buf[:w.Len()], want) {
		t.Fatalf("wrote %x, want %x", buf[:w.Len()], want)
	}
}
