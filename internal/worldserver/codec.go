package worldserver

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/azerothgo/azerothgo/internal/crypto"
)

const (
	clientHeaderSize = 6
	// largeSizeThreshold is the largest opcode+payload size a 2-byte
	// server size field can carry. Bigger packets use the 3-byte form
	// with the high bit of the first byte set.
	largeSizeThreshold = 0x7FFF
)

// ReadClientPacket reads one framed client packet. The 6-byte header
// (u16 big-endian size covering the 4-byte opcode plus payload, then u32
// little-endian opcode) is decrypted exactly once; io.ReadFull absorbs
// partial TCP reads, so header bytes never pass through the cipher twice.
// Any header validity failure is fatal to the connection.
func ReadClientPacket(r io.Reader, crypt *crypto.SessionCrypt) (uint32, []byte, error) {
	var header [clientHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	crypt.DecryptRecv(header[:])

	size := binary.BigEndian.Uint16(header[0:2])
	opcode := binary.LittleEndian.Uint32(header[2:6])

	if size < 4 {
		return 0, nil, fmt.Errorf("client header size %d below opcode width", size)
	}
	if int(size) > maxClientPacketSize {
		return 0, nil, fmt.Errorf("client header size %d exceeds limit", size)
	}
	payloadSize := int(size) - 4
	if opcode >= numMsgTypes {
		return 0, nil, fmt.Errorf("client opcode 0x%X out of range", opcode)
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return opcode, payload, nil
}

// PacketWriter frames, encrypts and batches server packets. Small packets
// accumulate in the send buffer and go out in one write on Flush;
// a packet too big for the remaining buffer forces a flush first, and one
// bigger than the whole buffer is written directly.
//
// Not safe for concurrent use; the owning connection goroutine serializes
// all sends.
type PacketWriter struct {
	w     io.Writer
	crypt *crypto.SessionCrypt
	buf   []byte
}

// NewPacketWriter creates a writer batching into a buffer of the given
// capacity.
func NewPacketWriter(w io.Writer, crypt *crypto.SessionCrypt, bufSize int) *PacketWriter {
	return &PacketWriter{
		w:     w,
		crypt: crypt,
		buf:   make([]byte, 0, bufSize),
	}
}

// QueuePacket frames one server packet and queues it for sending. Only the
// header is encrypted; the payload goes out as-is.
func (pw *PacketWriter) QueuePacket(opcode uint32, payload []byte) error {
	header, err := buildServerHeader(opcode, len(payload))
	if err != nil {
		return err
	}
	pw.crypt.EncryptSend(header)

	packetSize := len(header) + len(payload)
	if packetSize > cap(pw.buf) {
		if err := pw.Flush(); err != nil {
			return err
		}
		if _, err := pw.w.Write(header); err != nil {
			return fmt.Errorf("writing oversized packet header: %w", err)
		}
		if _, err := pw.w.Write(payload); err != nil {
			return fmt.Errorf("writing oversized packet payload: %w", err)
		}
		return nil
	}

	if len(pw.buf)+packetSize > cap(pw.buf) {
		if err := pw.Flush(); err != nil {
			return err
		}
	}
	pw.buf = append(pw.buf, header...)
	pw.buf = append(pw.buf, payload...)
	return nil
}

// Flush writes out everything queued so far.
func (pw *PacketWriter) Flush() error {
	if len(pw.buf) == 0 {
		return nil
	}
	if _, err := pw.w.Write(pw.buf); err != nil {
		pw.buf = pw.buf[:0]
		return fmt.Errorf("flushing send buffer: %w", err)
	}
	pw.buf = pw.buf[:0]
	return nil
}

// buildServerHeader produces the 4-byte server header, or the 5-byte form
// with the large flag when opcode plus payload exceed 0x7FFF bytes. The
// size field is big-endian and counts the 2-byte opcode plus the payload;
// the opcode is little-endian.
func buildServerHeader(opcode uint32, payloadLen int) ([]byte, error) {
	size := payloadLen + 2
	if opcode > 0xFFFF {
		return nil, fmt.Errorf("server opcode 0x%X exceeds 16 bits", opcode)
	}

	if size > largeSizeThreshold {
		header := make([]byte, 5)
		header[0] = byte(size>>16) | 0x80
		header[1] = byte(size >> 8)
		header[2] = byte(size)
		binary.LittleEndian.PutUint16(header[3:5], uint16(opcode))
		return header, nil
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], uint16(size))
	binary.LittleEndian.PutUint16(header[2:4], uint16(opcode))
	return header, nil
}
