package worldserver

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/azerothgo/azerothgo/internal/crypto"
)

// oneByteReader delivers one byte per Read to exercise reassembly across
// short reads.
type oneByteReader struct {
	r io.Reader
}

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return o.r.Read(p)
}

func clientPacketBytes(opcode uint32, payload []byte) []byte {
	buf := make([]byte, clientHeaderSize+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(payload)+4))
	binary.LittleEndian.PutUint32(buf[2:6], opcode)
	copy(buf[clientHeaderSize:], payload)
	return buf
}

func TestReadClientPacket_Plaintext(t *testing.T) {
	var crypt crypto.SessionCrypt
	payload := []byte{0x01, 0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00}
	raw := clientPacketBytes(OpcodeCMsgPing, payload)

	opcode, got, err := ReadClientPacket(bytes.NewReader(raw), &crypt)
	if err != nil {
		t.Fatal(err)
	}
	if opcode != OpcodeCMsgPing {
		t.Fatalf("opcode = %#x, want %#x", opcode, OpcodeCMsgPing)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %x, want %x", got, payload)
	}
}

func TestReadClientPacket_ReassemblesShortReads(t *testing.T) {
	var crypt crypto.SessionCrypt
	payload := bytes.Repeat([]byte{0x5A}, 300)
	raw := clientPacketBytes(OpcodeCMsgAuthSession, payload)

	opcode, got, err := ReadClientPacket(oneByteReader{bytes.NewReader(raw)}, &crypt)
	if err != nil {
		t.Fatal(err)
	}
	if opcode != OpcodeCMsgAuthSession {
		t.Fatalf("opcode = %#x", opcode)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload corrupted across short reads")
	}
}

func TestReadClientPacket_EmptyPayload(t *testing.T) {
	var crypt crypto.SessionCrypt
	raw := clientPacketBytes(OpcodeCMsgKeepAlive, nil)

	opcode, payload, err := ReadClientPacket(bytes.NewReader(raw), &crypt)
	if err != nil {
		t.Fatal(err)
	}
	if opcode != OpcodeCMsgKeepAlive || len(payload) != 0 {
		t.Fatalf("opcode = %#x, payload = %x", opcode, payload)
	}
}

func TestReadClientPacket_RejectsBadHeaders(t *testing.T) {
	var crypt crypto.SessionCrypt

	// Size below the 4-byte opcode width.
	raw := clientPacketBytes(OpcodeCMsgPing, nil)
	binary.BigEndian.PutUint16(raw[0:2], 3)
	if _, _, err := ReadClientPacket(bytes.NewReader(raw), &crypt); err == nil {
		t.Fatal("undersized header must be rejected")
	}

	// Size field over the limit; the cap covers opcode plus payload, so
	// one byte past it must already fail.
	raw = clientPacketBytes(OpcodeCMsgPing, nil)
	binary.BigEndian.PutUint16(raw[0:2], uint16(maxClientPacketSize+1))
	if _, _, err := ReadClientPacket(bytes.NewReader(raw), &crypt); err == nil {
		t.Fatal("oversized packet must be rejected")
	}

	// Exactly at the cap the header itself is valid.
	body := make([]byte, maxClientPacketSize-4)
	raw = clientPacketBytes(OpcodeCMsgPing, body)
	if _, _, err := ReadClientPacket(bytes.NewReader(raw), &crypt); err != nil {
		t.Fatalf("packet at the size cap rejected: %v", err)
	}

	// Opcode outside the message table.
	raw = clientPacketBytes(numMsgTypes, nil)
	if _, _, err := ReadClientPacket(bytes.NewReader(raw), &crypt); err == nil {
		t.Fatal("out-of-range opcode must be rejected")
	}
}

func TestBuildServerHeader_SmallPacket(t *testing.T) {
	header, err := buildServerHeader(OpcodeSMsgPong, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(header) != 4 {
		t.Fatalf("header is %d bytes, want 4", len(header))
	}
	if size := binary.BigEndian.Uint16(header[0:2]); size != 6 {
		t.Fatalf("size field = %d, want 6", size)
	}
	if opcode := binary.LittleEndian.Uint16(header[2:4]); uint32(opcode) != OpcodeSMsgPong {
		t.Fatalf("opcode field = %#x", opcode)
	}
}

func TestBuildServerHeader_LargeFlagThreshold(t *testing.T) {
	// size = payload + 2; the 2-byte form carries up to 0x7FFF.
	header, err := buildServerHeader(OpcodeSMsgAuthResponse, largeSizeThreshold-2)
	if err != nil {
		t.Fatal(err)
	}
	if len(header) != 4 {
		t.Fatalf("size at threshold must use the 4-byte header, got %d", len(header))
	}

	header, err = buildServerHeader(OpcodeSMsgAuthResponse, largeSizeThreshold-1)
	if err != nil {
		t.Fatal(err)
	}
	if len(header) != 5 {
		t.Fatalf("size past threshold must use the 5-byte header, got %d", len(header))
	}
	if header[0]&0x80 == 0 {
		t.Fatal("large header must set the high bit")
	}
	size := int(header[0]&0x7F)<<16 | int(header[1])<<8 | int(header[2])
	if size != largeSizeThreshold+1 {
		t.Fatalf("large size field = %d, want %d", size, largeSizeThreshold+1)
	}
	if opcode := binary.LittleEndian.Uint16(header[3:5]); uint32(opcode) != OpcodeSMsgAuthResponse {
		t.Fatalf("opcode field = %#x", opcode)
	}
}

func TestPacketWriter_BatchesSmallPackets(t *testing.T) {
	var out bytes.Buffer
	var crypt crypto.SessionCrypt
	pw := NewPacketWriter(&out, &crypt, 1024)

	if err := pw.QueuePacket(OpcodeSMsgPong, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := pw.QueuePacket(OpcodeSMsgAuthResponse, []byte{5}); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatal("small packets must not be written before Flush")
	}

	if err := pw.Flush(); err != nil {
		t.Fatal(err)
	}
	// 4+4 bytes for the first packet, 4+1 for the second.
	if out.Len() != 13 {
		t.Fatalf("flushed %d bytes, want 13", out.Len())
	}
}

func TestPacketWriter_OversizedPacketWritesThrough(t *testing.T) {
	var out bytes.Buffer
	var crypt crypto.SessionCrypt
	pw := NewPacketWriter(&out, &crypt, 64)

	if err := pw.QueuePacket(OpcodeSMsgPong, []byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	big := bytes.Repeat([]byte{0xFF}, 256)
	if err := pw.QueuePacket(OpcodeSMsgAuthResponse, big); err != nil {
		t.Fatal(err)
	}

	// The oversized packet must flush the batch first and then go out
	// directly, preserving order.
	if out.Len() != 6+4+256 {
		t.Fatalf("wrote %d bytes, want %d", out.Len(), 6+4+256)
	}
	if binary.BigEndian.Uint16(out.Bytes()[0:2]) != 4 {
		t.Fatal("batched packet must precede the oversized one")
	}
}

func TestPacketWriter_EncryptsHeaderOnly(t *testing.T) {
	var out bytes.Buffer
	var crypt crypto.SessionCrypt
	key := make([]byte, crypto.SessionKeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	if err := crypt.Init(key); err != nil {
		t.Fatal(err)
	}

	pw := NewPacketWriter(&out, &crypt, 1024)
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := pw.QueuePacket(OpcodeSMsgAuthResponse, payload); err != nil {
		t.Fatal(err)
	}
	if err := pw.Flush(); err != nil {
		t.Fatal(err)
	}

	wire := out.Bytes()
	plain, err := buildServerHeader(OpcodeSMsgAuthResponse, len(payload))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(wire[:4], plain) {
		t.Fatal("header must be encrypted once the cipher is up")
	}
	if !bytes.Equal(wire[4:], payload) {
		t.Fatal("payload must never pass through the cipher")
	}
}
