package crypto

import (
	"bytes"
	"testing"
)

func TestARC4_EmptyKeyRejected(t *testing.T) {
	if _, err := NewARC4(nil); err == nil {
		t.Fatal("NewARC4 must reject an empty key")
	}
	if _, err := NewARC4Drop([]byte{}); err == nil {
		t.Fatal("NewARC4Drop must reject an empty key")
	}
}

func TestARC4_KeystreamDeterministic(t *testing.T) {
	key := []byte{0x01, 0x02, 0x03, 0x04, 0x05}

	a, err := NewARC4(key)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewARC4(key)
	if err != nil {
		t.Fatal(err)
	}

	for i := range 256 {
		if ga, gb := a.Generate(), b.Generate(); ga != gb {
			t.Fatalf("keystream diverged at byte %d: %02x vs %02x", i, ga, gb)
		}
	}
}

func TestARC4_ApplyTwiceRestores(t *testing.T) {
	key := []byte("session")
	original := []byte("the quick brown fox jumps over the lazy dog")

	enc, err := NewARC4(key)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewARC4(key)
	if err != nil {
		t.Fatal(err)
	}

	data := make([]byte, len(original))
	copy(data, original)

	enc.Apply(data, 0, len(data))
	if bytes.Equal(data, original) {
		t.Fatal("encrypted data must differ from original")
	}

	dec.Apply(data, 0, len(data))
	if !bytes.Equal(data, original) {
		t.Fatalf("round-trip failed: got %x, want %x", data, original)
	}
}

func TestARC4_DropSkipsExactly1024(t *testing.T) {
	key := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	plain, err := NewARC4(key)
	if err != nil {
		t.Fatal(err)
	}
	for range dropBytes {
		plain.Generate()
	}

	dropped, err := NewARC4Drop(key)
	if err != nil {
		t.Fatal(err)
	}

	for i := range 64 {
		if gp, gd := plain.Generate(), dropped.Generate(); gp != gd {
			t.Fatalf("drop variant misaligned at byte %d: %02x vs %02x", i, gp, gd)
		}
	}
}

func TestARC4_PartialApplyContinuesStream(t *testing.T) {
	key := []byte("streaming")

	whole, err := NewARC4(key)
	if err != nil {
		t.Fatal(err)
	}
	split, err := NewARC4(key)
	if err != nil {
		t.Fatal(err)
	}

	a := make([]byte, 32)
	b := make([]byte, 32)

	whole.Apply(a, 0, 32)
	split.Apply(b, 0, 10)
	split.Apply(b, 10, 22)

	if !bytes.Equal(a, b) {
		t.Fatalf("split Apply must continue the keystream: %x vs %x", a, b)
	}
}

func TestARC4_WipeClearsState(t *testing.T) {
	c, err := NewARC4([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	c.Generate()
	c.Wipe()

	for i, v := range c.state {
		if v != 0 {
			t.Fatalf("state[%d] = %02x after Wipe, want 0", i, v)
		}
	}
	if c.x != 0 || c.y != 0 {
		t.Fatalf("indices not cleared: x=%d y=%d", c.x, c.y)
	}
}
