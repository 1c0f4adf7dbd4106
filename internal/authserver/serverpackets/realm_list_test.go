package serverpackets

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/azerothgo/azerothgo/internal/model"
	"github.com/azerothgo/azerothgo/internal/realmlist"
)

func testEntries() []RealmEntry {
	return []RealmEntry{{
		Realm: model.Realm{
			ID:      1,
			Name:    "Stormwind",
			Address: "127.0.0.1",
			Port:    8085,
			Icon:    1,
		},
		NumChars: 2,
	}}
}

func TestRealmList_ExpansionShape(t *testing.T) {
	buf := make([]byte, 512)
	n := RealmList(buf, testEntries(), realmlist.TierExpansion)
	out := buf[:n]

	if out[0] != RealmListOpcode {
		t.Fatalf("opcode = %#x", out[0])
	}
	if size := binary.LittleEndian.Uint16(out[1:3]); int(size) != n-3 {
		t.Fatalf("size field = %d, want %d", size, n-3)
	}
	// u32 0, then a 16-bit realm count.
	if count := binary.LittleEndian.Uint16(out[7:9]); count != 1 {
		t.Fatalf("count = %d", count)
	}
	if !bytes.HasSuffix(out, []byte{0x10, 0x00}) {
		t.Fatalf("expansion trailer = %x", out[n-2:])
	}
}

func TestRealmList_ClassicShape(t *testing.T) {
	buf := make([]byte, 512)
	n := RealmList(buf, testEntries(), realmlist.TierClassic)
	out := buf[:n]

	// Classic carries an 8-bit realm count and no per-realm lock byte.
	if out[7] != 1 {
		t.Fatalf("count = %d", out[7])
	}
	if !bytes.HasSuffix(out, []byte{0x00, 0x02}) {
		t.Fatalf("classic trailer = %x", out[n-2:])
	}

	expansion := RealmList(make([]byte, 512), testEntries(), realmlist.TierExpansion)
	if expansion != n+2 { // lock byte + wider count
		t.Fatalf("expansion payload = %d bytes, classic = %d", expansion, n)
	}
}

func TestRealmList_SpecifyBuildBlock(t *testing.T) {
	entries := testEntries()
	entries[0].BuildInfo = realmlist.GetBuildInfo(12340)

	withBuf := make([]byte, 512)
	with := RealmList(withBuf, entries, realmlist.TierExpansion)

	entries[0].BuildInfo = nil
	without := RealmList(make([]byte, 512), entries, realmlist.TierExpansion)

	if with != without+5 {
		t.Fatalf("build block must add 5 bytes: %d vs %d", with, without)
	}
	out := withBuf[:with]
	// The version triplet and build precede the trailer.
	tail := out[with-7 : with-2]
	if tail[0] != 3 || tail[1] != 3 || tail[2] != 5 {
		t.Fatalf("version triplet = %v", tail[:3])
	}
	if build := binary.LittleEndian.Uint16(tail[3:5]); build != 12340 {
		t.Fatalf("build = %d", build)
	}
}
