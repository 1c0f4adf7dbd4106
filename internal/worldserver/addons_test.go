package worldserver

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildAddonBlock(t *testing.T, addons []AddonInfo) []byte {
	t.Helper()

	var plain []byte
	plain = binary.LittleEndian.AppendUint32(plain, uint32(len(addons)))
	for _, a := range addons {
		plain = append(plain, a.Name...)
		plain = append(plain, 0)
		if a.Enabled {
			plain = append(plain, 1)
		} else {
			plain = append(plain, 0)
		}
		plain = binary.LittleEndian.AppendUint32(plain, a.CRC)
		plain = binary.LittleEndian.AppendUint32(plain, 0)
	}
	plain = binary.LittleEndian.AppendUint32(plain, 1700000000) // timestamp

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	out := binary.LittleEndian.AppendUint32(nil, uint32(len(plain)))
	return append(out, compressed.Bytes()...)
}

func TestParseAddonInfo(t *testing.T) {
	want := []AddonInfo{
		{Name: "Blizzard_AuctionUI", Enabled: true, CRC: standardAddonCRC},
		{Name: "CustomUnitFrames", Enabled: false, CRC: 0x12345678},
	}

	got, err := ParseAddonInfo(buildAddonBlock(t, want))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestParseAddonInfo_EmptyBlock(t *testing.T) {
	got, err := ParseAddonInfo(nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestParseAddonInfo_GarbageRejected(t *testing.T) {
	blob := binary.LittleEndian.AppendUint32(nil, 128)
	blob = append(blob, 0xDE, 0xAD, 0xBE, 0xEF)
	if _, err := ParseAddonInfo(blob); err == nil {
		t.Fatal("garbage addon block must error")
	}
}

func TestParseAddonInfo_OversizedClaimRejected(t *testing.T) {
	blob := binary.LittleEndian.AppendUint32(nil, maxAddonInfoSize+1)
	blob = append(blob, 0x78, 0x9C)
	if _, err := ParseAddonInfo(blob); err == nil {
		t.Fatal("oversized decompression claim must error")
	}
}
