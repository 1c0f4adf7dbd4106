package worldserver

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/azerothgo/azerothgo/internal/wire"
)

// standardAddonCRC is the public key CRC carried by Blizzard-signed addons.
const standardAddonCRC uint32 = 0x4C1C776D

// maxAddonInfoSize bounds the decompressed addon block.
const maxAddonInfoSize = 0xFFFFF

// AddonInfo is one addon entry from the CMSG_AUTH_SESSION trailer.
type AddonInfo struct {
	Name    string
	Enabled bool
	CRC     uint32
}

// ParseAddonInfo decodes the trailing addon block of CMSG_AUTH_SESSION:
// a u32 decompressed size followed by a zlib stream holding a u32 count,
// the addon entries and a trailing timestamp.
func ParseAddonInfo(data []byte) ([]AddonInfo, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("addon block truncated")
	}
	decompressedSize := binary.LittleEndian.Uint32(data[:4])
	if decompressedSize == 0 {
		return nil, nil
	}
	if decompressedSize > maxAddonInfoSize {
		return nil, fmt.Errorf("addon block claims %d bytes", decompressedSize)
	}

	zr, err := zlib.NewReader(bytes.NewReader(data[4:]))
	if err != nil {
		return nil, fmt.Errorf("opening addon stream: %w", err)
	}
	defer zr.Close()

	decompressed := make([]byte, decompressedSize)
	if _, err := io.ReadFull(zr, decompressed); err != nil {
		return nil, fmt.Errorf("decompressing addon block: %w", err)
	}

	r := wire.NewReader(decompressed)
	count, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("reading addon count: %w", err)
	}

	addons := make([]AddonInfo, 0, count)
	for range count {
		name, err := r.ReadCString()
		if err != nil {
			return nil, fmt.Errorf("reading addon name: %w", err)
		}
		enabled, err := r.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("reading addon enabled flag: %w", err)
		}
		crc, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("reading addon CRC: %w", err)
		}
		if _, err := r.ReadUint32(); err != nil { // unknown, always zero
			return nil, fmt.Errorf("reading addon trailer: %w", err)
		}
		addons = append(addons, AddonInfo{
			Name:    name,
			Enabled: enabled != 0,
			CRC:     crc,
		})
	}
	// Trailing timestamp; tolerate its absence from older packers.
	if r.Remaining() >= 4 {
		r.ReadUint32()
	}
	return addons, nil
}

// logAddons reports unsigned addons. The check is informational; custom
// addons are expected on private realms.
func logAddons(account string, addons []AddonInfo) {
	for _, addon := range addons {
		if addon.CRC != standardAddonCRC {
			slog.Debug("unsigned addon", "account", account,
				"addon", addon.Name, "crc", fmt.Sprintf("0x%08X", addon.CRC))
		}
	}
}
