package realmlist

// Tier classifies a client build relative to the first expansion, which is
// where the handshake payload shapes diverge.
type Tier int

const (
	// TierUnsupported marks builds the server does not speak.
	TierUnsupported Tier = iota
	// TierClassic covers pre-expansion clients (vanilla payload shapes).
	TierClassic
	// TierExpansion covers Burning Crusade and later clients.
	TierExpansion
)

// BuildInfo describes one accepted client build. Version proof hashes are
// SHA-1 digests of the client binary; builds with no recorded hash pass the
// version check only when strict checking is disabled.
type BuildInfo struct {
	Build         uint32
	MajorVersion  uint8
	MinorVersion  uint8
	BugfixVersion uint8
	HotfixLetter  byte
	WindowsHash   []byte
	MacHash       []byte
}

var acceptedBuilds = map[uint32]BuildInfo{
	5875: {Build: 5875, MajorVersion: 1, MinorVersion: 12, BugfixVersion: 1},
	6005: {Build: 6005, MajorVersion: 1, MinorVersion: 12, BugfixVersion: 2},
	6141: {Build: 6141, MajorVersion: 1, MinorVersion: 12, BugfixVersion: 3},
	8606: {Build: 8606, MajorVersion: 2, MinorVersion: 4, BugfixVersion: 3},
	12340: {
		Build: 12340, MajorVersion: 3, MinorVersion: 3, BugfixVersion: 5, HotfixLetter: 'a',
		WindowsHash: []byte{
			0xCD, 0xCB, 0xBD, 0x51, 0x88, 0x31, 0x5E, 0x6B, 0x4D, 0x19,
			0x44, 0x9D, 0x49, 0x2D, 0xBC, 0xFA, 0xF1, 0x56, 0xA3, 0x47,
		},
		MacHash: []byte{
			0xB7, 0x06, 0xD1, 0x3F, 0xF2, 0xF4, 0x01, 0x88, 0x39, 0x72,
			0x94, 0x61, 0xE3, 0xF8, 0xA0, 0xE2, 0xB5, 0xFD, 0xC0, 0x34,
		},
	},
}

// GetBuildInfo returns the registry entry for a build, or nil when unknown.
func GetBuildInfo(build uint32) *BuildInfo {
	if info, ok := acceptedBuilds[build]; ok {
		return &info
	}
	return nil
}

// BuildTier classifies a client build.
func BuildTier(build uint32) Tier {
	info := GetBuildInfo(build)
	if info == nil {
		return TierUnsupported
	}
	if info.MajorVersion < 2 {
		return TierClassic
	}
	return TierExpansion
}

// VersionHash returns the expected binary hash for a build on the platform
// reported by the client ("Win" or "OSX"), or nil when none is recorded.
func (b *BuildInfo) VersionHash(platformOS string) []byte {
	switch platformOS {
	case "Win":
		return b.WindowsHash
	case "OSX":
		return b.MacHash
	default:
		return nil
	}
}
