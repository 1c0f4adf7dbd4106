package serverpackets

import (
	"github.com/azerothgo/azerothgo/internal/realmlist"
	"github.com/azerothgo/azerothgo/internal/wire"
)

const LogonProofOpcode = 0x01

// accountFlagPropass is the account-flags value expansion clients expect in
// a successful proof response.
const accountFlagPropass = 0x00800000

// LogonProofSuccess writes the successful proof response carrying the
// server proof M2. The payload shape depends on the client tier.
// Returns the number of bytes written.
func LogonProofSuccess(buf []byte, serverProof []byte, tier realmlist.Tier) int {
	w := wire.NewWriter(buf)
	w.WriteUint8(LogonProofOpcode)
	w.WriteUint8(0x00)
	w.WriteBytes(serverProof)

	if tier == realmlist.TierExpansion {
		w.WriteUint32(accountFlagPropass)
		w.WriteUint32(0) // survey id
		w.WriteUint16(0) // login flags
	} else {
		w.WriteUint32(0)
	}
	return w.Len()
}

// LogonProofFail writes a failed proof response carrying result. Expansion
// clients expect two trailing bytes after the code. Returns the number of
// bytes written.
func LogonProofFail(buf []byte, result uint8, tier realmlist.Tier) int {
	w := wire.NewWriter(buf)
	w.WriteUint8(LogonProofOpcode)
	w.WriteUint8(result)
	if tier == realmlist.TierExpansion {
		w.WriteUint8(3)
		w.WriteUint8(0)
	}
	return w.Len()
}
