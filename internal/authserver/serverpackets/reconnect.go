package serverpackets

import "github.com/azerothgo/azerothgo/internal/wire"

const (
	ReconnectChallengeOpcode = 0x02
	ReconnectProofOpcode     = 0x03
)

// ReconnectChallenge writes the reconnect challenge: a fresh 16-byte proof
// nonce plus the fixed version challenge. Returns the number of bytes
// written.
func ReconnectChallenge(buf []byte, proofNonce [16]byte) int {
	w := wire.NewWriter(buf)
	w.WriteUint8(ReconnectChallengeOpcode)
	w.WriteUint8(0x00)
	w.WriteBytes(proofNonce[:])
	w.WriteBytes(VersionChallenge[:])
	return w.Len()
}

// ReconnectChallengeFail writes a failed reconnect challenge carrying
// result. Returns the number of bytes written.
func ReconnectChallengeFail(buf []byte, result uint8) int {
	w := wire.NewWriter(buf)
	w.WriteUint8(ReconnectChallengeOpcode)
	w.WriteUint8(result)
	return w.Len()
}

// ReconnectProofSuccess writes the acknowledgement that lets the client
// proceed to the realm list. Returns the number of bytes written.
func ReconnectProofSuccess(buf []byte) int {
	w := wire.NewWriter(buf)
	w.WriteUint8(ReconnectProofOpcode)
	w.WriteUint8(0x00)
	w.WriteUint16(0)
	return w.Len()
}

// ReconnectProofFail writes a rejected reconnect proof carrying result.
// Returns the number of bytes written.
func ReconnectProofFail(buf []byte, result uint8) int {
	w := wire.NewWriter(buf)
	w.WriteUint8(ReconnectProofOpcode)
	w.WriteUint8(result)
	return w.Len()
}
