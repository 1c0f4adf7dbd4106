// Package serverpackets builds auth server → client payloads. Builders
// write into a caller-provided buffer and return the number of bytes
// written; the auth protocol has no framing layer, so the buffer is sent
// verbatim.
package serverpackets

import (
	"github.com/azerothgo/azerothgo/internal/crypto"
	"github.com/azerothgo/azerothgo/internal/wire"
)

const LogonChallengeOpcode = 0x00

// VersionChallenge is the fixed 16-byte constant the client echoes into its
// version proof.
var VersionChallenge = [16]byte{
	0xBA, 0xA3, 0x1E, 0x99, 0xA0, 0x0B, 0x21, 0x57,
	0xFC, 0x37, 0x3F, 0xB3, 0x69, 0xCD, 0xD2, 0xF1,
}

// Security flag bits understood by the challenge response.
const (
	SecurityFlagPIN    uint8 = 0x01
	SecurityFlagMatrix uint8 = 0x02
	SecurityFlagToken  uint8 = 0x04
)

// LogonChallengeFail writes a failed challenge response carrying result.
// Returns the number of bytes written.
func LogonChallengeFail(buf []byte, result uint8) int {
	w := wire.NewWriter(buf)
	w.WriteUint8(LogonChallengeOpcode)
	w.WriteUint8(0x00)
	w.WriteUint8(result)
	return w.Len()
}

// LogonChallengeOK writes the successful challenge response: SRP public
// ephemeral, group parameters, salt, version challenge and security flags.
// Conditional second-factor blocks follow the flags the same way the client
// parses them. Returns the number of bytes written.
func LogonChallengeOK(buf []byte, srp *crypto.SRP6, securityFlags uint8) int {
	w := wire.NewWriter(buf)
	w.WriteUint8(LogonChallengeOpcode)
	w.WriteUint8(0x00)
	w.WriteUint8(0x00) // success

	w.WriteBytes(srp.PublicEphemeral())
	w.WriteUint8(1)
	w.WriteUint8(crypto.Generator())
	w.WriteUint8(crypto.EphemeralKeySize)
	w.WriteBytes(crypto.Modulus())
	w.WriteBytes(srp.Salt())
	w.WriteBytes(VersionChallenge[:])
	w.WriteUint8(securityFlags)

	if securityFlags&SecurityFlagPIN != 0 {
		w.WriteUint32(0)
		w.WriteBytes(make([]byte, 16))
	}
	if securityFlags&SecurityFlagMatrix != 0 {
		w.WriteUint8(0)
		w.WriteUint8(0)
		w.WriteUint8(0)
		w.WriteUint8(0)
		w.WriteUint64(0)
	}
	if securityFlags&SecurityFlagToken != 0 {
		w.WriteUint8(1)
	}
	return w.Len()
}
