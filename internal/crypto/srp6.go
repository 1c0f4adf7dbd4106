package crypto

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
)

// SRP6 group parameters fixed by the legacy client: a 256-bit safe prime N,
// generator g = 7 and multiplier k = 3 (not the RFC 5054 derived value).
var (
	srpN, _ = new(big.Int).SetString(
		"894B645E89E1535BBDAD5B8B290650530801B18EBFBF5E8FAB3C82872A3E9BB7", 16)
	srpG = big.NewInt(7)
	srpK = big.NewInt(3)
)

const (
	// EphemeralKeySize is the wire size of A, B, N and the salt.
	EphemeralKeySize = 32
	// ProofSize is the size of the client and server SHA-1 proofs.
	ProofSize = sha1.Size

	privateEphemeralSize = 19
)

// SRP6 holds the server-side ephemeral state for one authentication attempt.
// Instances are created per logon challenge and must not be reused across
// attempts.
type SRP6 struct {
	username     string
	usernameHash [sha1.Size]byte
	salt         []byte
	verifier     *big.Int

	b *big.Int // server private ephemeral
	B *big.Int // server public ephemeral
}

// NewSRP6 builds per-attempt SRP state from the stored salt and verifier.
//
// The private ephemeral b is cryptographically random. The reference server
// pinned b to a small constant; the client never observes b, so the
// strengthened choice is wire compatible.
func NewSRP6(username string, salt, verifier []byte) (*SRP6, error) {
	if len(salt) != EphemeralKeySize {
		return nil, fmt.Errorf("srp6: salt must be %d bytes, got %d", EphemeralKeySize, len(salt))
	}
	if len(verifier) == 0 {
		return nil, fmt.Errorf("srp6: empty verifier")
	}

	raw := make([]byte, privateEphemeralSize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("srp6: generating private ephemeral: %w", err)
	}

	s := &SRP6{
		username: strings.ToUpper(username),
		salt:     append([]byte(nil), salt...),
		verifier: fromLittleEndian(verifier),
		b:        new(big.Int).SetBytes(raw),
	}
	s.usernameHash = sha1.Sum([]byte(s.username))

	// B = (k*v + g^b) mod N
	gb := new(big.Int).Exp(srpG, s.b, srpN)
	kv := new(big.Int).Mul(srpK, s.verifier)
	s.B = kv.Add(kv, gb).Mod(kv, srpN)
	return s, nil
}

// Generator returns g as its single wire byte.
func Generator() byte {
	return byte(srpG.Int64())
}

// Modulus returns N in little-endian wire order.
func Modulus() []byte {
	return toLittleEndian(srpN, EphemeralKeySize)
}

// PublicEphemeral returns B in little-endian wire order.
func (s *SRP6) PublicEphemeral() []byte {
	return toLittleEndian(s.B, EphemeralKeySize)
}

// Salt returns the account salt in little-endian wire order.
func (s *SRP6) Salt() []byte {
	return s.salt
}

// VerifyChallengeResponse checks the client proof M1 against the client
// public ephemeral A and, on success, returns the derived 40-byte session
// key. Degenerate A values and proof mismatches are indistinguishable to the
// caller so the failure path does not leak which check tripped.
func (s *SRP6) VerifyChallengeResponse(clientA, clientM1 []byte) ([]byte, bool) {
	if len(clientA) != EphemeralKeySize || len(clientM1) != ProofSize {
		return nil, false
	}

	A := fromLittleEndian(clientA)
	if new(big.Int).Mod(A, srpN).Sign() == 0 {
		return nil, false
	}

	// u = H(A || B)
	uh := sha1.New()
	uh.Write(clientA)
	uh.Write(s.PublicEphemeral())
	u := fromLittleEndian(uh.Sum(nil))

	// S = (A * v^u)^b mod N
	vu := new(big.Int).Exp(s.verifier, u, srpN)
	S := vu.Mul(vu, A).Mod(vu, srpN)
	S.Exp(S, s.b, srpN)

	sessionKey := InterleaveSessionKey(toLittleEndian(S, EphemeralKeySize))

	expected := s.computeClientProof(clientA, sessionKey)
	if subtle.ConstantTimeCompare(clientM1, expected) != 1 {
		return nil, false
	}
	return sessionKey, true
}

// ComputeServerProof returns M2 = H(A || M1 || K), sent to the client as
// confirmation. Only meaningful after VerifyChallengeResponse succeeded.
func (s *SRP6) ComputeServerProof(clientA, clientM1, sessionKey []byte) []byte {
	h := sha1.New()
	h.Write(clientA)
	h.Write(clientM1)
	h.Write(sessionKey)
	return h.Sum(nil)
}

// computeClientProof computes the expected
// M = H( H(N) xor H(g), H(I), salt, A, B, K ).
func (s *SRP6) computeClientProof(clientA, sessionKey []byte) []byte {
	hashN := sha1.Sum(toLittleEndian(srpN, EphemeralKeySize))
	hashG := sha1.Sum(toLittleEndian(srpG, 1))
	for i := range hashN {
		hashN[i] ^= hashG[i]
	}

	h := sha1.New()
	h.Write(hashN[:])
	h.Write(s.usernameHash[:])
	h.Write(s.salt)
	h.Write(clientA)
	h.Write(s.PublicEphemeral())
	h.Write(sessionKey)
	return h.Sum(nil)
}

// InterleaveSessionKey derives the 40-byte session key from the shared
// secret S given in little-endian wire order: leading zero bytes are skipped
// to an even boundary, the remainder is split into even- and odd-indexed
// halves, each half is SHA-1 hashed and the two digests are interleaved
// byte by byte. The exact shape is load-bearing for client compatibility.
func InterleaveSessionKey(sLE []byte) []byte {
	skip := 0
	for skip < len(sLE) && sLE[skip] == 0 {
		skip++
	}
	skip += skip & 1
	if skip > len(sLE) {
		skip = len(sLE)
	}
	t := sLE[skip:]

	half := len(t) / 2
	even := make([]byte, half)
	odd := make([]byte, half)
	for i := range half {
		even[i] = t[i*2]
		odd[i] = t[i*2+1]
	}

	evenHash := sha1.Sum(even)
	oddHash := sha1.Sum(odd)

	key := make([]byte, SessionKeySize)
	for i := range sha1.Size {
		key[i*2] = evenHash[i]
		key[i*2+1] = oddHash[i]
	}
	return key
}

// CalculateVerifier computes the SRP verifier for a plaintext credential
// pair using the legacy derivation x = H(salt || H(USER:PASS)),
// v = g^x mod N. Used by account provisioning and by tests simulating the
// client side.
func CalculateVerifier(username, password string, salt []byte) []byte {
	identity := sha1.Sum([]byte(strings.ToUpper(username) + ":" + strings.ToUpper(password)))

	xh := sha1.New()
	xh.Write(salt)
	xh.Write(identity[:])
	x := fromLittleEndian(xh.Sum(nil))

	v := new(big.Int).Exp(srpG, x, srpN)
	return toLittleEndian(v, EphemeralKeySize)
}

// fromLittleEndian interprets b as a little-endian unsigned integer.
func fromLittleEndian(b []byte) *big.Int {
	rev := make([]byte, len(b))
	for i, v := range b {
		rev[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(rev)
}

// toLittleEndian renders n as a little-endian byte slice of the given width.
// Values wider than width are truncated to the low-order bytes.
func toLittleEndian(n *big.Int, width int) []byte {
	be := n.Bytes()
	out := make([]byte, width)
	for i := range be {
		if i >= width {
			break
		}
		out[i] = be[len(be)-1-i]
	}
	return out
}
