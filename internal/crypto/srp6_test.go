package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"math/big"
	"strings"
	"testing"
)

// srpClient simulates the client side of the handshake: it derives x from
// the plaintext credentials, picks a random private ephemeral and computes
// the shared secret and proof the real client would send.
type srpClient struct {
	username string
	password string
	a        *big.Int
	A        *big.Int
}

func newSRPClient(t *testing.T, username, password string) *srpClient {
	t.Helper()
	raw := make([]byte, privateEphemeralSize)
	if _, err := rand.Read(raw); err != nil {
		t.Fatal(err)
	}
	a := new(big.Int).SetBytes(raw)
	return &srpClient{
		username: strings.ToUpper(username),
		password: strings.ToUpper(password),
		a:        a,
		A:        new(big.Int).Exp(srpG, a, srpN),
	}
}

func (c *srpClient) publicEphemeral() []byte {
	return toLittleEndian(c.A, EphemeralKeySize)
}

// sessionKeyAndProof runs the client-side key derivation against the
// server's salt and public ephemeral B.
func (c *srpClient) sessionKeyAndProof(salt, serverB []byte) (key, proof []byte) {
	identity := sha1.Sum([]byte(c.username + ":" + c.password))
	xh := sha1.New()
	xh.Write(salt)
	xh.Write(identity[:])
	x := fromLittleEndian(xh.Sum(nil))

	uh := sha1.New()
	uh.Write(c.publicEphemeral())
	uh.Write(serverB)
	u := fromLittleEndian(uh.Sum(nil))

	B := fromLittleEndian(serverB)

	// S = (B - k*g^x) ^ (a + u*x) mod N
	gx := new(big.Int).Exp(srpG, x, srpN)
	kgx := new(big.Int).Mul(srpK, gx)
	base := new(big.Int).Sub(B, kgx)
	base.Mod(base, srpN)
	if base.Sign() < 0 {
		base.Add(base, srpN)
	}
	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, c.a)
	S := new(big.Int).Exp(base, exp, srpN)

	key = InterleaveSessionKey(toLittleEndian(S, EphemeralKeySize))

	hashN := sha1.Sum(toLittleEndian(srpN, EphemeralKeySize))
	hashG := sha1.Sum(toLittleEndian(srpG, 1))
	for i := range hashN {
		hashN[i] ^= hashG[i]
	}
	userHash := sha1.Sum([]byte(c.username))

	mh := sha1.New()
	mh.Write(hashN[:])
	mh.Write(userHash[:])
	mh.Write(salt)
	mh.Write(c.publicEphemeral())
	mh.Write(serverB)
	mh.Write(key)
	proof = mh.Sum(nil)
	return key, proof
}

func randomSalt(t *testing.T) []byte {
	t.Helper()
	salt := make([]byte, EphemeralKeySize)
	if _, err := rand.Read(salt); err != nil {
		t.Fatal(err)
	}
	return salt
}

func TestSRP6_FullHandshake(t *testing.T) {
	salt := randomSalt(t)
	verifier := CalculateVerifier("alice", "wonderland", salt)

	server, err := NewSRP6("alice", salt, verifier)
	if err != nil {
		t.Fatal(err)
	}

	client := newSRPClient(t, "alice", "wonderland")
	clientKey, clientProof := client.sessionKeyAndProof(server.Salt(), server.PublicEphemeral())

	serverKey, ok := server.VerifyChallengeResponse(client.publicEphemeral(), clientProof)
	if !ok {
		t.Fatal("server rejected a valid client proof")
	}
	if len(serverKey) != SessionKeySize {
		t.Fatalf("session key is %d bytes, want %d", len(serverKey), SessionKeySize)
	}
	if !bytes.Equal(serverKey, clientKey) {
		t.Fatalf("session keys diverged:\nserver %x\nclient %x", serverKey, clientKey)
	}

	// M2 binds A, M1 and K; the client recomputes it the same way.
	m2 := server.ComputeServerProof(client.publicEphemeral(), clientProof, serverKey)
	h := sha1.New()
	h.Write(client.publicEphemeral())
	h.Write(clientProof)
	h.Write(clientKey)
	if !bytes.Equal(m2, h.Sum(nil)) {
		t.Fatal("server proof M2 does not match client-side recomputation")
	}
}

func TestSRP6_WrongPasswordRejected(t *testing.T) {
	salt := randomSalt(t)
	verifier := CalculateVerifier("bob", "rightpass", salt)

	server, err := NewSRP6("bob", salt, verifier)
	if err != nil {
		t.Fatal(err)
	}

	client := newSRPClient(t, "bob", "wrongpass")
	_, proof := client.sessionKeyAndProof(server.Salt(), server.PublicEphemeral())

	if _, ok := server.VerifyChallengeResponse(client.publicEphemeral(), proof); ok {
		t.Fatal("server accepted a proof derived from the wrong password")
	}
}

func TestSRP6_DegenerateEphemeralRejected(t *testing.T) {
	salt := randomSalt(t)
	verifier := CalculateVerifier("carol", "pass", salt)

	server, err := NewSRP6("carol", salt, verifier)
	if err != nil {
		t.Fatal(err)
	}

	zeroA := make([]byte, EphemeralKeySize)
	proof := make([]byte, ProofSize)
	if _, ok := server.VerifyChallengeResponse(zeroA, proof); ok {
		t.Fatal("A = 0 must be rejected")
	}

	// A ≡ 0 mod N is equally degenerate.
	modA := toLittleEndian(srpN, EphemeralKeySize)
	if _, ok := server.VerifyChallengeResponse(modA, proof); ok {
		t.Fatal("A ≡ 0 mod N must be rejected")
	}

	if _, ok := server.VerifyChallengeResponse(zeroA[:16], proof); ok {
		t.Fatal("short A must be rejected")
	}
}

func TestSRP6_EphemeralIsFreshPerAttempt(t *testing.T) {
	salt := randomSalt(t)
	verifier := CalculateVerifier("dave", "pass", salt)

	first, err := NewSRP6("dave", salt, verifier)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewSRP6("dave", salt, verifier)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(first.PublicEphemeral(), second.PublicEphemeral()) {
		t.Fatal("two attempts produced the same public ephemeral")
	}
}

func TestInterleaveSessionKey_SkipsLeadingZeroPairs(t *testing.T) {
	s := make([]byte, EphemeralKeySize)
	for i := 4; i < len(s); i++ {
		s[i] = byte(i)
	}

	withZeros := InterleaveSessionKey(s)
	trimmed := InterleaveSessionKey(s[4:])

	if !bytes.Equal(withZeros, trimmed) {
		t.Fatal("leading zero pairs must not affect the derived key")
	}
}

func TestInterleaveSessionKey_OddLeadingZerosRoundUp(t *testing.T) {
	for _, zeros := range []int{1, 3} {
		s := make([]byte, EphemeralKeySize)
		for i := zeros; i < len(s); i++ {
			s[i] = byte(0x80 + i)
		}

		// The skip runs to the first nonzero byte and rounds up to the
		// next even offset, so the derivation must match trimming one
		// extra byte past the zeros.
		got := InterleaveSessionKey(s)
		want := InterleaveSessionKey(s[zeros+1:])
		if !bytes.Equal(got, want) {
			t.Fatalf("%d leading zeros: key not derived from even-aligned remainder", zeros)
		}
		if bytes.Equal(got, InterleaveSessionKey(s[zeros:])) {
			t.Fatalf("%d leading zeros: skip must not stop at an odd offset", zeros)
		}
	}
}

func TestCalculateVerifier_CaseInsensitive(t *testing.T) {
	salt := randomSalt(t)
	a := CalculateVerifier("Alice", "Secret", salt)
	b := CalculateVerifier("ALICE", "SECRET", salt)
	if !bytes.Equal(a, b) {
		t.Fatal("verifier derivation must fold credentials to upper case")
	}
}
