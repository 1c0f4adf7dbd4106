package crypto

import (
	"encoding/base32"
	"testing"
	"time"
)

const totpTestSecret = "JBSWY3DPEHPK3PXP"

func totpTokenAt(t *testing.T, secret string, at time.Time) uint32 {
	t.Helper()
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return hotp(key, uint64(at.Unix()/30))
}

func TestValidateTOTP_CurrentStep(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token := totpTokenAt(t, totpTestSecret, now)

	ok, err := ValidateTOTP(totpTestSecret, token, now)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("token for the current step must validate")
	}
}

func TestValidateTOTP_AdjacentStepsAccepted(t *testing.T) {
	now := time.Unix(1700000000, 0)

	for _, drift := range []time.Duration{-30 * time.Second, 30 * time.Second} {
		token := totpTokenAt(t, totpTestSecret, now.Add(drift))
		ok, err := ValidateTOTP(totpTestSecret, token, now)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("token drifted by %v must still validate", drift)
		}
	}
}

func TestValidateTOTP_StaleTokenRejected(t *testing.T) {
	now := time.Unix(1700000000, 0)
	stale := totpTokenAt(t, totpTestSecret, now.Add(-2*30*time.Second))

	ok, err := ValidateTOTP(totpTestSecret, stale, now)
	if err != nil {
		t.Fatal(err)
	}
	// The stale token could collide with a live one, but not for this
	// fixed secret and timestamp.
	if ok {
		t.Fatal("token two steps old must be rejected")
	}
}

func TestValidateTOTP_BadSecret(t *testing.T) {
	if _, err := ValidateTOTP("not!base32", 123456, time.Now()); err == nil {
		t.Fatal("invalid base32 secret must error")
	}
}
