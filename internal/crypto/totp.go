package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

const (
	totpStep   = 30 * time.Second
	totpDigits = 1000000
	// totpSkew allows one step of clock drift in either direction.
	totpSkew = 1
)

// ValidateTOTP checks a 6-digit time-based one-time token against a base32
// secret, accepting ±1 time step of drift.
func ValidateTOTP(secret string, token uint32, now time.Time) (bool, error) {
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).
		DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil {
		return false, fmt.Errorf("totp: decoding secret: %w", err)
	}

	step := now.Unix() / int64(totpStep/time.Second)
	for offset := int64(-totpSkew); offset <= totpSkew; offset++ {
		if hotp(key, uint64(step+offset)) == token {
			return true, nil
		}
	}
	return false, nil
}

func hotp(key []byte, counter uint64) uint32 {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	off := sum[len(sum)-1] & 0x0F
	code := binary.BigEndian.Uint32(sum[off:off+4]) & 0x7FFFFFFF
	return code % totpDigits
}
