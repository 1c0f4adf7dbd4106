package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"fmt"
)

// HMAC-SHA1 keys used to derive the two directional ARC4 sub-keys from the
// 40-byte SRP session key. Values are fixed by the 3.3.5 client.
var (
	serverEncryptionKey = []byte{
		0xCC, 0x98, 0xAE, 0x04, 0xE8, 0x97, 0xEA, 0xCA,
		0x12, 0xDD, 0xC0, 0x93, 0x42, 0x91, 0x53, 0x57,
	}
	clientDecryptionKey = []byte{
		0xC2, 0xB3, 0x72, 0x3C, 0xC6, 0xAE, 0xD9, 0xB5,
		0x34, 0x3C, 0x53, 0xEE, 0x2F, 0x43, 0x67, 0xCE,
	}
)

// SessionKeySize is the size of the SRP-derived session key.
const SessionKeySize = 40

// SessionCrypt encrypts outbound and decrypts inbound world packet headers.
// Two independent drop-1024 ARC4 instances are derived from the shared
// session key, one per direction. The zero value is an uninitialized crypt
// whose Encrypt/Decrypt calls are no-ops.
type SessionCrypt struct {
	encrypt     *ARC4
	decrypt     *ARC4
	initialized bool
}

// Init derives the directional ciphers from a 40-byte session key.
//
// After construction another 1024 zero bytes are pushed through both
// directions. The reference implementation applies the drop twice (once
// inside the cipher, once outside); both peers must discard the same amount
// of keystream, so the duplication is kept for wire compatibility.
func (sc *SessionCrypt) Init(sessionKey []byte) error {
	if len(sessionKey) != SessionKeySize {
		return fmt.Errorf("session crypt: key must be %d bytes, got %d", SessionKeySize, len(sessionKey))
	}

	encMAC := hmac.New(sha1.New, serverEncryptionKey)
	encMAC.Write(sessionKey)
	decMAC := hmac.New(sha1.New, clientDecryptionKey)
	decMAC.Write(sessionKey)

	enc, err := NewARC4Drop(encMAC.Sum(nil))
	if err != nil {
		return fmt.Errorf("session crypt: encrypt cipher: %w", err)
	}
	dec, err := NewARC4Drop(decMAC.Sum(nil))
	if err != nil {
		return fmt.Errorf("session crypt: decrypt cipher: %w", err)
	}

	sc.encrypt = enc
	sc.decrypt = dec

	pad := make([]byte, dropBytes)
	sc.encrypt.Apply(pad, 0, len(pad))
	clear(pad)
	sc.decrypt.Apply(pad, 0, len(pad))

	sc.initialized = true
	return nil
}

// IsInitialized reports whether Init has run. Callers must check this
// before relying on header encryption.
func (sc *SessionCrypt) IsInitialized() bool {
	return sc.initialized
}

// EncryptSend encrypts data in place (server → client). No-op before Init.
func (sc *SessionCrypt) EncryptSend(data []byte) {
	if !sc.initialized {
		return
	}
	sc.encrypt.Apply(data, 0, len(data))
}

// DecryptRecv decrypts data in place (client → server). No-op before Init.
func (sc *SessionCrypt) DecryptRecv(data []byte) {
	if !sc.initialized {
		return
	}
	sc.decrypt.Apply(data, 0, len(data))
}

// Wipe erases both cipher states and marks the crypt uninitialized.
// Must be called on connection teardown.
func (sc *SessionCrypt) Wipe() {
	if sc.encrypt != nil {
		sc.encrypt.Wipe()
	}
	if sc.decrypt != nil {
		sc.decrypt.Wipe()
	}
	sc.initialized = false
}
