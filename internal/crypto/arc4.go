package crypto

import "errors"

// ErrInvalidKey is returned when a cipher is initialized with an empty key.
var ErrInvalidKey = errors.New("arc4: empty key")

// dropBytes is the number of initial keystream bytes discarded by the
// drop variant to defeat known weak-key-prefix biases.
const dropBytes = 1024

// ARC4 is the keystream cipher used for world packet header encryption.
// It supports the drop-N warm-up variant and erasing its key schedule
// via Wipe.
type ARC4 struct {
	state [256]byte
	x, y  byte
}

// NewARC4 creates a cipher keyed with key via the standard key-scheduling loop.
func NewARC4(key []byte) (*ARC4, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}

	var c ARC4
	for i := range 256 {
		c.state[i] = byte(i)
	}
	var j byte
	for i := range 256 {
		j += c.state[i] + key[i%len(key)]
		c.state[i], c.state[j] = c.state[j], c.state[i]
	}
	return &c, nil
}

// NewARC4Drop creates a cipher keyed with key and discards the first 1024
// keystream bytes immediately after scheduling.
func NewARC4Drop(key []byte) (*ARC4, error) {
	c, err := NewARC4(key)
	if err != nil {
		return nil, err
	}
	for range dropBytes {
		c.Generate()
	}
	return c, nil
}

// Generate advances the cipher state and returns the next keystream byte.
func (c *ARC4) Generate() byte {
	c.x++
	c.y += c.state[c.x]
	c.state[c.x], c.state[c.y] = c.state[c.y], c.state[c.x]
	return c.state[c.state[c.x]+c.state[c.y]]
}

// Apply XORs data[offset:offset+length] in place with fresh keystream bytes.
func (c *ARC4) Apply(data []byte, offset, length int) {
	for i := offset; i < offset+length; i++ {
		data[i] ^= c.Generate()
	}
}

// Wipe overwrites the permutation table and indices. The cipher is unusable
// afterwards; connection teardown must call this so key-derived state does
// not linger in memory.
func (c *ARC4) Wipe() {
	clear(c.state[:])
	c.x, c.y = 0, 0
}
