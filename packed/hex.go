package packed

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

var ErrBadHex = errors.New("encoded key must be between 1 and 8 words of 16 hex digits")

// Hex writes the key as big-endian hex words. Trailing zero words are
// dropped, so small stores give short strings.
func (k Key) Hex() string {
	n := len(k)
	for n > 1 && k[n-1] == 0 {
		n--
	}
	buf := make([]byte, 8*n)
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint64(buf[8*i:], k[i])
	}
	return hex.EncodeToString(buf)
}

// ParseHex reads a key written by Hex. Missing words are zero.
func ParseHex(s string) (Key, error) {
	var k Key
	buf, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("%w: %v", ErrBadHex, err)
	}
	if len(buf) == 0 || len(buf)%8 != 0 || len(buf) > 8*len(k) {
		return k, fmt.Errorf("%w: got %d digits", ErrBadHex, len(s))
	}
	for i := 0; i < len(buf)/8; i++ {
		k[i] = binary.BigEndian.Uint64(buf[8*i:])
	}
	return k, nil
}
