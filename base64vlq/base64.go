// Package base64vlq implements the base64 variable-length quantity encoding
// used by the "mappings" field of revision 3 source maps.
//
// Each base64 digit carries 5 bits of payload and a continuation bit. The
// least significant group comes first. Signed values are stored with the
// sign in the least significant bit of the first group:
//
//	 1 -> 2 (10 binary),  -1 -> 3 (11 binary)
//	 2 -> 4 (100 binary), -2 -> 5 (101 binary)
package base64vlq

import (
	"errors"
	"fmt"
)

// ErrInvalidCharacter is returned when decoding a byte that is not a part of
// the base64 alphabet.
var ErrInvalidCharacter = errors.New("invalid base64 character")

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var decodeMap [256]int8

func init() {
	for i := range decodeMap {
		decodeMap[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		decodeMap[alphabet[i]] = int8(i)
	}
}

// ToBase64 converts a value in the range 0-63 into its base64 digit.
//
// Panics if the value is out of range.
func ToBase64(value int) byte {
	if value < 0 || value > 63 {
		panic(fmt.Errorf("base64 digit value out of range: %d", value))
	}
	return alphabet[value]
}

// FromBase64 converts a base64 digit into a value in the range 0-63.
func FromBase64(c byte) (int, error) {
	v := decodeMap[c]
	if v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCharacter, c)
	}
	return int(v), nil
}

// EncodeInt returns the six digit long base64 representation of a 32-bit
// integer. The first five digits carry the upper 30 bits, the last one the
// remaining 2 bits padded with zeros.
func EncodeInt(value int32) string {
	var c [6]byte
	for i := 0; i < 5; i++ {
		c[i] = ToBase64(int((value >> (26 - i*6)) & 0x3f))
	}
	c[5] = ToBase64(int((value << 4) & 0x3f))
	return string(c[:])
}
