package base64vlq

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// ErrOverflow is returned for values whose magnitude exceeds math.MaxInt32,
// either when encoding them or when they are found in the input.
// math.MinInt32 is not supported.
var ErrOverflow = errors.New("base64 VLQ value overflows 32 bits")

// inRange reports whether value can be encoded.
func inRange(value int) bool {
	return value >= -math.MaxInt32 && value <= math.MaxInt32
}

const (
	// A base64 VLQ digit can represent 5 bits, so it is base-32.
	baseShift = 5
	base      = 1 << baseShift
	baseMask  = base - 1
	// The continuation bit is the 6th bit.
	continuationBit = base

	// 7 digits carry 35 bits, enough for any sign-augmented int32. Values
	// that use the extra bits are still rejected.
	maxDigits = 7
)

func toVLQSigned(value int) uint64 {
	if value < 0 {
		return uint64(-value)<<1 | 1
	}
	return uint64(value) << 1
}

func fromVLQSigned(value uint64) int {
	negate := value&1 == 1
	v := int(value >> 1)
	if negate {
		return -v
	}
	return v
}

// AppendEncoded appends the VLQ encoding of value to dst and returns the
// extended slice. It panics with ErrOverflow if value is out of range.
func AppendEncoded(dst []byte, value int) []byte {
	if !inRange(value) {
		panic(fmt.Errorf("%w: %d", ErrOverflow, value))
	}
	v := toVLQSigned(value)
	for {
		digit := int(v & baseMask)
		v >>= baseShift
		if v > 0 {
			digit |= continuationBit
		}
		dst = append(dst, alphabet[digit])
		if v == 0 {
			return dst
		}
	}
}

// Encode writes the VLQ encoding of value into w. Nothing is written for
// values out of range.
func Encode(w io.ByteWriter, value int) error {
	if !inRange(value) {
		return fmt.Errorf("%w: %d", ErrOverflow, value)
	}
	var buf [maxDigits + 1]byte
	for _, b := range AppendEncoded(buf[:0], value) {
		if err := w.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// EncodeToString returns the VLQ encoding of value. Like AppendEncoded, it
// panics if value is out of range.
func EncodeToString(value int) string {
	var buf [maxDigits + 1]byte
	return string(AppendEncoded(buf[:0], value))
}

// Decode reads the next VLQ value from r. Only the digits of that value are
// consumed.
func Decode(r io.ByteReader) (int, error) {
	var result uint64
	shift := uint(0)
	for digits := 0; ; digits++ {
		if digits == maxDigits {
			return 0, ErrOverflow
		}
		c, err := r.ReadByte()
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		if err != nil {
			return 0, err
		}
		digit, err := FromBase64(c)
		if err != nil {
			return 0, err
		}
		result += uint64(digit&baseMask) << shift
		shift += baseShift
		if digit&continuationBit == 0 {
			break
		}
	}
	if result>>1 > math.MaxInt32 {
		return 0, ErrOverflow
	}
	return fromVLQSigned(result), nil
}

// DecodeString decodes the VLQ value at the beginning of s and returns it
// together with the number of bytes it occupied. On error n is the number of
// bytes read before the failure.
func DecodeString(s string) (value int, n int, err error) {
	r := strings.NewReader(s)
	value, err = Decode(r)
	if err != nil {
		return 0, len(s) - r.Len(), fmt.Errorf("failed to decode VLQ value: %w", err)
	}
	return value, len(s) - r.Len(), nil
}
