package base64vlq

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, value int) {
	t.Helper()
	encoded := EncodeToString(value)
	r := strings.NewReader(encoded)
	got, err := Decode(r)
	if err != nil {
		t.Fatalf("Got: Decode(%q) returned error: %s. Want: no error.", encoded, err)
	}
	if got != value {
		t.Fatalf("Got: Decode(Encode(%d)) = %d. Want: %d.", value, got, value)
	}
	if r.Len() != 0 {
		t.Fatalf("Got: %d undecoded bytes left after decoding %q. Want: 0.", r.Len(), encoded)
	}
}

func TestRoundTrip0To63(t *testing.T) {
	for i := 0; i < 64; i++ {
		roundTrip(t, i)
	}
}

func TestRoundTripPowersOfTwo(t *testing.T) {
	base := 1
	for i := 0; i < 31; i++ {
		roundTrip(t, base-1)
		roundTrip(t, base)
		roundTrip(t, -base)
		roundTrip(t, -(base - 1))
		roundTrip(t, -base-1)
		base *= 2
	}
}

func TestRoundTripAroundZero(t *testing.T) {
	for i := -(64*64 - 1); i < 64*64-1; i++ {
		roundTrip(t, i)
	}
}

func TestRoundTripLimits(t *testing.T) {
	roundTrip(t, math.MaxInt32)
	roundTrip(t, math.MinInt32+1)
}

func TestEncodeToString(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{value: 0, want: "A"},
		{value: 1, want: "C"},
		{value: -1, want: "D"},
		{value: 15, want: "e"},
		{value: 16, want: "gB"},
		{value: -16, want: "hB"},
		{value: 123, want: "2H"},
	}
	for _, test := range tests {
		got := EncodeToString(test.value)
		if got != test.want {
			t.Errorf("Got: EncodeToString(%d) = %q. Want: %q.", test.value, got, test.want)
		}
	}
}

func TestEncodeOutOfRange(t *testing.T) {
	tests := []int{math.MinInt32, math.MaxInt32 + 1, 1 << 40, -(1 << 40)}
	for _, value := range tests {
		t.Run(fmt.Sprint(value), func(t *testing.T) {
			sb := &strings.Builder{}
			if err := Encode(sb, value); !errors.Is(err, ErrOverflow) {
				t.Errorf("Got: Encode(%d) returned error: %v. Want: %v.", value, err, ErrOverflow)
			}
			if sb.Len() != 0 {
				t.Errorf("Got: Encode(%d) wrote %q. Want: nothing written.", value, sb.String())
			}

			defer func() {
				err, ok := recover().(error)
				if !ok || !errors.Is(err, ErrOverflow) {
					t.Errorf("Got: EncodeToString(%d) recovered %v. Want: panic with %v.", value, err, ErrOverflow)
				}
			}()
			EncodeToString(value)
		})
	}
}

func TestDecodeConsumesOneValue(t *testing.T) {
	r := strings.NewReader("gBD;")
	first, err := Decode(r)
	if err != nil || first != 16 {
		t.Fatalf("Got: Decode() = %d, %v. Want: 16, no error.", first, err)
	}
	second, err := Decode(r)
	if err != nil || second != -1 {
		t.Fatalf("Got: Decode() = %d, %v. Want: -1, no error.", second, err)
	}
	if rest := r.Len(); rest != 1 {
		t.Errorf("Got: %d bytes left. Want: 1.", rest)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		descr string
		input string
		want  error
	}{{
		descr: "empty",
		input: "",
		want:  io.ErrUnexpectedEOF,
	}, {
		descr: "truncated",
		input: "gg",
		want:  io.ErrUnexpectedEOF,
	}, {
		descr: "invalid character",
		input: "g=",
		want:  ErrInvalidCharacter,
	}, {
		descr: "overflow",
		input: "gggggggA",
		want:  ErrOverflow,
	}, {
		descr: "more than 32 bits in 7 digits",
		input: "ggggggQ",
		want:  ErrOverflow,
	}, {
		descr: "MinInt32",
		input: "hgggggE",
		want:  ErrOverflow,
	}}

	for _, test := range tests {
		t.Run(test.descr, func(t *testing.T) {
			_, err := Decode(strings.NewReader(test.input))
			if !errors.Is(err, test.want) {
				t.Errorf("Got: Decode(%q) returned error: %v. Want: %v.", test.input, err, test.want)
			}
		})
	}
}

func TestDecodeString(t *testing.T) {
	value, n, err := DecodeString("2HAAA")
	if err != nil {
		t.Fatalf("Got: DecodeString() returned error: %s. Want: no error.", err)
	}
	if value != 123 || n != 2 {
		t.Errorf("Got: DecodeString(\"2HAAA\") = %d, %d. Want: 123, 2.", value, n)
	}
}
