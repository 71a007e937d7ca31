package sourcemapx

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// A magic byte in the generated code output that indicates a beginning of a
// source map hint. The character has been chosen because it should never show
// up in valid generated code unescaped, other than for source map hint purposes.
const HintMagic byte = '\b'

// Hint is a container for a sourcemap hint that can be embedded into the
// generated code stream. Payload size and semantics depend on the nature of the
// hint.
//
// Within the stream, the hint is encoded in the following binary format:
//   - magic: 0x08 - ASCII backspace, magic symbol indicating the beginning of the hint;
//   - size: 16 bit, big endian unsigned int - the size of the payload.
//   - payload: [size]byte - the payload of the hint.
type Hint struct {
	Payload []byte
}

// FindHint returns the lowest index in the byte slice where a source map Hint
// is embedded or -1 if it isn't found. Invariant: if FindHint(b) != -1 then
// b[FindHint(b)] == '\b'.
func FindHint(b []byte) int {
	return bytes.IndexByte(b, HintMagic)
}

// ReadHint reads the Hint from the beginning of the byte slice and returns
// the hint and the number of bytes in the slice it occupies. The caller is
// expected to find the location of the hint using FindHint prior to calling
// this function.
//
// Returned hint payload does not share backing array with b.
//
// Function panics if:
//   - b[0] != '\b'
//   - len(b) < size + 3
func ReadHint(b []byte) (h Hint, length int) {
	if len(b) < 3 {
		panic(fmt.Errorf("byte slice too short to contain hint header: len(b) = %d", len(b)))
	}
	if b[0] != HintMagic {
		panic(fmt.Errorf("byte slice doesn't start with magic 0x%x: b[0] = 0x%x", HintMagic, b[0]))
	}
	size := int(binary.BigEndian.Uint16(b[1:3]))
	if len(b) < size+3 {
		panic(fmt.Errorf("byte slice it too short to contain hint payload: len(b) = %d, expected hint size: %d", len(b), size+3))
	}

	h.Payload = make([]byte, size)
	copy(h.Payload, b[3:])
	return h, size + 3
}

// WriteTo the encoded hint into the output stream. Panics if payload is longer
// than 0xFFFF bytes.
func (h *Hint) WriteTo(w io.Writer) (int64, error) {
	if len(h.Payload) > 0xFFFF {
		panic(fmt.Errorf("hint payload may not be longer than %d bytes, got: %d", 0xFFFF, len(h.Payload)))
	}
	encoded := make([]byte, 3, 3+len(h.Payload))
	encoded[0] = HintMagic
	binary.BigEndian.PutUint16(encoded[1:3], uint16(len(h.Payload)))
	encoded = append(encoded, h.Payload...)

	n, err := w.Write(encoded)
	if err != nil {
		return int64(n), fmt.Errorf("failed to write hint: %w", err)
	}

	return int64(n), nil
}

// Payload type flags.
const (
	originFlag byte = 1
	endFlag    byte = 2
)

// Pack the given value into hint's payload.
//
// Supported types: Origin, End.
//
// The first byte of the payload will indicate the encoded type, and the rest
// is an opaque, type-dependent binary representation of the type.
func (h *Hint) Pack(value any) error {
	payload := &bytes.Buffer{}
	switch value.(type) {
	case Origin:
		payload.WriteByte(originFlag)
		if err := gob.NewEncoder(payload).Encode(value); err != nil {
			return fmt.Errorf("failed to encode hint payload: %w", err)
		}
	case End:
		// Nothing to encode besides the flag.
		payload.WriteByte(endFlag)
	default:
		return fmt.Errorf("unsupported hint payload type %T", value)
	}

	h.Payload = payload.Bytes()
	return nil
}

// Unpack and return hint's payload, previously packed by Pack().
func (h *Hint) Unpack() (any, error) {
	if len(h.Payload) < 1 {
		return nil, fmt.Errorf("payload is too short to contain type flag")
	}
	switch h.Payload[0] {
	case originFlag:
		var o Origin
		if err := gob.NewDecoder(bytes.NewReader(h.Payload[1:])).Decode(&o); err != nil {
			return nil, fmt.Errorf("failed to decode hint payload as %T: %w", o, err)
		}
		return o, nil
	case endFlag:
		return End{}, nil
	default:
		return nil, fmt.Errorf("unsupported hint payload type flag: %d", h.Payload[0])
	}
}
