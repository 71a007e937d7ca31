package sourcemapx

import (
	"fmt"
	"strings"
)

// Origin marks the beginning of generated code produced from the given
// position of an original source. Line and Column are 0-based.
type Origin struct {
	File   string
	Line   int
	Column int
	// Name is the original name of the symbol the code represents, if any.
	Name string
}

func (o Origin) String() string {
	if o.Name == "" {
		return fmt.Sprintf("%s:%d:%d", o.File, o.Line, o.Column)
	}
	return fmt.Sprintf("%s:%d:%d (%s)", o.File, o.Line, o.Column, o.Name)
}

// End marks the end of the generated code started by the innermost Origin
// that isn't closed yet.
type End struct{}

// Identifier represents a generated code identifier with the associated
// original identifier information.
//
// This allows to map a generated function or variable name back to the
// original symbol name.
type Identifier struct {
	Name         string // Identifier to use in the generated code.
	OriginalName string // Original identifier name.
	OriginalPos  Origin // Original identifier position, its Name is ignored.
}

// String returns generated code identifier name.
func (i Identifier) String() string {
	return i.Name
}

// Encode returns the identifier name wrapped into source map hints mapping it
// to the original name.
func (i Identifier) Encode() string {
	origin := i.OriginalPos
	origin.Name = i.OriginalName
	return EncodeHint(origin) + i.Name + EncodeHint(End{})
}

// EncodeHint returns a string with the encoded source map hint for value.
func EncodeHint(value any) string {
	buf := &strings.Builder{}
	h := Hint{}
	if err := h.Pack(value); err != nil {
		panic(fmt.Errorf("failed to pack source map hint: %w", err))
	}
	if _, err := h.WriteTo(buf); err != nil {
		panic(fmt.Errorf("failed to write source map hint into a buffer: %w", err))
	}
	return buf.String()
}
