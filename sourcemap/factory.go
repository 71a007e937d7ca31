package sourcemap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format is a source map format revision.
type Format int

const (
	// FormatDefault is the latest stable format.
	FormatDefault Format = iota
	// FormatV3 is the revision 3 format.
	FormatV3
)

func (f Format) String() string {
	switch f {
	case FormatDefault:
		return "default"
	case FormatV3:
		return "v3"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// NewGeneratorForFormat returns a generator for the given format revision. It
// panics for unsupported formats.
func NewGeneratorForFormat(f Format) *Generator {
	switch f {
	case FormatDefault, FormatV3:
		return NewGenerator()
	default:
		panic(fmt.Errorf("unsupported source map format %v", f))
	}
}

// v1Magic starts revision 1 source maps, which are not JSON.
const v1Magic = "/** Begin line maps. **/"

// decodeMap detects the format of the source map in contents and decodes it
// as a JSON object. Only revision 3 maps are accepted.
func decodeMap(contents string) (Object, error) {
	switch {
	case strings.HasPrefix(contents, v1Magic):
		return nil, formatErrorf(ErrUnknownVersion, "this appears to be a V1 source map, which is not supported")
	case strings.HasPrefix(contents, "{"):
		// Revisions 2 and 3 are JSON objects.
		var obj Object
		if err := json.Unmarshal([]byte(contents), &obj); err != nil {
			return nil, formatErrorf(err, "JSON parse error")
		}
		var version int
		if obj.has("version") {
			if err := obj.decode("version", &version); err != nil {
				return nil, err
			}
		}
		if version != 3 {
			return nil, formatErrorf(ErrUnknownVersion, "source map version %d", version)
		}
		return obj, nil
	}
	return nil, formatErrorf(ErrInvalidFormat, "unable to detect source map format")
}

// ParseMap detects the format of the source map in contents and parses it.
func ParseMap(contents string, supplier Supplier) (*Consumer, error) {
	obj, err := decodeMap(contents)
	if err != nil {
		return nil, err
	}
	c := &Consumer{}
	if err := c.ParseObject(obj, supplier); err != nil {
		return nil, err
	}
	return c, nil
}

// ResolveSections validates the envelope of the source map in contents and
// returns its file name and sections, with the maps of url sections
// retrieved from supplier. Every returned section is of type SectionMap. A
// plain map is returned as its own only section at offset 0:0.
//
// The section maps themselves are not parsed.
func ResolveSections(contents string, supplier Supplier) (file string, sections []Section, err error) {
	if supplier == nil {
		supplier = noSupplier{}
	}
	obj, err := decodeMap(contents)
	if err != nil {
		return "", nil, err
	}
	if file, err = obj.header(); err != nil {
		return "", nil, err
	}
	if !obj.has("sections") {
		return file, []Section{SectionForMap(contents, 0, 0)}, nil
	}
	if sections, err = indexSections(obj, supplier); err != nil {
		return "", nil, err
	}
	return file, sections, nil
}
