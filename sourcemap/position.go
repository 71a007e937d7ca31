package sourcemap

import "fmt"

// FilePosition is a line and column pair.
type FilePosition struct {
	Line   int
	Column int
}

// Compare returns -1, 0 or +1 depending on whether p is before, equal to or
// after other in line, then column order.
func (p FilePosition) Compare(other FilePosition) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	default:
		return 0
	}
}

// Less reports whether p comes strictly before other.
func (p FilePosition) Less(other FilePosition) bool { return p.Compare(other) < 0 }

func (p FilePosition) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// OriginalMapping describes the position in an original source a location in
// the generated file was produced from. LineNumber and ColumnPosition are
// 1-based.
type OriginalMapping struct {
	OriginalFile   string
	LineNumber     int
	ColumnPosition int
	// Identifier is the original name of the symbol at this position, empty if
	// the mapping carries no name.
	Identifier string
}

func (m OriginalMapping) String() string {
	if m.Identifier == "" {
		return fmt.Sprintf("%s:%d:%d", m.OriginalFile, m.LineNumber, m.ColumnPosition)
	}
	return fmt.Sprintf("%s:%d:%d (%s)", m.OriginalFile, m.LineNumber, m.ColumnPosition, m.Identifier)
}

// Mapping is implemented by parsed source maps that can translate generated
// positions into original ones.
type Mapping interface {
	// GetMappingForLine returns the original mapping for a 1-based generated
	// line and column. The second return value is false when the position
	// isn't mapped.
	GetMappingForLine(line, column int) (OriginalMapping, bool)
}

// ReversibleMapping is a Mapping that can also translate original positions
// into generated ones.
type ReversibleMapping interface {
	Mapping
	// OriginalSources returns the original sources referenced by the map.
	OriginalSources() []string
	// GetReverseMapping returns all generated positions produced from the
	// given line of the original file. Several positions may be returned, e.g.
	// when a function was inlined. An empty result means there were no
	// matches.
	GetReverseMapping(originalFile string, line, column int) []FilePosition
}
