package sourcemap

import (
	"strings"

	"github.com/gopherjs/sourcemaps/base64vlq"
)

// lineMapper writes the "mappings" field of a source map for a sequence of
// segments.
//
// All values are written as deltas against the previous entry. The
// generated column restarts from zero on every line, the source and name
// trackers carry over across lines.
type lineMapper struct {
	out     *strings.Builder
	sources *nameTable
	names   *nameTable

	previousLine   int
	previousColumn int

	previousSourceID     int
	previousSourceLine   int
	previousSourceColumn int
	previousNameID       int

	buf []byte
}

func newLineMapper(out *strings.Builder, sources, names *nameTable) *lineMapper {
	return &lineMapper{out: out, sources: sources, names: names, previousLine: -1}
}

// begin opens the quoted mappings string.
func (lm *lineMapper) begin() { lm.out.WriteByte('"') }

// end terminates the last line and closes the quoted string.
func (lm *lineMapper) end() { lm.out.WriteString(";\"") }

func (lm *lineMapper) visit(s segment) {
	if lm.previousLine != s.start.Line {
		lm.previousColumn = 0
	}
	if s.start != s.end {
		if lm.previousLine == s.start.Line {
			lm.out.WriteByte(',')
		}
		lm.writeEntry(s.m, s.start.Column)
		lm.previousLine = s.start.Line
		lm.previousColumn = s.start.Column
	}
	for i := s.start.Line; i < s.end.Line; i++ {
		lm.out.WriteByte(';')
	}
}

func (lm *lineMapper) writeEntry(m *mapping, column int) {
	lm.buf = base64vlq.AppendEncoded(lm.buf[:0], column-lm.previousColumn)
	if m != nil {
		sourceID := lm.sources.id(m.sourceFile)
		lm.buf = base64vlq.AppendEncoded(lm.buf, sourceID-lm.previousSourceID)
		lm.previousSourceID = sourceID

		lm.buf = base64vlq.AppendEncoded(lm.buf, m.originalPosition.Line-lm.previousSourceLine)
		lm.previousSourceLine = m.originalPosition.Line
		lm.buf = base64vlq.AppendEncoded(lm.buf, m.originalPosition.Column-lm.previousSourceColumn)
		lm.previousSourceColumn = m.originalPosition.Column

		if m.hasName {
			nameID := lm.names.id(m.originalName)
			lm.buf = base64vlq.AppendEncoded(lm.buf, nameID-lm.previousNameID)
			lm.previousNameID = nameID
		}
	}
	lm.out.Write(lm.buf)
}
