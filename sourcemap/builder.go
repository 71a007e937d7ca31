package sourcemap

import (
	"github.com/gopherjs/sourcemaps/base64vlq"
)

// maxEntryValues is the number of values of a mapping entry with a name.
const maxEntryValues = 5

// entry of the mappings table. Unmapped entries only have a generated column,
// the source fields are set to unmapped. Entries without a name have nameID
// set to unmapped.
type entry struct {
	column       int
	sourceID     int
	sourceLine   int
	sourceColumn int
	nameID       int
}

func (e entry) mapped() bool { return e.sourceID != unmapped }
func (e entry) named() bool  { return e.nameID != unmapped }

// mappingBuilder decodes the "mappings" field of a source map into per line
// entry lists.
type mappingBuilder struct {
	content string
	pos     int

	sources int
	names   int
	// lineCount from the map, -1 if absent. Only enforced when strict is set.
	lineCount int
	strict    bool

	line              int
	previousCol       int
	previousSrcID     int
	previousSrcLine   int
	previousSrcColumn int
	previousNameID    int
}

// build decodes the whole mappings string. Lines without entries are nil.
// Entries after the last ';' form the last line.
func (b *mappingBuilder) build() ([][]entry, error) {
	var lines [][]entry
	if b.lineCount > 0 {
		lines = make([][]entry, 0, b.lineCount)
	}
	var entries []entry
	var values [maxEntryValues]int
	for b.pos < len(b.content) {
		if b.tryConsume(';') {
			lines = append(lines, entries)
			entries = nil
			b.line++
			b.previousCol = 0
			continue
		}

		n := 0
		for !b.entryComplete() {
			v, err := b.nextValue()
			if err != nil {
				return nil, err
			}
			if n < maxEntryValues {
				values[n] = v
			}
			n++
		}
		e, err := b.decodeEntry(values[:], n)
		if err != nil {
			return nil, err
		}
		if err := b.validateEntry(e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
		b.tryConsume(',')
	}
	if len(entries) > 0 {
		lines = append(lines, entries)
	}
	return lines, nil
}

// decodeEntry turns the n relative values of an entry into an absolute entry.
// The values are, in order:
//
//	0: the starting column in the current line of the generated file
//	1: the id of the original source file
//	2: the starting line in the original source
//	3: the starting column in the original source
//	4: the id of the original symbol name
//
// The generated column is relative to the previous entry of the same line,
// all other values to the last entry that had them.
func (b *mappingBuilder) decodeEntry(values []int, n int) (entry, error) {
	switch n {
	case 1:
		e := entry{
			column:   values[0] + b.previousCol,
			sourceID: unmapped, sourceLine: unmapped, sourceColumn: unmapped,
			nameID: unmapped,
		}
		b.previousCol = e.column
		return e, nil
	case 4, 5:
		e := entry{
			column:       values[0] + b.previousCol,
			sourceID:     values[1] + b.previousSrcID,
			sourceLine:   values[2] + b.previousSrcLine,
			sourceColumn: values[3] + b.previousSrcColumn,
			nameID:       unmapped,
		}
		if n == 5 {
			e.nameID = values[4] + b.previousNameID
			b.previousNameID = e.nameID
		}
		b.previousCol = e.column
		b.previousSrcID = e.sourceID
		b.previousSrcLine = e.sourceLine
		b.previousSrcColumn = e.sourceColumn
		return e, nil
	default:
		return entry{}, formatErrorf(ErrEntryArity, "%d values on line %d at offset %d", n, b.line, b.pos)
	}
}

func (b *mappingBuilder) validateEntry(e entry) error {
	if b.strict && b.lineCount >= 0 && b.line >= b.lineCount {
		return formatErrorf(ErrInvalidFormat, "entry on line %d past line count %d", b.line, b.lineCount)
	}
	if e.mapped() && (e.sourceID < 0 || e.sourceID >= b.sources) {
		return formatErrorf(ErrInvalidFormat, "source id %d on line %d out of range [0, %d)", e.sourceID, b.line, b.sources)
	}
	if e.named() && (e.nameID < 0 || e.nameID >= b.names) {
		return formatErrorf(ErrInvalidFormat, "name id %d on line %d out of range [0, %d)", e.nameID, b.line, b.names)
	}
	return nil
}

func (b *mappingBuilder) tryConsume(token byte) bool {
	if b.pos < len(b.content) && b.content[b.pos] == token {
		b.pos++
		return true
	}
	return false
}

func (b *mappingBuilder) entryComplete() bool {
	if b.pos >= len(b.content) {
		return true
	}
	c := b.content[b.pos]
	return c == ';' || c == ','
}

func (b *mappingBuilder) nextValue() (int, error) {
	v, n, err := base64vlq.DecodeString(b.content[b.pos:])
	if err != nil {
		return 0, formatErrorf(err, "bad value on line %d at offset %d", b.line, b.pos+n)
	}
	b.pos += n
	return v, nil
}
