package sourcemap

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gopherjs/sourcemaps/internal/experiments"
	"github.com/gopherjs/sourcemaps/internal/jsstring"
)

// ExtensionMergeAction resolves a conflict between two values of the same
// extension when merging map sections. It returns the value to keep.
type ExtensionMergeAction func(key string, current, incoming any) any

// Generator collects mappings from the generated code back to the original
// sources and serializes them as a revision 3 source map.
//
// Mappings must be added as a pre-order traversal of the generated code: a
// mapping that contains another one is added before it. Nested mappings take
// precedence over their parents for the range they cover.
//
// The zero value is not ready for use, create generators with NewGenerator.
type Generator struct {
	// Mappings in the order they were added.
	mappings []*mapping
	// The last mapping added, for order validation.
	lastMapping *mapping

	// Source file and symbol name tables, filled in the order of first use
	// while the mappings are written.
	sources nameTable
	names   nameTable

	// Position the generated code starts at in the buffer it is appended to.
	offset FilePosition
	// End of the wrapper prefix that will be added before the generated code.
	prefix FilePosition

	extensions extensionTable
	sourceRoot string

	validate bool
}

// NewGenerator returns an empty generator.
func NewGenerator() *Generator {
	return &Generator{validate: experiments.Env.Validate}
}

// Reset clears all mappings and offsets so the generator can be reused for
// another output. Extensions and the source root are kept.
func (g *Generator) Reset() {
	g.mappings = nil
	g.lastMapping = nil
	g.sources.reset()
	g.names.reset()
	g.offset = FilePosition{}
	g.prefix = FilePosition{}
}

// Validate enables potentially costly consistency checks during
// serialization. A failed check panics.
func (g *Generator) Validate(validate bool) { g.validate = validate }

// SetWrapperPrefix sets the text that will be added before the generated code
// when it is written. All mappings are shifted by the position the prefix ends
// at. The prefix may be set at any time before serialization.
func (g *Generator) SetWrapperPrefix(prefix string) {
	line, column := 0, 0
	for i := 0; i < len(prefix); i++ {
		if prefix[i] == '\n' {
			line++
			column = 0
		} else {
			column++
		}
	}
	g.prefix = FilePosition{Line: line, Column: column}
}

// SetStartingPosition sets the position in the output buffer the generated
// code is appended at. It only applies to mappings added afterwards: column
// is added to positions on the first line of the generated code, line to all
// of them.
func (g *Generator) SetStartingPosition(line, column int) {
	if line < 0 || column < 0 {
		panic(fmt.Errorf("invalid starting position %d:%d", line, column))
	}
	g.offset = FilePosition{Line: line, Column: column}
}

// SetSourceRoot sets the prefix debuggers add to source file names in order to
// load them. It is written as-is and omitted when empty.
func (g *Generator) SetSourceRoot(path string) { g.sourceRoot = path }

// AddMapping adds a mapping of the generated code range [start, end) to
// the position sourceStart in sourceName. An empty symbolName means the
// mapping doesn't carry an original name.
//
// Mappings without a source name or with a negative source line are ignored.
// Adding a mapping that starts before the previous one violates the pre-order
// contract and panics.
func (g *Generator) AddMapping(sourceName, symbolName string, sourceStart, start, end FilePosition) {
	if err := g.addMapping(sourceName, symbolName, sourceStart, start, end); err != nil {
		panic(err)
	}
}

func (g *Generator) addMapping(sourceName, symbolName string, sourceStart, start, end FilePosition) error {
	if sourceName == "" || sourceStart.Line < 0 {
		return nil
	}

	m := &mapping{
		id:               unmapped,
		sourceFile:       sourceName,
		originalPosition: sourceStart,
		originalName:     symbolName,
		hasName:          symbolName != "",
		startPosition:    g.applyOffset(start),
		endPosition:      g.applyOffset(end),
	}

	if g.lastMapping != nil && m.startPosition.Less(g.lastMapping.startPosition) {
		return fmt.Errorf("incorrect source mappings order, previous: %v, new: %v", g.lastMapping.startPosition, m.startPosition)
	}

	g.lastMapping = m
	g.mappings = append(g.mappings, m)
	return nil
}

// applyOffset moves p by the starting position. Only the first line of the
// generated code shares its columns with the code before it.
func (g *Generator) applyOffset(p FilePosition) FilePosition {
	if g.offset == (FilePosition{}) {
		return p
	}
	if p.Line == 0 {
		p.Column += g.offset.Column
	}
	p.Line += g.offset.Line
	return p
}

// AddExtension sets a custom field of the source map. The name must start with
// "x_" and the value must be encodable as JSON. Values of type
// json.RawMessage are written verbatim.
func (g *Generator) AddExtension(name string, value any) error {
	return g.extensions.put(name, value)
}

// RemoveExtension removes the named extension if present.
func (g *Generator) RemoveExtension(name string) { g.extensions.remove(name) }

// HasExtension reports whether the named extension is set.
func (g *Generator) HasExtension(name string) bool {
	_, ok := g.extensions.get(name)
	return ok
}

// Extension returns the value of the named extension.
func (g *Generator) Extension(name string) (any, bool) { return g.extensions.get(name) }

// MergeMapSection appends the mappings of the source map in contents, with the
// generated positions offset by (line, column). Extensions of the section
// are ignored.
func (g *Generator) MergeMapSection(line, column int, contents string) error {
	return g.MergeMapSectionWithAction(line, column, contents, nil)
}

// MergeMapSectionWithAction works like MergeMapSection, except that the
// extensions of the section are merged into the generator's. When both define
// the same extension, action decides the value to keep. A nil action discards
// the section's extensions.
func (g *Generator) MergeMapSectionWithAction(line, column int, contents string, action ExtensionMergeAction) error {
	if line < 0 || column < 0 {
		return formatErrorf(ErrInvalidFormat, "invalid section offset %d:%d", line, column)
	}
	var section Consumer
	if err := section.Parse(contents, nil); err != nil {
		return err
	}

	g.SetStartingPosition(line, column)
	var mergeErr error
	section.VisitMappings(func(sourceName, symbolName string, sourceStart, start, end FilePosition) {
		if mergeErr != nil {
			return
		}
		if err := g.addMapping(sourceName, symbolName, sourceStart, start, end); err != nil {
			mergeErr = formatErrorf(ErrInvalidFormat, "section at %d:%d: %v", line, column, err)
		}
	})
	if mergeErr != nil {
		return mergeErr
	}

	if action == nil {
		return nil
	}
	var extErr error
	section.extensions.each(func(key string, value any) {
		if extErr != nil {
			return
		}
		if current, ok := g.extensions.get(key); ok {
			value = action(key, current, value)
		}
		extErr = g.extensions.put(key, value)
	})
	return extErr
}

// prepMappings marks the mappings reachable by the traversal as used,
// renumbers them and returns the last generated line they cover.
func (g *Generator) prepMappings() int {
	for _, m := range g.mappings {
		m.used = false
		m.id = unmapped
	}
	traverseMappings(g.mappings, g.prefix, g.validate, func(s segment) {
		if s.m != nil {
			s.m.used = true
		}
	})

	id, maxLine := 0, 0
	for _, m := range g.mappings {
		if !m.used {
			continue
		}
		m.id = id
		id++
		if m.endPosition.Line > maxLine {
			maxLine = m.endPosition.Line
		}
	}
	return maxLine + g.prefix.Line
}

// AppendTo writes the source map for the generated file name to w and
// returns the last generated line the mappings cover.
//
// The output looks as follows:
//
//	{
//	"version":3,
//	"file":"out.js",
//	"lineCount":2,
//	"sourceRoot":"",
//	"mappings":"a;;abcde,abcd,a;",
//	"sources":["foo.js","bar.js"],
//	"names":["src","maps","are","fun"],
//	"x_org_extension":value
//	}
//
// "sourceRoot" is only present when set, extensions are written in the order
// they were added.
func (g *Generator) AppendTo(w io.Writer, name string) (int, error) {
	maxLine := g.prepMappings()

	var sb strings.Builder
	sb.WriteString("{\n")
	appendFirstField(&sb, "version", "3")
	appendField(&sb, "file", jsstring.Quote(name))
	appendField(&sb, "lineCount", strconv.Itoa(maxLine+1))
	if g.sourceRoot != "" {
		appendField(&sb, "sourceRoot", jsstring.Quote(g.sourceRoot))
	}

	// Ids are assigned while writing, so that the tables only contain what
	// the used mappings reference.
	g.sources.reset()
	g.names.reset()
	appendField(&sb, "mappings", "")
	lm := newLineMapper(&sb, &g.sources, &g.names)
	lm.begin()
	traverseMappings(g.mappings, g.prefix, g.validate, lm.visit)
	lm.end()

	appendField(&sb, "sources", "")
	g.sources.appendJSON(&sb)
	appendField(&sb, "names", "")
	g.names.appendJSON(&sb)

	var err error
	g.extensions.each(func(key string, value any) {
		if err != nil {
			return
		}
		var encoded string
		encoded, err = encodeExtension(value)
		appendField(&sb, key, encoded)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to write source map for %s: %w", name, err)
	}
	sb.WriteString("\n}\n")

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return 0, fmt.Errorf("failed to write source map for %s: %w", name, err)
	}
	return maxLine, nil
}

// AppendIndexMapTo writes an index map for the generated file name to w. Each
// section either references its map by url or embeds it. Mappings added to
// the generator are not used.
func (g *Generator) AppendIndexMapTo(w io.Writer, name string, sections []Section) error {
	var sb strings.Builder
	sb.WriteString("{\n")
	appendFirstField(&sb, "version", "3")
	appendField(&sb, "file", jsstring.Quote(name))
	appendField(&sb, "sections", "[\n")
	for i, s := range sections {
		if i > 0 {
			sb.WriteString(",\n")
		}
		sb.WriteString("{\n")
		appendFirstField(&sb, "offset", offsetValue(s.Line, s.Column))
		switch s.Type {
		case SectionURL:
			appendField(&sb, "url", jsstring.Quote(s.Value))
		case SectionMap:
			appendField(&sb, "map", s.Value)
		default:
			return fmt.Errorf("unexpected section type %v in index map for %s", s.Type, name)
		}
		sb.WriteString("\n}")
	}
	sb.WriteString("\n]")
	sb.WriteString("\n}\n")

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write index map for %s: %w", name, err)
	}
	return nil
}

func offsetValue(line, column int) string {
	var sb strings.Builder
	sb.WriteString("{\n")
	appendFirstField(&sb, "line", strconv.Itoa(line))
	appendField(&sb, "column", strconv.Itoa(column))
	sb.WriteString("\n}")
	return sb.String()
}

func appendFirstField(sb *strings.Builder, name, value string) {
	sb.WriteByte('"')
	sb.WriteString(name)
	sb.WriteString(`":`)
	sb.WriteString(value)
}

func appendField(sb *strings.Builder, name, value string) {
	sb.WriteString(",\n")
	appendFirstField(sb, name, value)
}
