package sourcemap

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/gopherjs/sourcemaps/internal/experiments"
)

// Object is a source map parsed as a JSON object, with its field values not
// decoded yet.
type Object map[string]json.RawMessage

// has reports whether the field is present and not null.
func (o Object) has(key string) bool {
	raw, ok := o[key]
	return ok && string(raw) != "null"
}

// decode unmarshals the field into dest. Missing fields are reported as
// format errors.
func (o Object) decode(key string, dest any) error {
	raw, ok := o[key]
	if !ok {
		return formatErrorf(ErrInvalidFormat, "missing %q field", key)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return formatErrorf(err, "invalid %q field", key)
	}
	return nil
}

// header checks the version of the map and returns its file name.
func (o Object) header() (string, error) {
	var version int
	if !o.has("version") {
		return "", formatErrorf(ErrUnknownVersion, "missing version")
	}
	if err := o.decode("version", &version); err != nil {
		return "", err
	}
	if version != 3 {
		return "", formatErrorf(ErrUnknownVersion, "version %d", version)
	}

	var file string
	if o.has("file") {
		if err := o.decode("file", &file); err != nil {
			return "", err
		}
	}
	if file == "" {
		return "", &FormatError{Err: ErrMissingFile}
	}
	return file, nil
}

// EntryVisitor is called by Consumer.VisitMappings for every mapped run of the
// generated code. symbolName is empty for mappings without a name.
type EntryVisitor func(sourceName, symbolName string, sourceStart, start, end FilePosition)

// reverseIndex maps an original file and line to the generated positions
// produced from it.
type reverseIndex struct {
	byFile map[string]map[int][]FilePosition
}

// Consumer is a parsed revision 3 source map.
//
// The zero value is an empty map, ready to Parse into. A Consumer may be
// reused by parsing another map into it. A failed Parse leaves the previously
// parsed map in place.
type Consumer struct {
	sources []string
	names   []string
	// lineCount from the map, -1 when absent.
	lineCount int
	// Entries of every generated line, nil for lines without any.
	lines      [][]entry
	sourceRoot string
	extensions extensionTable

	// Built on first use, see PrepareReverseIndex.
	reverse *reverseIndex
}

// Parse parses the source map in contents. Sections of index maps that
// reference their map by url are retrieved from supplier, which may be nil
// when no such sections are expected.
func (c *Consumer) Parse(contents string, supplier Supplier) error {
	var obj Object
	if err := json.Unmarshal([]byte(contents), &obj); err != nil {
		return formatErrorf(err, "JSON parse error")
	}
	return c.ParseObject(obj, supplier)
}

// ParseObject works like Parse for a source map that was already decoded as a
// JSON object.
func (c *Consumer) ParseObject(obj Object, supplier Supplier) error {
	if supplier == nil {
		supplier = noSupplier{}
	}

	file, err := obj.header()
	if err != nil {
		return err
	}

	if obj.has("sections") {
		// An index map: flatten it and parse the result instead.
		flat, err := flattenIndexMap(obj, file, supplier)
		if err != nil {
			return err
		}
		return c.Parse(flat, nil)
	}

	parsed := Consumer{lineCount: -1}
	var mappings string
	if err := obj.decode("mappings", &mappings); err != nil {
		return err
	}
	if obj.has("lineCount") {
		if err := obj.decode("lineCount", &parsed.lineCount); err != nil {
			return err
		}
	}
	if obj.has("sources") {
		if err := obj.decode("sources", &parsed.sources); err != nil {
			return err
		}
	}
	if obj.has("names") {
		if err := obj.decode("names", &parsed.names); err != nil {
			return err
		}
	}
	if obj.has("sourceRoot") {
		if err := obj.decode("sourceRoot", &parsed.sourceRoot); err != nil {
			return err
		}
	}

	// Field order is lost once the JSON object is decoded, so extensions are
	// kept sorted by name.
	keys := make([]string, 0, len(obj))
	for key := range obj {
		if strings.HasPrefix(key, extensionPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := parsed.extensions.put(key, obj[key]); err != nil {
			return err
		}
	}

	b := &mappingBuilder{
		content:   mappings,
		sources:   len(parsed.sources),
		names:     len(parsed.names),
		lineCount: parsed.lineCount,
		strict:    experiments.Env.StrictLineCount,
	}
	lines, err := b.build()
	if err != nil {
		return err
	}
	parsed.lines = lines

	*c = parsed
	return nil
}

// indexSection is a section of an index map as it is found in the JSON text.
type indexSection struct {
	Offset *struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"offset"`
	URL *string         `json:"url"`
	Map json.RawMessage `json:"map"`
}

// contents returns the source map of the section, retrieving it from supplier
// if needed.
func (s indexSection) contents(supplier Supplier) (string, error) {
	switch {
	case s.URL != nil && s.Map != nil:
		return "", formatErrorf(ErrInvalidFormat, "section may not have both 'map' and 'url'")
	case s.URL != nil:
		contents, err := supplier.SourceMap(*s.URL)
		if err != nil {
			return "", formatErrorf(ErrUnableToRetrieve, "%s: %v", *s.URL, err)
		}
		return contents, nil
	case s.Map != nil:
		// The map is normally embedded as an object, but a JSON string holding
		// the map text is accepted too.
		if len(s.Map) > 0 && s.Map[0] == '"' {
			var contents string
			if err := json.Unmarshal(s.Map, &contents); err != nil {
				return "", formatErrorf(err, "invalid section map")
			}
			return contents, nil
		}
		return string(s.Map), nil
	default:
		return "", formatErrorf(ErrInvalidFormat, "section must have either 'map' or 'url'")
	}
}

// indexSections checks the fields of an index map and returns its sections
// with their maps retrieved.
func indexSections(obj Object, supplier Supplier) ([]Section, error) {
	for _, key := range []string{"lineCount", "mappings", "sources", "names"} {
		if obj.has(key) {
			return nil, formatErrorf(ErrInvalidFormat, "index map may not have a %q field", key)
		}
	}

	var raw []indexSection
	if err := obj.decode("sections", &raw); err != nil {
		return nil, err
	}
	sections := make([]Section, 0, len(raw))
	for i, s := range raw {
		if s.Offset == nil {
			return nil, formatErrorf(ErrInvalidFormat, "section %d has no offset", i)
		}
		contents, err := s.contents(supplier)
		if err != nil {
			return nil, err
		}
		sections = append(sections, SectionForMap(contents, s.Offset.Line, s.Offset.Column))
	}
	return sections, nil
}

// flattenIndexMap merges all sections of an index map into a single map and
// returns its text.
func flattenIndexMap(obj Object, file string, supplier Supplier) (string, error) {
	sections, err := indexSections(obj, supplier)
	if err != nil {
		return "", err
	}

	g := NewGenerator()
	for _, s := range sections {
		if err := g.MergeMapSection(s.Line, s.Column, s.Value); err != nil {
			return "", err
		}
	}

	var sb strings.Builder
	if _, err := g.AppendTo(&sb, file); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// LineCount returns the advisory line count of the map, or -1 if it doesn't
// specify one.
func (c *Consumer) LineCount() int { return c.lineCount }

// SourceRoot returns the "sourceRoot" field of the map.
func (c *Consumer) SourceRoot() string { return c.sourceRoot }

// OriginalSources returns the source files referenced by the map.
func (c *Consumer) OriginalSources() []string {
	return append([]string(nil), c.sources...)
}

// Extensions returns the "x_" prefixed fields of the map. Values are
// json.RawMessage holding the field JSON text.
func (c *Consumer) Extensions() map[string]any { return c.extensions.asMap() }

// GetMappingForLine returns the original position of the 1-based generated
// line and column.
//
// Positions before the first entry of their line resolve to the last entry of
// a preceding line. The second return value is false for unmapped positions.
func (c *Consumer) GetMappingForLine(line, column int) (OriginalMapping, bool) {
	line--
	column--

	if line < 0 || line >= len(c.lines) {
		return OriginalMapping{}, false
	}

	entries := c.lines[line]
	if len(entries) == 0 || entries[0].column > column {
		return c.previousMapping(line)
	}

	index := search(entries, column, 0, len(entries)-1)
	return c.originalMapping(entries[index])
}

// search looks for the entry covering the target column, i.e. the last one
// that starts at or before it.
func search(entries []entry, target, start, end int) int {
	for {
		mid := (end-start)/2 + start
		compare := entries[mid].column - target
		switch {
		case compare == 0:
			return mid
		case compare < 0:
			// Upper half.
			start = mid + 1
			if start > end {
				return end
			}
		default:
			// Lower half.
			end = mid - 1
			if end < start {
				return end
			}
		}
	}
}

// previousMapping returns the mapping of the last entry before the given line.
func (c *Consumer) previousMapping(line int) (OriginalMapping, bool) {
	for {
		if line == 0 {
			return OriginalMapping{}, false
		}
		line--
		if len(c.lines[line]) > 0 {
			break
		}
	}
	entries := c.lines[line]
	return c.originalMapping(entries[len(entries)-1])
}

func (c *Consumer) originalMapping(e entry) (OriginalMapping, bool) {
	if !e.mapped() {
		return OriginalMapping{}, false
	}
	m := OriginalMapping{
		OriginalFile:   c.sources[e.sourceID],
		LineNumber:     e.sourceLine + 1,
		ColumnPosition: e.sourceColumn + 1,
	}
	if e.named() {
		m.Identifier = c.names[e.nameID]
	}
	return m, true
}

// GetReverseMapping returns the 0-based generated positions produced from the
// given line of originalFile, as recorded in the map. The column is not used:
// every position of the line is returned. Unknown files and lines yield an
// empty result.
//
// The reverse index is built on the first call. That is not safe for
// concurrent use, see PrepareReverseIndex.
func (c *Consumer) GetReverseMapping(originalFile string, line, column int) []FilePosition {
	c.PrepareReverseIndex()
	return append([]FilePosition(nil), c.reverse.byFile[originalFile][line]...)
}

// PrepareReverseIndex builds the reverse index if it isn't built yet. Once it
// returns, GetReverseMapping may be called concurrently.
func (c *Consumer) PrepareReverseIndex() {
	if c.reverse != nil {
		return
	}
	idx := &reverseIndex{byFile: map[string]map[int][]FilePosition{}}
	for targetLine, entries := range c.lines {
		for _, e := range entries {
			if !e.mapped() || e.sourceLine == unmapped {
				continue
			}
			file := c.sources[e.sourceID]
			lines, ok := idx.byFile[file]
			if !ok {
				lines = map[int][]FilePosition{}
				idx.byFile[file] = lines
			}
			lines[e.sourceLine] = append(lines[e.sourceLine], FilePosition{Line: targetLine, Column: e.column})
		}
	}
	c.reverse = idx
}

// VisitMappings calls visitor for every mapped entry, in generated code order.
// The run of an entry ends where the next entry, mapped or not, starts. The
// last mapped entry is only visited if an entry follows it.
//
// Positions are passed as they are stored in the map: all of them 0-based.
func (c *Consumer) VisitMappings(visitor EntryVisitor) {
	pending := false
	var (
		sourceName, symbolName string
		sourceStart, start     FilePosition
	)
	for i, line := range c.lines {
		for _, e := range line {
			if pending {
				visitor(sourceName, symbolName, sourceStart, start, FilePosition{Line: i, Column: e.column})
				pending = false
			}
			if !e.mapped() {
				continue
			}
			pending = true
			sourceName = c.sources[e.sourceID]
			symbolName = ""
			if e.named() {
				symbolName = c.names[e.nameID]
			}
			sourceStart = FilePosition{Line: e.sourceLine, Column: e.sourceColumn}
			start = FilePosition{Line: i, Column: e.column}
		}
	}
}
