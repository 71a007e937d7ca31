package sourcemap

import (
	"fmt"
	"sort"
)

// SectionType tells how the contents of an index map section are provided.
type SectionType int

const (
	// SectionURL sections reference their map by url.
	SectionURL SectionType = iota
	// SectionMap sections embed their map inline.
	SectionMap
)

func (t SectionType) String() string {
	switch t {
	case SectionURL:
		return "url"
	case SectionMap:
		return "map"
	default:
		return fmt.Sprintf("SectionType(%d)", int(t))
	}
}

// Section is a part of an index map: a source map that applies to the
// generated file starting at the given offset.
type Section struct {
	Type SectionType
	// Value is either the url of the section map, or the map itself.
	Value string
	// Line and Column are the 0-based offset of the section in the generated
	// file.
	Line   int
	Column int
}

// SectionForURL returns a section referencing the map at url.
func SectionForURL(url string, line, column int) Section {
	return Section{Type: SectionURL, Value: url, Line: line, Column: column}
}

// SectionForMap returns a section embedding the given map contents.
func SectionForMap(contents string, line, column int) Section {
	return Section{Type: SectionMap, Value: contents, Line: line, Column: column}
}

// Supplier resolves the url of an index map section into the map contents.
type Supplier interface {
	SourceMap(url string) (string, error)
}

// SupplierFunc adapts a function to the Supplier interface.
type SupplierFunc func(url string) (string, error)

// SourceMap implements Supplier.
func (f SupplierFunc) SourceMap(url string) (string, error) { return f(url) }

// MapSupplier is a Supplier serving maps from memory, keyed by url.
type MapSupplier map[string]string

// SourceMap implements Supplier.
func (s MapSupplier) SourceMap(url string) (string, error) {
	contents, ok := s[url]
	if !ok {
		return "", fmt.Errorf("no source map for url %q among %v", url, s.urls())
	}
	return contents, nil
}

func (s MapSupplier) urls() []string {
	urls := make([]string, 0, len(s))
	for u := range s {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// noSupplier is used when the caller didn't provide any: it resolves nothing.
type noSupplier struct{}

func (noSupplier) SourceMap(url string) (string, error) {
	return "", fmt.Errorf("no section supplier configured")
}
