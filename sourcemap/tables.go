package sourcemap

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gopherjs/sourcemaps/internal/jsstring"
)

// nameTable assigns sequential ids to strings in the order they are first
// seen.
type nameTable struct {
	ids    map[string]int
	values []string

	// Cache of the last looked up value, consecutive mappings usually come
	// from the same source file.
	last   string
	lastID int
}

func (t *nameTable) id(value string) int {
	if t.values != nil && value == t.last {
		return t.lastID
	}
	id, ok := t.ids[value]
	if !ok {
		if t.ids == nil {
			t.ids = map[string]int{}
		}
		id = len(t.values)
		t.ids[value] = id
		t.values = append(t.values, value)
	}
	t.last, t.lastID = value, id
	return id
}

func (t *nameTable) reset() { *t = nameTable{} }

// appendJSON writes the table as a JSON array of strings.
func (t *nameTable) appendJSON(sb *strings.Builder) {
	sb.WriteByte('[')
	for i, v := range t.values {
		if i != 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(jsstring.Quote(v))
	}
	sb.WriteByte(']')
}

// extensionTable holds "x_" prefixed extension fields in insertion order.
//
// Values are kept opaque: anything encoding/json can marshal is accepted.
// Values parsed from a map are stored as json.RawMessage and written back
// verbatim.
type extensionTable struct {
	keys   []string
	values map[string]any
}

const extensionPrefix = "x_"

func (t *extensionTable) put(name string, value any) error {
	if !strings.HasPrefix(name, extensionPrefix) {
		return formatErrorf(ErrInvalidExtension, "extension %q must start with %q", name, extensionPrefix)
	}
	if t.values == nil {
		t.values = map[string]any{}
	}
	if _, ok := t.values[name]; !ok {
		t.keys = append(t.keys, name)
	}
	t.values[name] = value
	return nil
}

func (t *extensionTable) get(name string) (any, bool) {
	v, ok := t.values[name]
	return v, ok
}

func (t *extensionTable) remove(name string) {
	if _, ok := t.values[name]; !ok {
		return
	}
	delete(t.values, name)
	for i, k := range t.keys {
		if k == name {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

func (t *extensionTable) len() int { return len(t.keys) }

// each calls f for every extension in insertion order.
func (t *extensionTable) each(f func(name string, value any)) {
	for _, k := range t.keys {
		f(k, t.values[k])
	}
}

// asMap returns a copy of the table as a map.
func (t *extensionTable) asMap() map[string]any {
	m := make(map[string]any, len(t.keys))
	t.each(func(name string, value any) { m[name] = value })
	return m
}

// encodeExtension renders an extension value as JSON text. Strings are
// quoted the same way as all other strings in the map.
func encodeExtension(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return jsstring.Quote(v), nil
	case json.RawMessage:
		return string(v), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode extension value %v: %w", value, err)
	}
	return string(b), nil
}
