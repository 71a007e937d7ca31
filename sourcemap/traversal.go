package sourcemap

import "fmt"

const unmapped = -1

// mapping from a range of the generated code to a position in an original
// source.
type mapping struct {
	// A sequential id among used mappings, assigned on serialization.
	id int

	sourceFile string
	// The position of the code in the input source file, as supplied by the
	// caller.
	originalPosition FilePosition
	// Range of the generated code this mapping represents, 0-based and end
	// exclusive.
	startPosition FilePosition
	endPosition   FilePosition
	// The original name of the token at this position, if hasName.
	originalName string
	hasName      bool

	// Whether the mapping is visited by the traversal and thus makes it into
	// the serialized map.
	used bool
}

// segment is a contiguous run of generated code attributed to the innermost
// mapping covering it, or to nil where no mapping covers it.
type segment struct {
	m          *mapping
	start, end FilePosition
}

// traversal rebuilds the nesting of a pre-order list of mappings and turns it
// into a flat sequence of segments.
type traversal struct {
	// Offset of the wrapper prefix, applied to every emitted position.
	prefix   FilePosition
	validate bool

	// The last position emitted.
	cursor FilePosition
	visit  func(segment)
}

// traverseMappings visits every segment of the given mappings in generated
// code order. Unmapped gaps before a mapping are visited with a nil mapping,
// mappings that end up fully covered by their children are not visited.
//
// The mapping list must be ordered as a pre-order traversal: any mapping that
// contains another one comes first. The positions then carry enough
// information to rebuild the stack of open mappings, which makes the whole
// walk O(n). The stack is explicit, so arbitrarily deep nesting is fine.
func traverseMappings(mappings []*mapping, prefix FilePosition, validate bool, visit func(segment)) {
	t := &traversal{prefix: prefix, validate: validate, visit: visit}
	stack := make([]*mapping, 0, 16)
	for _, m := range mappings {
		if validate && m.endPosition.Less(m.startPosition) {
			panic(fmt.Errorf("mapping for %s ends at %v before it starts at %v", m.sourceFile, m.endPosition, m.startPosition))
		}
		// Find the closest ancestor of the current mapping. Overlapping
		// mappings are ancestors, non-overlapping ones are siblings (or
		// cousins) and are closed in reverse order of their appearance.
		for len(stack) > 0 && !overlaps(stack[len(stack)-1], m) {
			previous := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			t.closeMapping(previous)
		}

		// Any gap between the cursor and the start of the current mapping
		// belongs to the parent.
		var parent *mapping
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		t.fillParent(parent, m)

		stack = append(stack, m)
	}

	// No more children, close the remaining mappings in reverse order.
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.closeMapping(m)
	}
}

// overlaps reports whether m1 doesn't end before m2 starts. Prefix adjustment
// doesn't change relative order, so raw positions are compared.
func overlaps(m1, m2 *mapping) bool {
	return m1.endPosition.Compare(m2.startPosition) >= 0
}

func (t *traversal) adjust(p FilePosition) FilePosition {
	if p.Line == 0 {
		// Only the first line shares its columns with the prefix.
		p.Column += t.prefix.Column
	}
	p.Line += t.prefix.Line
	return p
}

// closeMapping emits whatever remains of m between the cursor and its end.
func (t *traversal) closeMapping(m *mapping) {
	next := t.adjust(m.endPosition)
	if t.cursor.Less(next) {
		t.emit(m, next)
	}
}

// fillParent emits the gap between the cursor and the start of m, attributed
// to parent.
func (t *traversal) fillParent(parent, m *mapping) {
	next := t.adjust(m.startPosition)
	if next.Less(t.cursor) {
		panic(fmt.Errorf("incorrect source mappings order: cursor at %v is past the start of the next mapping at %v", t.cursor, next))
	}
	if t.cursor.Less(next) {
		t.emit(parent, next)
	}
}

func (t *traversal) emit(m *mapping, next FilePosition) {
	if t.validate && !t.cursor.Less(next) {
		panic(fmt.Errorf("empty or backwards segment from %v to %v", t.cursor, next))
	}
	t.visit(segment{m: m, start: t.cursor, end: next})
	t.cursor = next
}
