package sourcemap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTraverseMappings(t *testing.T) {
	type seg struct {
		Name       string // Source file of the mapping, empty for gaps.
		Start, End FilePosition
	}
	m := func(name string, start, end FilePosition) *mapping {
		return &mapping{sourceFile: name, startPosition: start, endPosition: end}
	}

	tests := []struct {
		descr    string
		mappings []*mapping
		prefix   FilePosition
		want     []seg
	}{{
		descr: "empty",
	}, {
		descr:    "leading gap",
		mappings: []*mapping{m("a", pos(0, 2), pos(0, 4))},
		want:     []seg{{"", pos(0, 0), pos(0, 2)}, {"a", pos(0, 2), pos(0, 4)}},
	}, {
		descr: "nested",
		mappings: []*mapping{
			m("outer", pos(0, 0), pos(0, 10)),
			m("inner", pos(0, 4), pos(0, 7)),
		},
		want: []seg{
			{"outer", pos(0, 0), pos(0, 4)},
			{"inner", pos(0, 4), pos(0, 7)},
			{"outer", pos(0, 7), pos(0, 10)},
		},
	}, {
		descr: "siblings",
		mappings: []*mapping{
			m("parent", pos(0, 0), pos(2, 0)),
			m("first", pos(0, 2), pos(0, 5)),
			m("second", pos(1, 0), pos(1, 3)),
		},
		want: []seg{
			{"parent", pos(0, 0), pos(0, 2)},
			{"first", pos(0, 2), pos(0, 5)},
			{"parent", pos(0, 5), pos(1, 0)},
			{"second", pos(1, 0), pos(1, 3)},
			{"parent", pos(1, 3), pos(2, 0)},
		},
	}, {
		descr: "covered parent",
		mappings: []*mapping{
			m("parent", pos(0, 0), pos(0, 4)),
			m("child", pos(0, 0), pos(0, 4)),
		},
		want: []seg{{"child", pos(0, 0), pos(0, 4)}},
	}, {
		descr:    "prefix",
		mappings: []*mapping{m("a", pos(0, 1), pos(1, 2))},
		prefix:   pos(1, 3),
		want: []seg{
			{"", pos(0, 0), pos(1, 4)},
			{"a", pos(1, 4), pos(2, 2)},
		},
	}}

	for _, test := range tests {
		t.Run(test.descr, func(t *testing.T) {
			got := []seg{}
			traverseMappings(test.mappings, test.prefix, true, func(s segment) {
				name := ""
				if s.m != nil {
					name = s.m.sourceFile
				}
				got = append(got, seg{name, s.start, s.end})
			})
			if test.want == nil {
				test.want = []seg{}
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Segments differ from expected (-want,+got):\n%s", diff)
			}
		})
	}
}

func TestTraverseDeepNesting(t *testing.T) {
	const depth = 100000
	mappings := make([]*mapping, depth)
	for i := range mappings {
		mappings[i] = &mapping{sourceFile: "a", startPosition: pos(0, i), endPosition: pos(0, 2*depth-i)}
	}

	count := 0
	traverseMappings(mappings, FilePosition{}, true, func(s segment) { count++ })
	// Each level has a segment on both sides of its child, except the
	// innermost one.
	if want := 2*depth - 1; count != want {
		t.Errorf("Got: %d segments. Want: %d.", count, want)
	}
}
