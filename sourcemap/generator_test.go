package sourcemap

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gopherjs/sourcemaps/internal/testingx"
)

func pos(line, column int) FilePosition { return FilePosition{Line: line, Column: column} }

// addFixtureMappings adds mappings of a generated file built from two
// sources. The first mapping contains the second one, the fourth one ends
// where the fifth one starts.
func addFixtureMappings(g *Generator) {
	g.AddMapping("a.js", "foo", pos(0, 0), pos(0, 0), pos(0, 10))
	g.AddMapping("a.js", "bar", pos(1, 4), pos(0, 4), pos(0, 7))
	g.AddMapping("b.js", "foo", pos(2, 2), pos(1, 0), pos(1, 5))
	g.AddMapping("b.js", "", pos(3, 0), pos(1, 6), pos(2, 3))
	g.AddMapping("a.js", "baz", pos(5, 1), pos(2, 3), pos(2, 8))
}

func appendToString(t *testing.T, g *Generator, name string) string {
	t.Helper()
	sb := &strings.Builder{}
	if _, err := g.AppendTo(sb, name); err != nil {
		t.Fatalf("Got: AppendTo() returned error: %s. Want: no error.", err)
	}
	return sb.String()
}

func TestGeneratorFixture(t *testing.T) {
	fixtures := testingx.Archive(t, "testdata/generator.txtar")

	t.Run("source root", func(t *testing.T) {
		g := NewGenerator()
		g.SetSourceRoot("http://example.com/src/")
		addFixtureMappings(g)

		sb := &strings.Builder{}
		maxLine, err := g.AppendTo(sb, "min.js")
		if err != nil {
			t.Fatalf("Got: AppendTo() returned error: %s. Want: no error.", err)
		}
		if maxLine != 2 {
			t.Errorf("Got: AppendTo() returned max line %d. Want: 2.", maxLine)
		}
		want := testingx.ArchiveFile(t, fixtures, "min.js.map")
		if diff := cmp.Diff(want, sb.String()); diff != "" {
			t.Errorf("Generated source map differs from expected (-want,+got):\n%s", diff)
		}

		var parsed struct {
			Version    int      `json:"version"`
			File       string   `json:"file"`
			SourceRoot string   `json:"sourceRoot"`
			Sources    []string `json:"sources"`
			Names      []string `json:"names"`
		}
		if err := json.Unmarshal([]byte(sb.String()), &parsed); err != nil {
			t.Fatalf("Got: generated source map is not valid JSON: %s. Want: no error.", err)
		}
		if parsed.Version != 3 || parsed.File != "min.js" || parsed.SourceRoot != "http://example.com/src/" {
			t.Errorf("Got: version=%d file=%q sourceRoot=%q. Want: version=3 file=\"min.js\" sourceRoot=\"http://example.com/src/\".",
				parsed.Version, parsed.File, parsed.SourceRoot)
		}
		if diff := cmp.Diff([]string{"foo", "bar", "baz"}, parsed.Names); diff != "" {
			t.Errorf("Names differ from expected (-want,+got):\n%s", diff)
		}
	})

	t.Run("wrapper prefix", func(t *testing.T) {
		g := NewGenerator()
		// The prefix may be set after the mappings are added.
		addFixtureMappings(g)
		g.SetWrapperPrefix("(function() {\n// ")

		got := appendToString(t, g, "min.js")
		want := testingx.ArchiveFile(t, fixtures, "prefixed.js.map")
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Generated source map differs from expected (-want,+got):\n%s", diff)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		g := NewGenerator()
		addFixtureMappings(g)
		first := appendToString(t, g, "min.js")
		second := appendToString(t, g, "min.js")
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Second serialization differs from the first one (-first,+second):\n%s", diff)
		}
	})
}

func TestGeneratorEmpty(t *testing.T) {
	g := NewGenerator()
	// Ignored: no source name or negative source line.
	g.AddMapping("", "foo", pos(0, 0), pos(0, 0), pos(0, 1))
	g.AddMapping("a.js", "foo", pos(-1, 0), pos(0, 1), pos(0, 2))

	got := appendToString(t, g, "out.js")
	want := "{\n" +
		"\"version\":3,\n" +
		"\"file\":\"out.js\",\n" +
		"\"lineCount\":1,\n" +
		"\"mappings\":\";\",\n" +
		"\"sources\":[],\n" +
		"\"names\":[]\n" +
		"}\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Generated source map differs from expected (-want,+got):\n%s", diff)
	}
}

func TestGeneratorExtensions(t *testing.T) {
	g := NewGenerator()
	g.SetSourceRoot("/root/")
	g.AddMapping("a.js", "", pos(0, 0), pos(0, 0), pos(0, 3))

	if err := g.AddExtension("org_field", 1); !errors.Is(err, ErrInvalidExtension) {
		t.Errorf("Got: AddExtension(\"org_field\") returned error %v. Want: %v.", err, ErrInvalidExtension)
	}
	var fe *FormatError
	if err := g.AddExtension("org_field", 1); !errors.As(err, &fe) {
		t.Errorf("Got: AddExtension(\"org_field\") returned error of type %T. Want: *FormatError.", err)
	}

	for _, ext := range []struct {
		name  string
		value any
	}{
		{"x_org", "value"},
		{"x_number", 42},
		{"x_raw", json.RawMessage(`{"a":[1,2]}`)},
		{"x_removed", true},
	} {
		if err := g.AddExtension(ext.name, ext.value); err != nil {
			t.Fatalf("Got: AddExtension(%q) returned error: %s. Want: no error.", ext.name, err)
		}
	}
	g.RemoveExtension("x_removed")
	g.RemoveExtension("x_never_added")

	if g.HasExtension("x_removed") {
		t.Errorf("Got: HasExtension(\"x_removed\") = true. Want: false.")
	}
	if v, ok := g.Extension("x_number"); !ok || v != 42 {
		t.Errorf("Got: Extension(\"x_number\") = %v, %v. Want: 42, true.", v, ok)
	}

	got := appendToString(t, g, "out.js")
	want := "{\n" +
		"\"version\":3,\n" +
		"\"file\":\"out.js\",\n" +
		"\"lineCount\":1,\n" +
		"\"sourceRoot\":\"/root/\",\n" +
		"\"mappings\":\"AAAA;\",\n" +
		"\"sources\":[\"a.js\"],\n" +
		"\"names\":[],\n" +
		"\"x_org\":\"value\",\n" +
		"\"x_number\":42,\n" +
		"\"x_raw\":{\"a\":[1,2]}\n" +
		"}\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Generated source map differs from expected (-want,+got):\n%s", diff)
	}
}

func TestGeneratorOrdering(t *testing.T) {
	defer func() {
		err, ok := recover().(error)
		if !ok {
			t.Fatalf("Got: AddMapping() didn't panic with an error. Want: panic on out of order mapping.")
		}
		if !strings.Contains(err.Error(), "incorrect source mappings order") {
			t.Errorf("Got: panic %q. Want: mapping order error.", err)
		}
	}()
	g := NewGenerator()
	g.AddMapping("a.js", "", pos(0, 0), pos(0, 5), pos(0, 8))
	g.AddMapping("a.js", "", pos(0, 0), pos(0, 3), pos(0, 4))
}

func TestGeneratorSameStart(t *testing.T) {
	// A mapping starting at the same position as its predecessor is in order,
	// and fully covers it.
	g := NewGenerator()
	g.AddMapping("a.js", "", pos(0, 0), pos(0, 0), pos(0, 4))
	g.AddMapping("b.js", "", pos(0, 0), pos(0, 0), pos(0, 4))

	got := appendToString(t, g, "out.js")
	if !strings.Contains(got, "\"sources\":[\"b.js\"]") {
		t.Errorf("Got: %s. Want: only the inner mapping's source in the sources table.", got)
	}
}

func TestGeneratorStartingPosition(t *testing.T) {
	g := NewGenerator()
	g.AddMapping("a.js", "", pos(0, 0), pos(0, 0), pos(0, 2))
	g.SetStartingPosition(1, 3)
	g.AddMapping("b.js", "", pos(4, 0), pos(0, 0), pos(0, 2))
	g.AddMapping("b.js", "", pos(5, 0), pos(1, 0), pos(1, 2))

	c := &Consumer{}
	if err := c.Parse(appendToString(t, g, "out.js"), nil); err != nil {
		t.Fatalf("Got: Parse() returned error: %s. Want: no error.", err)
	}

	tests := []struct {
		line, column int
		want         OriginalMapping
	}{
		{line: 1, column: 1, want: OriginalMapping{OriginalFile: "a.js", LineNumber: 1, ColumnPosition: 1}},
		// Column offset applies to the first line of the appended code.
		{line: 2, column: 4, want: OriginalMapping{OriginalFile: "b.js", LineNumber: 5, ColumnPosition: 1}},
		// Only the line offset applies to the following lines.
		{line: 3, column: 1, want: OriginalMapping{OriginalFile: "b.js", LineNumber: 6, ColumnPosition: 1}},
	}
	for _, test := range tests {
		got, ok := c.GetMappingForLine(test.line, test.column)
		if !ok {
			t.Errorf("Got: GetMappingForLine(%d, %d) found no mapping. Want: %v.", test.line, test.column, test.want)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("GetMappingForLine(%d, %d) differs from expected (-want,+got):\n%s", test.line, test.column, diff)
		}
	}
}

func TestGeneratorReset(t *testing.T) {
	g := NewGenerator()
	g.SetSourceRoot("/src/")
	g.SetWrapperPrefix("\n\n")
	g.SetStartingPosition(3, 3)
	addFixtureMappings(g)
	g.Reset()
	g.AddMapping("c.js", "", pos(0, 0), pos(0, 0), pos(0, 1))

	got := appendToString(t, g, "out.js")
	want := "{\n" +
		"\"version\":3,\n" +
		"\"file\":\"out.js\",\n" +
		"\"lineCount\":1,\n" +
		"\"sourceRoot\":\"/src/\",\n" +
		"\"mappings\":\"AAAA;\",\n" +
		"\"sources\":[\"c.js\"],\n" +
		"\"names\":[]\n" +
		"}\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Generated source map differs from expected (-want,+got):\n%s", diff)
	}
}

func TestGeneratorValidate(t *testing.T) {
	build := func(validate bool) *Generator {
		g := NewGenerator()
		g.Validate(validate)
		// Ends before it starts.
		g.AddMapping("a.js", "", pos(0, 0), pos(0, 5), pos(0, 2))
		return g
	}

	t.Run("disabled", func(t *testing.T) {
		appendToString(t, build(false), "out.js")
	})

	t.Run("enabled", func(t *testing.T) {
		defer func() {
			if _, ok := recover().(error); !ok {
				t.Errorf("Got: AppendTo() didn't panic. Want: validation failure for an inverted mapping.")
			}
		}()
		appendToString(t, build(true), "out.js")
	})
}

func TestAppendIndexMapTo(t *testing.T) {
	g := NewGenerator()
	sb := &strings.Builder{}
	err := g.AppendIndexMapTo(sb, "out.js", []Section{
		SectionForURL("a.js.map", 0, 0),
		SectionForMap("{}", 2, 4),
	})
	if err != nil {
		t.Fatalf("Got: AppendIndexMapTo() returned error: %s. Want: no error.", err)
	}
	want := "{\n" +
		"\"version\":3,\n" +
		"\"file\":\"out.js\",\n" +
		"\"sections\":[\n" +
		"{\n\"offset\":{\n\"line\":0,\n\"column\":0\n},\n\"url\":\"a.js.map\"\n},\n" +
		"{\n\"offset\":{\n\"line\":2,\n\"column\":4\n},\n\"map\":{}\n}\n" +
		"]\n" +
		"}\n"
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("Generated index map differs from expected (-want,+got):\n%s", diff)
	}

	err = g.AppendIndexMapTo(sb, "out.js", []Section{{Type: SectionType(42)}})
	if err == nil {
		t.Errorf("Got: AppendIndexMapTo() with an unknown section type succeeded. Want: error.")
	}
}

func TestMergeMapSection(t *testing.T) {
	// Each section ends with a mapping that isn't closed by a following entry
	// and is therefore lost by the merge.
	sectionA := NewGenerator()
	sectionA.AddMapping("a.js", "foo", pos(0, 0), pos(0, 0), pos(0, 5))
	sectionA.AddMapping("a.js", "", pos(1, 0), pos(0, 5), pos(1, 2))
	sectionA.AddMapping("a.js", "", pos(2, 0), pos(1, 2), pos(1, 4))
	sectionB := NewGenerator()
	sectionB.AddMapping("b.js", "bar", pos(0, 0), pos(0, 0), pos(0, 3))
	sectionB.AddMapping("b.js", "", pos(0, 3), pos(0, 3), pos(0, 6))
	sectionB.AddMapping("b.js", "", pos(0, 6), pos(0, 6), pos(0, 8))

	direct := NewGenerator()
	direct.AddMapping("a.js", "foo", pos(0, 0), pos(0, 0), pos(0, 5))
	direct.AddMapping("a.js", "", pos(1, 0), pos(0, 5), pos(1, 2))
	direct.AddMapping("b.js", "bar", pos(0, 0), pos(2, 4), pos(2, 7))
	direct.AddMapping("b.js", "", pos(0, 3), pos(2, 7), pos(2, 10))
	wantText := appendToString(t, direct, "out.js")

	mapA := appendToString(t, sectionA, "a.out.js")
	mapB := appendToString(t, sectionB, "b.out.js")

	t.Run("merge", func(t *testing.T) {
		g := NewGenerator()
		if err := g.MergeMapSection(0, 0, mapA); err != nil {
			t.Fatalf("Got: MergeMapSection() returned error: %s. Want: no error.", err)
		}
		if err := g.MergeMapSection(2, 4, mapB); err != nil {
			t.Fatalf("Got: MergeMapSection() returned error: %s. Want: no error.", err)
		}
		if diff := cmp.Diff(wantText, appendToString(t, g, "out.js")); diff != "" {
			t.Errorf("Merged source map differs from direct encoding (-want,+got):\n%s", diff)
		}
	})

	t.Run("index map", func(t *testing.T) {
		sb := &strings.Builder{}
		err := NewGenerator().AppendIndexMapTo(sb, "out.js", []Section{
			SectionForMap(mapA, 0, 0),
			SectionForURL("b.out.js.map", 2, 4),
		})
		if err != nil {
			t.Fatalf("Got: AppendIndexMapTo() returned error: %s. Want: no error.", err)
		}

		merged := &Consumer{}
		if err := merged.Parse(sb.String(), MapSupplier{"b.out.js.map": mapB}); err != nil {
			t.Fatalf("Got: Parse(index map) returned error: %s. Want: no error.", err)
		}
		want := &Consumer{}
		if err := want.Parse(wantText, nil); err != nil {
			t.Fatalf("Got: Parse(direct map) returned error: %s. Want: no error.", err)
		}

		for line := 1; line <= 4; line++ {
			for column := 1; column <= 12; column++ {
				gotMapping, gotOK := merged.GetMappingForLine(line, column)
				wantMapping, wantOK := want.GetMappingForLine(line, column)
				if gotOK != wantOK || gotMapping != wantMapping {
					t.Errorf("Got: GetMappingForLine(%d, %d) = %v, %v. Want: %v, %v.", line, column, gotMapping, gotOK, wantMapping, wantOK)
				}
			}
		}
		got, ok := merged.GetMappingForLine(3, 5)
		if wantMapping := (OriginalMapping{OriginalFile: "b.js", LineNumber: 1, ColumnPosition: 1, Identifier: "bar"}); !ok || got != wantMapping {
			t.Errorf("Got: GetMappingForLine(3, 5) = %v, %v. Want: %v, true.", got, ok, wantMapping)
		}
	})

	t.Run("out of order", func(t *testing.T) {
		g := NewGenerator()
		if err := g.MergeMapSection(2, 4, mapB); err != nil {
			t.Fatalf("Got: MergeMapSection() returned error: %s. Want: no error.", err)
		}
		err := g.MergeMapSection(0, 0, mapA)
		if !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Got: MergeMapSection() before the previous section returned %v. Want: %v.", err, ErrInvalidFormat)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		g := NewGenerator()
		var fe *FormatError
		if err := g.MergeMapSection(0, 0, "{"); !errors.As(err, &fe) {
			t.Errorf("Got: MergeMapSection(malformed) returned %v. Want: *FormatError.", err)
		}
	})
}

func TestMergeMapSectionWithAction(t *testing.T) {
	section := NewGenerator()
	section.AddMapping("a.js", "", pos(0, 0), pos(0, 0), pos(0, 1))
	section.AddMapping("a.js", "", pos(0, 1), pos(0, 1), pos(0, 2))
	if err := section.AddExtension("x_count", 2); err != nil {
		t.Fatalf("Got: AddExtension() returned error: %s. Want: no error.", err)
	}
	if err := section.AddExtension("x_new", "fresh"); err != nil {
		t.Fatalf("Got: AddExtension() returned error: %s. Want: no error.", err)
	}
	contents := appendToString(t, section, "section.js")

	t.Run("without action", func(t *testing.T) {
		g := NewGenerator()
		if err := g.MergeMapSection(0, 0, contents); err != nil {
			t.Fatalf("Got: MergeMapSection() returned error: %s. Want: no error.", err)
		}
		if g.HasExtension("x_count") || g.HasExtension("x_new") {
			t.Errorf("Got: section extensions merged. Want: extensions ignored without a merge action.")
		}
	})

	t.Run("with action", func(t *testing.T) {
		g := NewGenerator()
		if err := g.AddExtension("x_count", 1); err != nil {
			t.Fatalf("Got: AddExtension() returned error: %s. Want: no error.", err)
		}
		var conflicts []string
		action := func(key string, current, incoming any) any {
			conflicts = append(conflicts, key)
			return []any{current, incoming}
		}
		if err := g.MergeMapSectionWithAction(0, 0, contents, action); err != nil {
			t.Fatalf("Got: MergeMapSectionWithAction() returned error: %s. Want: no error.", err)
		}
		if diff := cmp.Diff([]string{"x_count"}, conflicts); diff != "" {
			t.Errorf("Merge action calls differ from expected (-want,+got):\n%s", diff)
		}

		got := appendToString(t, g, "out.js")
		for _, want := range []string{`"x_count":[1,2]`, `"x_new":"fresh"`} {
			if !strings.Contains(got, want) {
				t.Errorf("Got: %s. Want: %s in the merged map.", got, want)
			}
		}
	})
}

func TestNewGeneratorForFormat(t *testing.T) {
	for _, f := range []Format{FormatDefault, FormatV3} {
		if g := NewGeneratorForFormat(f); g == nil {
			t.Errorf("Got: NewGeneratorForFormat(%v) = nil. Want: generator.", f)
		}
	}

	defer func() {
		if recover() == nil {
			t.Errorf("Got: NewGeneratorForFormat(Format(42)) didn't panic. Want: panic.")
		}
	}()
	NewGeneratorForFormat(Format(42))
}
