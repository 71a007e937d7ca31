// Package concat joins generated files into a single output and describes the
// result with an index source map, one section per joined file.
package concat

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gopherjs/sourcemaps/internal/sourcemapx"
	"github.com/gopherjs/sourcemaps/sourcemap"
)

var _ io.Writer = (*Writer)(nil)

// Writer writes generated files one after another to the underlying writer
// and records where each of them starts.
type Writer struct {
	out      io.Writer
	line     int
	column   int
	sections []sourcemap.Section
}

// New returns a Writer appending to out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Position returns the 0-based position the next written byte will have in
// the output.
func (w *Writer) Position() sourcemap.FilePosition {
	return sourcemap.FilePosition{Line: w.line, Column: w.column}
}

// Sections returns the index map sections recorded so far.
func (w *Writer) Sections() []sourcemap.Section {
	return append([]sourcemap.Section(nil), w.sections...)
}

// Write writes p to the output without recording a section for it, e.g. for
// a wrapper around the joined files.
func (w *Writer) Write(p []byte) (n int, err error) {
	n, err = w.out.Write(p)
	w.advance(p[:n])
	return n, err
}

func (w *Writer) advance(p []byte) {
	for {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.column += len(p)
			return
		}
		w.line++
		w.column = 0
		p = p[i+1:]
	}
}

// AddURL appends code whose source map is available at url.
func (w *Writer) AddURL(code, url string) error {
	return w.add(code, sourcemap.SectionForURL(url, w.line, w.column))
}

// AddMap appends code described by the given source map contents, which are
// embedded into the index map.
func (w *Writer) AddMap(code, contents string) error {
	return w.add(code, sourcemap.SectionForMap(contents, w.line, w.column))
}

func (w *Writer) add(code string, section sourcemap.Section) error {
	if _, err := io.WriteString(w, code); err != nil {
		return fmt.Errorf("failed to write code for section %d: %w", len(w.sections), err)
	}
	w.sections = append(w.sections, section)
	return nil
}

// AddIdentity appends code that has no source map of its own, mapping each
// non-empty line of it to the start of the same line of sourceName.
func (w *Writer) AddIdentity(code, sourceName string) error {
	start := w.Position()
	g := sourcemap.NewGenerator()
	filter := &sourcemapx.Filter{Writer: w, Sink: g}

	for i, line := range strings.SplitAfter(code, "\n") {
		text := strings.TrimSuffix(line, "\n")
		if text == "" {
			if _, err := io.WriteString(filter, line); err != nil {
				return err
			}
			continue
		}
		hinted := sourcemapx.EncodeHint(sourcemapx.Origin{File: sourceName, Line: i}) +
			text + sourcemapx.EncodeHint(sourcemapx.End{}) + line[len(text):]
		if _, err := io.WriteString(filter, hinted); err != nil {
			return fmt.Errorf("failed to write code for %s: %w", sourceName, err)
		}
	}
	if err := filter.Close(); err != nil {
		return err
	}

	var sb strings.Builder
	if _, err := g.AppendTo(&sb, sourceName); err != nil {
		return err
	}
	w.sections = append(w.sections, sourcemap.SectionForMap(sb.String(), start.Line, start.Column))
	return nil
}

// WriteIndexMap writes the index map of everything added so far for the
// generated file name.
func (w *Writer) WriteIndexMap(out io.Writer, name string) error {
	return sourcemap.NewGenerator().AppendIndexMapTo(out, name, w.sections)
}
