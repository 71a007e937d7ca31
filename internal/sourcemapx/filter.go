package sourcemapx

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gopherjs/sourcemaps/sourcemap"
)

// Sink receives complete mappings in pre-order. *sourcemap.Generator
// implements it.
type Sink interface {
	AddMapping(sourceName, symbolName string, sourceStart, start, end sourcemap.FilePosition)
}

// record is a range of the generated code opened by an Origin hint.
type record struct {
	origin     Origin
	start, end sourcemap.FilePosition
}

// Filter implements io.Writer which extracts source map hints from the written
// stream and passes the ranges they delimit to Sink, if it's not nil. Encoded
// hints are always filtered out of the output stream.
//
// A range can only be passed on once it is closed, and ranges must reach the
// sink in the order they were opened. Ranges are therefore held back until
// all of them are closed. Call Close once all code is written to close the
// ranges left open.
type Filter struct {
	Writer io.Writer
	Sink   Sink

	line   int
	column int

	// Ranges in the order they were opened, not yet passed to the sink.
	pending []record
	// Indices of the open ranges in pending, innermost last.
	open []int
}

// Position returns the position in the output the next written byte will
// have.
func (f *Filter) Position() sourcemap.FilePosition {
	return sourcemap.FilePosition{Line: f.line, Column: f.column}
}

func (f *Filter) Write(p []byte) (n int, err error) {
	var n2 int
	for {
		i := FindHint(p)
		w := p
		if i != -1 {
			w = p[:i]
		}

		n2, err = f.Writer.Write(w)
		n += n2
		f.advance(w[:n2])

		if err != nil || i == -1 {
			return
		}
		h, length := ReadHint(p[i:])
		value, err := h.Unpack()
		if err != nil {
			panic(fmt.Errorf("failed to unpack source map hint: %w", err))
		}
		switch value := value.(type) {
		case Origin:
			f.open = append(f.open, len(f.pending))
			f.pending = append(f.pending, record{origin: value, start: f.Position()})
		case End:
			if len(f.open) == 0 {
				panic(fmt.Errorf("unmatched source map end hint at %v", f.Position()))
			}
			f.closeInnermost()
		default:
			panic(fmt.Errorf("unexpected source map hint type: %T", value))
		}
		p = p[i+length:]
		n += length
	}
}

// advance moves the output position past w.
func (f *Filter) advance(w []byte) {
	for {
		i := bytes.IndexByte(w, '\n')
		if i == -1 {
			f.column += len(w)
			return
		}
		f.line++
		f.column = 0
		w = w[i+1:]
	}
}

func (f *Filter) closeInnermost() {
	idx := f.open[len(f.open)-1]
	f.open = f.open[:len(f.open)-1]
	f.pending[idx].end = f.Position()
	if len(f.open) == 0 {
		f.flush()
	}
}

func (f *Filter) flush() {
	if f.Sink != nil {
		for _, r := range f.pending {
			f.Sink.AddMapping(r.origin.File, r.origin.Name, sourcemap.FilePosition{Line: r.origin.Line, Column: r.origin.Column}, r.start, r.end)
		}
	}
	f.pending = f.pending[:0]
}

// Close closes all ranges still open at the current position and passes them
// to the sink. It doesn't close the underlying writer.
func (f *Filter) Close() error {
	for len(f.open) > 0 {
		f.closeInnermost()
	}
	return nil
}
