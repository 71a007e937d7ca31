// Package sourcemap implements revision 3 of the source map format.
//
// A Generator accumulates mappings between ranges of generated code and
// positions in the original sources, and serializes them either as a flat
// source map or as an index map made of sections. A Consumer parses either
// form back and answers lookups in both directions.
//
// Mappings are added to the Generator in pre-order: a range that contains
// another range is added before it. This is the order in which a code
// emitter walking a syntax tree naturally produces them, and it allows the
// Generator to reconstruct nesting and fill the gaps between child ranges
// with their parent in a single pass.
//
// Positions in the generated file are 0-based. Original positions are stored
// exactly as supplied to Generator.AddMapping, and the Consumer reports them
// with one added to both line and column, matching the convention of the
// Closure Compiler tooling this format originates from.
package sourcemap
