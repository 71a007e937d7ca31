// Package sourcemapx lets code emitters describe source mappings inline, in
// the same stream as the generated code.
//
// An emitter writes an Origin hint before a piece of generated code and an End
// hint after it. Hints nest: every Origin is closed by the next unmatched End,
// so an emitter walking a syntax tree can open a hint when it enters a node
// and close it when it leaves. Hints are marked by the special `\b` (0x08)
// magic byte, followed by a variable-length sequence of bytes, which can be
// extracted from the byte slice using ReadHint() function.
//
// '\b' was chosen as a magic symbol because it would never occur unescaped in
// the generated JavaScript or JSON, other than when explicitly inserted by the
// source mapping hint. See Hint type documentation for the details of the
// encoded format.
//
// Filter type is used to extract the hints from the written code stream and
// pass the resulting ranges to a source map generator. It also ensures that the
// encoded inline hints don't make it into the final output.
package sourcemapx
