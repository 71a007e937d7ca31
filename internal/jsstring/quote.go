// Package jsstring quotes strings for embedding into JSON and JavaScript
// text, including inside HTML <script> blocks and XML CDATA sections.
package jsstring

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const hexChars = "0123456789abcdef"

// Quote returns s as a double-quoted JSON string.
//
// Besides the mandatory JSON escapes, the sequences "-->", "]]>", "</script"
// and "<!--" are broken up by \u-escaping their angle bracket, so the result
// can't terminate an enclosing comment, CDATA section or script element while
// staying valid JSON. Every character outside of the printable ASCII range is
// \u-escaped as well.
func Quote(s string) string {
	sb := &strings.Builder{}
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch r {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '>':
			if i >= 2 && (s[i-2:i] == "--" || s[i-2:i] == "]]") {
				appendHex(sb, r)
			} else {
				sb.WriteByte('>')
			}
		case '<':
			rest := s[i+1:]
			if hasPrefixFold(rest, "/script") || strings.HasPrefix(rest, "!--") {
				appendHex(sb, r)
			} else {
				sb.WriteByte('<')
			}
		default:
			if r > 0x1f && r <= 0x7f {
				sb.WriteRune(r)
			} else {
				appendHex(sb, r)
			}
		}
		i += size
	}
	sb.WriteByte('"')
	return sb.String()
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func appendHex(sb *strings.Builder, r rune) {
	if r >= 0x10000 && r <= utf8.MaxRune {
		hi, lo := utf16.EncodeRune(r)
		appendHex(sb, hi)
		appendHex(sb, lo)
		return
	}
	sb.WriteString(`\u`)
	sb.WriteByte(hexChars[(r>>12)&0xf])
	sb.WriteByte(hexChars[(r>>8)&0xf])
	sb.WriteByte(hexChars[(r>>4)&0xf])
	sb.WriteByte(hexChars[r&0xf])
}
