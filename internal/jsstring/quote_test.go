package jsstring

import (
	"encoding/json"
	"testing"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		descr string
		in    string
		want  string
	}{{
		descr: "empty",
		in:    "",
		want:  `""`,
	}, {
		descr: "plain",
		in:    "foo.js",
		want:  `"foo.js"`,
	}, {
		descr: "control characters",
		in:    "a\nb\rc\td",
		want:  `"a\nb\rc\td"`,
	}, {
		descr: "quotes and backslash",
		in:    `say "hi" it's c:\dir`,
		want:  `"say \"hi\" it's c:\\dir"`,
	}, {
		descr: "html comment end",
		in:    "x-->y",
		want:  `"x--\u003ey"`,
	}, {
		descr: "cdata end",
		in:    "]]>",
		want:  `"]]\u003e"`,
	}, {
		descr: "lone greater than",
		in:    "a>b",
		want:  `"a>b"`,
	}, {
		descr: "script end",
		in:    "</SCRIPT>",
		want:  `"\u003c/SCRIPT>"`,
	}, {
		descr: "html comment start",
		in:    "<!-- x",
		want:  `"\u003c!-- x"`,
	}, {
		descr: "non ascii",
		in:    "héllo",
		want:  `"h\u00e9llo"`,
	}, {
		descr: "supplementary plane",
		in:    "😀",
		want:  `"\ud83d\ude00"`,
	}, {
		descr: "low control",
		in:    "\x01",
		want:  `"\u0001"`,
	}}

	for _, test := range tests {
		t.Run(test.descr, func(t *testing.T) {
			got := Quote(test.in)
			if got != test.want {
				t.Errorf("Got: Quote(%q) = %s. Want: %s.", test.in, got, test.want)
			}
		})
	}
}

func TestQuoteIsValidJSON(t *testing.T) {
	for _, s := range []string{"plain", "a\"b", "tab\there", "héllo 😀", "\x01\x02", "a-->b", "</script><!--", "]]>"} {
		var got string
		if err := json.Unmarshal([]byte(Quote(s)), &got); err != nil {
			t.Errorf("Got: json.Unmarshal(Quote(%q)) returned error: %s. Want: no error.", s, err)
			continue
		}
		if got != s {
			t.Errorf("Got: %q after JSON round trip. Want: %q.", got, s)
		}
	}
}
