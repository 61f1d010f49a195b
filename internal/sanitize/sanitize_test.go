package sanitize

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "la luz del alma", "la luz del alma"},
		{"whitespace collapsed", "  la\tluz \n\n del   alma ", "la luz del alma"},
		{"private block removed", "visible <private>api key 123</private> text", "visible text"},
		{"multiline private block", "a <private>\nsecret\nlines\n</private> b", "a b"},
		{"script and style removed", "<p>hola</p><script>alert(1)</script><style>p{}</style>mundo", "hola mundo"},
		{"tags stripped", `<div class="x">el <b>silencio</b></div>`, "el silencio"},
		{"entities unescaped", "sueño &amp; vida &lt;3", "sueño & vida <3"},
		{"case-insensitive blocks", "x <SCRIPT>bad()</SCRIPT> y", "x y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Fatalf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty("<private>everything</private>  ") {
		t.Fatal("expected private-only content to be empty")
	}
	if !IsEmpty("<br/><hr>") {
		t.Fatal("expected markup-only content to be empty")
	}
	if IsEmpty("<private>x</private> keep") {
		t.Fatal("expected remaining text")
	}
}

func TestStripPrivateTags(t *testing.T) {
	if got := StripPrivateTags("<private>a</private> b <private>c</private>"); got != "b" {
		t.Fatalf("got %q", got)
	}
}
