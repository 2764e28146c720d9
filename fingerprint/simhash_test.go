package fingerprint

import "testing"

func TestTextDeterministic(t *testing.T) {
	s := "Offline rendering keeps the page exactly as the browser saw it."
	if Text(s) != Text(s) {
		t.Fatal("same text produced different fingerprints")
	}
}

func TestTextIgnoresCaseAndPunctuation(t *testing.T) {
	a := Text("Hello, World! Welcome to the site.")
	b := Text("hello world welcome to the site")
	if a != b {
		t.Errorf("fingerprints differ: %s vs %s", Hex(a), Hex(b))
	}
}

func TestTextEmpty(t *testing.T) {
	for _, in := range []string{"", "   \n\t", "!!! ---"} {
		if fp := Text(in); fp != 0 {
			t.Errorf("Text(%q) = %s, want 0", in, Hex(fp))
		}
	}
}

func TestTextSimilarity(t *testing.T) {
	base := "the quick brown fox jumps over the lazy dog near the river bank today"
	near := "the quick brown fox leaps over the lazy dog near the river bank today"
	far := "quarterly revenue grew while operating costs fell across every region"

	dNear := Distance(Text(base), Text(near))
	dFar := Distance(Text(base), Text(far))
	if dNear >= dFar {
		t.Errorf("near distance %d should be smaller than far distance %d", dNear, dFar)
	}
}

func TestDOMIgnoresText(t *testing.T) {
	a := DOM(`<html><body><div><h1>One</h1><p>first</p><p>x</p></div></body></html>`)
	b := DOM(`<html><body><div><h1>Two</h1><p>second</p><p>y</p></div></body></html>`)
	if a != b {
		t.Errorf("same structure produced %s and %s", Hex(a), Hex(b))
	}
}

func TestDOMShortDocument(t *testing.T) {
	if DOM("") != 0 {
		t.Error("empty document should fingerprint to 0")
	}
	if DOM("<p>hi</p>") == 0 {
		t.Error("single tag document should not fingerprint to 0")
	}
}

func TestDistanceAndSimilar(t *testing.T) {
	tests := []struct {
		a, b uint64
		want int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0, 0b1011, 3},
		{0, ^uint64(0), 64},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%x, %x) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
	if !Similar(0, 0b11, 2) || Similar(0, 0b111, 2) {
		t.Error("Similar threshold is inclusive of the distance")
	}
}

func TestHex(t *testing.T) {
	if got := Hex(0xabc); got != "0000000000000abc" {
		t.Errorf("Hex = %q", got)
	}
}
