package embedding

import (
	"errors"
	"math"
	"testing"

	"github.com/iammorganparry/clive/apps/semcache/internal/lexicon"
	"github.com/iammorganparry/clive/apps/semcache/internal/search"
)

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(0, nil)

	t.Run("defaults", func(t *testing.T) {
		if e.Dim() != DefaultDimension {
			t.Fatalf("expected dim %d, got %d", DefaultDimension, e.Dim())
		}
	})

	t.Run("deterministic and bit-identical", func(t *testing.T) {
		a, err := e.Embed("la luz del alma respira en el silencio")
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		b, _ := NewHashEmbedder(0, nil).Embed("la luz del alma respira en el silencio")
		for i := range a {
			if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
				t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
			}
		}
	})

	t.Run("unit length", func(t *testing.T) {
		v, _ := e.Embed("the mind dreams of an infinite night")
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Fatalf("expected unit vector, squared norm %f", sum)
		}
	})

	t.Run("trivial punctuation does not change the vector", func(t *testing.T) {
		a, _ := e.Embed("la luz del alma respira en el silencio")
		b, _ := e.Embed("la luz del alma respira en el silencio.")
		if sim := search.CosineSimilarity(a, b); sim < 0.9999 {
			t.Fatalf("expected identical direction, got %f", sim)
		}
	})

	t.Run("unrelated texts are far apart", func(t *testing.T) {
		a, _ := e.Embed("la luz del alma respira en el silencio")
		b, _ := e.Embed("quarterly revenue figures exceeded analyst projections")
		if sim := search.CosineSimilarity(a, b); sim > 0.5 {
			t.Fatalf("expected low similarity, got %f", sim)
		}
	})

	t.Run("symbol-only text has no signal", func(t *testing.T) {
		_, err := e.Embed("✨ 🌙 ... ---")
		if !errors.Is(err, ErrNoSignal) {
			t.Fatalf("expected ErrNoSignal, got %v", err)
		}
	})

	t.Run("lexicon weight changes the vector", func(t *testing.T) {
		lex, _ := lexicon.New([]lexicon.Category{{Name: "x", Importance: 1, Weight: 5, Keywords: []string{"ventana"}}})
		a, _ := NewHashEmbedder(0, lex).Embed("ventana abierta")
		b, _ := e.Embed("ventana abierta")
		if search.CosineSimilarity(a, b) > 0.9999 {
			t.Fatal("expected keyword weight to change the direction")
		}
	})
}

func TestContentHash(t *testing.T) {
	got := ContentHash("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if ContentHash("abc.") == got {
		t.Fatal("expected punctuation to change the exact hash")
	}
}

func TestFingerprint(t *testing.T) {
	a := NewFingerprint("✨ 🌙 ✨ la ~~~")
	if _, ok := a["la"]; ok {
		t.Fatal("stopword kept in fingerprint")
	}
	if len(a) != 3 {
		t.Fatalf("expected 3 tokens, got %v", a)
	}

	b := NewFingerprint("✨ 🌙 ***")
	if got := a.Overlap(b); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected overlap 0.5, got %f", got)
	}
	if got := (Fingerprint{}).Overlap(Fingerprint{}); got != 0 {
		t.Fatalf("expected 0 for empty sets, got %f", got)
	}

	long := NewFingerprint("a1 a2 a3 a4 a5 a6 a7 a8 a9 a10 a11 a12 a13 a14 a1")
	if len(long) != FingerprintSize {
		t.Fatalf("expected %d tokens, got %d", FingerprintSize, len(long))
	}
	if _, ok := long["a1"]; !ok {
		t.Fatal("most frequent token must be kept")
	}
}
