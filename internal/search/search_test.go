package search

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0.5, 0.3}, []float32{1, 0.5, 0.3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CosineSimilarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-6 {
				t.Fatalf("got %f, want %f", got, tc.want)
			}
		})
	}
}

func TestVectorBytes(t *testing.T) {
	v := []float32{0.25, -1, 3.5}
	got := BytesToFloat32(Float32ToBytes(v))
	for i := range v {
		if got[i] != v[i] {
			t.Fatalf("index %d: got %v want %v", i, got[i], v[i])
		}
	}
	if BytesToFloat32([]byte{1, 2, 3}) != nil {
		t.Fatal("expected nil for misaligned input")
	}
	if !IsZero(make([]float32, 4)) || IsZero(v) {
		t.Fatal("IsZero misreported")
	}
}

func TestTopK(t *testing.T) {
	type doc struct {
		id  string
		vec []float32
	}
	docs := []doc{
		{"far", []float32{0, 1}},
		{"near", []float32{1, 0.1}},
		{"exact", []float32{1, 0}},
	}
	got := TopK([]float32{1, 0}, docs, func(d doc) []float32 { return d.vec }, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Item.id != "exact" || got[1].Item.id != "near" {
		t.Fatalf("unexpected order: %s, %s", got[0].Item.id, got[1].Item.id)
	}
	if TopK([]float32{1, 0}, docs, func(d doc) []float32 { return d.vec }, 0) != nil {
		t.Fatal("expected nil for k=0")
	}
}

func TestTagOverlap(t *testing.T) {
	tests := []struct {
		name       string
		have, want []string
		expected   float64
	}{
		{"identical", []string{"a", "b"}, []string{"a", "b"}, 1},
		{"subset of query", []string{"a"}, []string{"a", "b"}, 0.5},
		{"partial with extra tags", []string{"b", "c"}, []string{"a", "b"}, 1.0 / 3},
		{"duplicates count once", []string{"a", "a"}, []string{"a", "a", "b"}, 0.5},
		{"disjoint", []string{"c"}, []string{"a"}, 0},
		{"empty query", []string{"a"}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TagOverlap(tt.have, tt.want); math.Abs(got-tt.expected) > 1e-12 {
				t.Fatalf("TagOverlap(%v, %v) = %f, want %f", tt.have, tt.want, got, tt.expected)
			}
		})
	}
}
