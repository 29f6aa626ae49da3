package knowledge

import (
	"math"
	"testing"
)

func TestNewFlatIndexValidation(t *testing.T) {
	if _, err := NewFlatIndex(nil); err == nil {
		t.Fatal("expected error for empty vector set")
	}
	if _, err := NewFlatIndex([][]float32{{}}); err == nil {
		t.Fatal("expected error for zero-dimension vectors")
	}
	if _, err := NewFlatIndex([][]float32{{1, 0}, {1}}); err == nil {
		t.Fatal("expected error for mixed dimensions")
	}
}

func TestFlatIndexSearch(t *testing.T) {
	index, err := NewFlatIndex([][]float32{
		{1, 0},
		{0, 1},
		{-1, 0},
	})
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	hits := index.Search([]float32{1, 0}, 2)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Position != 0 || hits[0].Distance != 0 {
		t.Fatalf("closest hit = %+v, want position 0 at distance 0", hits[0])
	}
	if hits[1].Position != 1 || math.Abs(hits[1].Distance-2) > 1e-9 {
		t.Fatalf("second hit = %+v, want position 1 at distance 2", hits[1])
	}

	if got := index.Search([]float32{1, 0, 0}, 2); got != nil {
		t.Fatalf("dimension mismatch should yield no hits, got %v", got)
	}
	if got := index.Search([]float32{1, 0}, 0); got != nil {
		t.Fatalf("k=0 should yield no hits, got %v", got)
	}
}

func TestFlatIndexSearchOppositeVectorDistance(t *testing.T) {
	// Unit vectors sit at squared distance 4 when opposite, which converts
	// to similarity -1 via sim = 1 - d/2.
	index, err := NewFlatIndex([][]float32{{-1, 0}})
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}
	hits := index.Search([]float32{1, 0}, 1)
	if len(hits) != 1 || math.Abs(hits[0].Distance-4) > 1e-9 {
		t.Fatalf("hits = %+v, want single hit at distance 4", hits)
	}
}

func TestL2Normalize(t *testing.T) {
	v := L2Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Fatalf("normalized = %v, want [0.6 0.8]", v)
	}

	zero := L2Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector changed: %v", zero)
	}
}
