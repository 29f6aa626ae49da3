package knowledge

import (
	"errors"
	"math"
	"sort"
)

// Hit is one nearest-neighbor result. Distance is the squared L2 distance,
// which for unit vectors relates to cosine similarity as sim = 1 - d/2.
type Hit struct {
	Distance float64
	Position int
}

// FlatIndex is an exact nearest-neighbor index over a fixed vector set.
// Built once per cache generation, read-only afterwards.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

// NewFlatIndex builds an index over the given vectors. All vectors must share
// one dimension.
func NewFlatIndex(vectors [][]float32) (*FlatIndex, error) {
	if len(vectors) == 0 {
		return nil, errors.New("flat index requires at least one vector")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.New("flat index requires non-empty vectors")
	}
	for _, v := range vectors {
		if len(v) != dim {
			return nil, errors.New("flat index vectors must share one dimension")
		}
	}
	return &FlatIndex{dim: dim, vectors: vectors}, nil
}

// Len returns the number of indexed vectors.
func (ix *FlatIndex) Len() int {
	return len(ix.vectors)
}

// Search returns up to k hits ordered ascending by distance. A query with a
// mismatched dimension yields no hits.
func (ix *FlatIndex) Search(query []float32, k int) []Hit {
	if len(query) != ix.dim || k <= 0 {
		return nil
	}
	hits := make([]Hit, 0, len(ix.vectors))
	for pos, v := range ix.vectors {
		hits = append(hits, Hit{Distance: squaredL2(query, v), Position: pos})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// L2Normalize scales the vector to unit length in place and returns it.
// Zero vectors are returned unchanged.
func L2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
