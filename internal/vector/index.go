// Package vector provides an exact inner-product index over unit vectors and its binary encoding.
package vector

import (
	"fmt"
	"sort"
	"sync"
)

// Result is a single search hit. Position is the insertion index of the matched vector.
type Result struct {
	Position int
	Score    float64
}

// Index is a flat, exact inner-product index. Vectors are expected to be L2-normalized,
// which makes scores cosine similarities. It is safe for concurrent use.
type Index struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// New creates an empty index for vectors of the given dimension.
func New(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Index{dimensions: dimensions}, nil
}

// Add appends copies of vectors. Either all vectors are added or, on a dimension
// mismatch, none are.
func (x *Index) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != x.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), x.dimensions)
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, v := range vectors {
		x.vectors = append(x.vectors, append([]float32(nil), v...))
	}
	return nil
}

// Search returns up to k hits by descending inner product. Equal scores keep insertion
// order. Fewer than k hits are returned when the index is smaller; results are never padded.
func (x *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), x.dimensions)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if k <= 0 || len(x.vectors) == 0 {
		return []Result{}, nil
	}

	scores := make([]Result, len(x.vectors))
	for i, v := range x.vectors {
		scores[i] = Result{Position: i, Score: InnerProduct(query, v)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores[:min(k, len(scores))], nil
}

// Vector returns a copy of the vector at position i.
func (x *Index) Vector(i int) []float32 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]float32(nil), x.vectors[i]...)
}

// Len returns the number of vectors in the index.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Dimensions returns the vector dimension.
func (x *Index) Dimensions() int { return x.dimensions }
