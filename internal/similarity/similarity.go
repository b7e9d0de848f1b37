// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package similarity provides the vector math behind duplicate detection and
// downvote prototypes: cosine similarity and deterministic k-means.
package similarity

import "math"

// Cosine returns dot(a,b) / (|a|·|b|). It returns 0 when either vector has
// zero norm or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Max returns the highest cosine similarity between v and any of vs, and
// the index of that vector. It returns (0, -1) when vs is empty.
func Max(v []float64, vs [][]float64) (float64, int) {
	best, idx := 0.0, -1
	for i, w := range vs {
		s := Cosine(v, w)
		if idx == -1 || s > best {
			best, idx = s, i
		}
	}
	return best, idx
}

func squaredDistance(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}
