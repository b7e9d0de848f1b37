// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical vector", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "scaled vector", a: []float64{1, 2, 3}, b: []float64{2, 4, 6}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "opposite", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1},
		{name: "zero vector", a: []float64{1, 2}, b: []float64{0, 0}, want: 0},
		{name: "length mismatch", a: []float64{1, 2}, b: []float64{1, 2, 3}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestMax(t *testing.T) {
	v := []float64{1, 0}
	got, idx := Max(v, [][]float64{{0, 1}, {1, 1}, {1, 0.1}})
	assert.Equal(t, 2, idx)
	assert.Greater(t, got, 0.99)

	got, idx = Max(v, nil)
	assert.Equal(t, -1, idx)
	assert.Zero(t, got)
}

func TestKMeansSeparatesClusters(t *testing.T) {
	points := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}
	centroids, err := KMeans(points, 2, KMeansConfig{})
	require.NoError(t, err)
	require.Len(t, centroids, 2)

	var low, high int
	for _, c := range centroids {
		if c[0] < 5 {
			low++
			assert.InDelta(t, 0.033, c[0], 0.01)
		} else {
			high++
			assert.InDelta(t, 10.033, c[0], 0.01)
		}
	}
	assert.Equal(t, 1, low)
	assert.Equal(t, 1, high)
}

func TestKMeansDeterministic(t *testing.T) {
	points := make([][]float64, 0, 30)
	for i := 0; i < 30; i++ {
		points = append(points, []float64{float64(i % 7), float64(i % 5), float64(i % 3)})
	}
	a, err := KMeans(points, 4, KMeansConfig{Seed: 42})
	require.NoError(t, err)
	b, err := KMeans(points, 4, KMeansConfig{Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestKMeansBadInput(t *testing.T) {
	_, err := KMeans(nil, 1, KMeansConfig{})
	assert.ErrorIs(t, err, ErrBadInput)

	_, err = KMeans([][]float64{{1}}, 2, KMeansConfig{})
	assert.ErrorIs(t, err, ErrBadInput)

	_, err = KMeans([][]float64{{1, 2}, {1}}, 1, KMeansConfig{})
	assert.ErrorIs(t, err, ErrBadInput)
}
