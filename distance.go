package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DistanceMetric provides dissimilarity computation with an optional reduced
// form for comparisons that don't need the final root (e.g. squared Euclidean
// skips sqrt). Reduced distances must preserve ordering.
type DistanceMetric interface {
	Distance(a, b []float64) float64
	ReducedDistance(a, b []float64) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
// ReducedDistance delegates to the same function.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64        { return f(a, b) }
func (f DistanceFunc) ReducedDistance(a, b []float64) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance.
// ReducedDistance returns squared Euclidean distance (skips sqrt).
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

func (EuclideanMetric) ReducedDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// ManhattanMetric computes the Manhattan (L1 / city-block) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

func (m ManhattanMetric) ReducedDistance(a, b []float64) float64 { return m.Distance(a, b) }
