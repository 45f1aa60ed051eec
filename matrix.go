package cluster

import (
	"iter"
	"math"
	"sync"
)

// FeatureMatrix holds n points of dimension p in flat row-major storage.
// It is immutable once constructed: n >= 2, p >= 1, all values finite.
type FeatureMatrix struct {
	data []float64
	n    int
	dims int
}

// NewFeatureMatrix validates and copies rows into a FeatureMatrix.
// Returns ErrInvalidInput if fewer than 2 rows, empty rows, ragged rows,
// or non-finite values are present.
func NewFeatureMatrix(rows [][]float64) (*FeatureMatrix, error) {
	n := len(rows)
	if n < 2 {
		return nil, invalidInputf("need at least 2 points, got %d", n)
	}
	dims := len(rows[0])
	if dims < 1 {
		return nil, invalidInputf("points must have at least 1 feature")
	}

	data := make([]float64, n*dims)
	for i, row := range rows {
		if len(row) != dims {
			return nil, invalidInputf("row %d has %d features, expected %d", i, len(row), dims)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, invalidInputf("row %d column %d is not finite", i, j)
			}
		}
		copy(data[i*dims:], row)
	}

	return &FeatureMatrix{data: data, n: n, dims: dims}, nil
}

// Len returns the number of points.
func (m *FeatureMatrix) Len() int { return m.n }

// Dims returns the number of features per point.
func (m *FeatureMatrix) Dims() int { return m.dims }

// Row returns point i as a slice into the matrix. Callers must not modify it.
func (m *FeatureMatrix) Row(i int) []float64 {
	return m.data[i*m.dims : (i+1)*m.dims]
}

// PairDistance is one (i, j, d) entry of a distance matrix, i < j.
type PairDistance struct {
	I, J int
	D    float64
}

// DistanceMatrix stores all pairwise dissimilarities between n points.
// Only the strict upper triangle (i < j) is held; Distance derives the
// mirror and the zero diagonal. Read-only after construction.
type DistanceMatrix struct {
	n        int
	tri      []float64
	features *FeatureMatrix
}

// NewDistanceMatrix computes all pairwise distances under metric
// (EuclideanMetric if nil). workers controls the number of goroutines;
// values <= 1 compute single-threaded. Each worker owns a disjoint range of
// source rows, so no synchronization is needed for writes.
//
// NaN or negative metric outputs are rejected with ErrInvalidInput rather
// than propagating into later stages.
func NewDistanceMatrix(m *FeatureMatrix, metric DistanceMetric, workers int) (*DistanceMatrix, error) {
	if m == nil {
		return nil, invalidInputf("feature matrix is nil")
	}
	if metric == nil {
		metric = EuclideanMetric{}
	}

	n := m.n
	tri := make([]float64, n*(n-1)/2)

	fill := func(start, end int) error {
		for i := start; i < end; i++ {
			base := triRowStart(n, i)
			for j := i + 1; j < n; j++ {
				d := metric.Distance(m.Row(i), m.Row(j))
				if math.IsNaN(d) || d < 0 {
					return invalidInputf("metric produced %v for pair (%d, %d)", d, i, j)
				}
				tri[base+j-i-1] = d
			}
		}
		return nil
	}

	if workers <= 1 || n <= 2 {
		if err := fill(0, n); err != nil {
			return nil, err
		}
		return &DistanceMatrix{n: n, tri: tri, features: m}, nil
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	rowsPerWorker := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		startRow := w * rowsPerWorker
		endRow := min(startRow+rowsPerWorker, n)
		if startRow >= n {
			break
		}

		wg.Add(1)
		go func(slot, start, end int) {
			defer wg.Done()
			errs[slot] = fill(start, end)
		}(w, startRow, endRow)
	}

	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &DistanceMatrix{n: n, tri: tri, features: m}, nil
}

// triRowStart returns the offset of row i's first entry (i, i+1) in the
// triangle storage.
func triRowStart(n, i int) int {
	return i*(n-1) - i*(i-1)/2
}

// Len returns the number of points.
func (dm *DistanceMatrix) Len() int { return dm.n }

// Distance returns the dissimilarity between points i and j in O(1).
// The diagonal is zero and the matrix is symmetric.
func (dm *DistanceMatrix) Distance(i, j int) float64 {
	if i == j {
		return 0
	}
	if i > j {
		i, j = j, i
	}
	return dm.tri[triRowStart(dm.n, i)+j-i-1]
}

// AllPairs returns a restartable iterator over all (i, j, d) entries with
// i < j, in row-major order.
func (dm *DistanceMatrix) AllPairs() iter.Seq[PairDistance] {
	return func(yield func(PairDistance) bool) {
		for i := 0; i < dm.n; i++ {
			for j := i + 1; j < dm.n; j++ {
				if !yield(PairDistance{I: i, J: j, D: dm.Distance(i, j)}) {
					return
				}
			}
		}
	}
}
