package cluster

import (
	"encoding/binary"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// KMeansConfig controls a single k-means run.
// Start with [DefaultKMeansConfig] and override the fields you need.
type KMeansConfig struct {
	// K is the number of clusters. Must satisfy 1 <= K <= n.
	K int

	// MaxIter caps the number of assign/update iterations. If the cap is
	// reached before convergence the best partition found so far is still
	// returned with Converged=false. Default: 100.
	MaxIter int

	// Tol stops the run when total within-cluster sum of squares improves
	// by less than this amount between iterations. 0 means run until
	// assignments stabilize. Default: 0.
	Tol float64

	// Seed drives the random selection of initial centroids. Runs with the
	// same seed, data and K are fully reproducible. Ignored when
	// InitialCentroids is set.
	Seed uint64

	// InitialCentroids, if non-nil, supplies explicit starting centroids
	// instead of random row sampling. Must contain exactly K vectors of the
	// matrix's dimensionality.
	InitialCentroids [][]float64

	// Logger receives warning events for degenerate (emptied) clusters.
	// nil discards them.
	Logger *slog.Logger
}

// DefaultKMeansConfig returns a KMeansConfig with reasonable defaults for
// the given cluster count.
func DefaultKMeansConfig(k int) KMeansConfig {
	return KMeansConfig{K: k, MaxIter: 100}
}

// KMeansResult is the output of one k-means run.
type KMeansResult struct {
	// Labels assigns each point a cluster id in [0, K).
	Labels Partition

	// Centroids holds the final cluster centers, indexed by cluster id.
	Centroids [][]float64

	// WithinSS is the total within-cluster sum of squared Euclidean
	// distances, a local optimum for the returned partition.
	WithinSS float64

	// Iterations is the number of centroid updates performed.
	Iterations int

	// Converged is false when the run stopped at MaxIter without the
	// assignments stabilizing (a non-fatal condition; the result is still
	// the best partition found).
	Converged bool

	// Reseeds counts clusters that became empty mid-run and were reseeded
	// with the point farthest from its assigned centroid.
	Reseeds int
}

// KMeans partitions the matrix rows into cfg.K clusters with Lloyd's
// algorithm: assign each point to the nearest centroid by squared Euclidean
// distance (ties to the lowest cluster id), then recompute each centroid as
// the mean of its points, until assignments stabilize, the WithinSS
// improvement drops below cfg.Tol, or cfg.MaxIter is reached.
func KMeans(m *FeatureMatrix, cfg KMeansConfig) (*KMeansResult, error) {
	if m == nil {
		return nil, invalidInputf("feature matrix is nil")
	}
	if cfg.MaxIter == 0 {
		cfg.MaxIter = 100
	}
	n := m.Len()
	if cfg.K < 1 || cfg.K > n {
		return nil, invalidInputf("k=%d out of range [1, %d]", cfg.K, n)
	}

	centroids, err := initialCentroids(m, cfg)
	if err != nil {
		return nil, err
	}

	labels := make(Partition, n)
	for i := range labels {
		labels[i] = -1
	}

	res := &KMeansResult{Labels: labels, Centroids: centroids}
	prevWSS := math.Inf(1)

	for it := 0; it < cfg.MaxIter; it++ {
		changed := assignPoints(m, centroids, labels)
		if !changed {
			res.Converged = true
			break
		}

		counts := updateCentroids(m, centroids, labels)
		res.Reseeds += reseedEmpty(m, centroids, labels, counts, cfg.Logger)
		res.Iterations++

		wss := withinSS(m, centroids, labels)
		res.WithinSS = wss
		if prevWSS-wss < cfg.Tol {
			res.Converged = true
			break
		}
		prevWSS = wss
	}

	return res, nil
}

// initialCentroids produces the starting centroids: copies of the explicit
// ones when provided, otherwise K distinct rows sampled uniformly with the
// configured seed.
func initialCentroids(m *FeatureMatrix, cfg KMeansConfig) ([][]float64, error) {
	dims := m.Dims()

	if cfg.InitialCentroids != nil {
		if len(cfg.InitialCentroids) != cfg.K {
			return nil, invalidInputf("got %d initial centroids, expected k=%d", len(cfg.InitialCentroids), cfg.K)
		}
		centroids := make([][]float64, cfg.K)
		for i, c := range cfg.InitialCentroids {
			if len(c) != dims {
				return nil, invalidInputf("initial centroid %d has %d features, expected %d", i, len(c), dims)
			}
			centroids[i] = append([]float64(nil), c...)
		}
		return centroids, nil
	}

	// Deduplicate rows so the initial centroids are guaranteed distinct.
	seen := make(map[string]bool, m.Len())
	var distinct []int
	for i := 0; i < m.Len(); i++ {
		key := rowKey(m.Row(i))
		if !seen[key] {
			seen[key] = true
			distinct = append(distinct, i)
		}
	}
	if len(distinct) < cfg.K {
		return nil, invalidInputf("only %d distinct rows for k=%d random init", len(distinct), cfg.K)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	centroids := make([][]float64, cfg.K)
	for i, pick := range rng.Perm(len(distinct))[:cfg.K] {
		centroids[i] = append([]float64(nil), m.Row(distinct[pick])...)
	}
	return centroids, nil
}

func rowKey(row []float64) string {
	buf := make([]byte, 8*len(row))
	for i, v := range row {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return string(buf)
}

// assignPoints moves every point to its nearest centroid by squared
// Euclidean distance, ties to the lowest cluster id. Reports whether any
// assignment changed.
func assignPoints(m *FeatureMatrix, centroids [][]float64, labels Partition) bool {
	metric := EuclideanMetric{}
	changed := false
	for i := 0; i < m.Len(); i++ {
		best := 0
		bestD := metric.ReducedDistance(m.Row(i), centroids[0])
		for c := 1; c < len(centroids); c++ {
			if d := metric.ReducedDistance(m.Row(i), centroids[c]); d < bestD {
				best, bestD = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// updateCentroids recomputes each centroid as the arithmetic mean of its
// assigned points and returns the per-cluster point counts. Centroids of
// empty clusters are left untouched.
func updateCentroids(m *FeatureMatrix, centroids [][]float64, labels Partition) []int {
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, m.Dims())
	}
	for i := 0; i < m.Len(); i++ {
		floats.Add(sums[labels[i]], m.Row(i))
		counts[labels[i]]++
	}
	for c := range centroids {
		if counts[c] > 0 {
			floats.ScaleTo(centroids[c], 1/float64(counts[c]), sums[c])
		}
	}
	return counts
}

// reseedEmpty refills clusters that lost all points: in ascending cluster-id
// order, each empty cluster takes over the point currently farthest from its
// own centroid (skipping points that are the sole member of their cluster).
// Returns the number of reseeded clusters.
func reseedEmpty(m *FeatureMatrix, centroids [][]float64, labels Partition, counts []int, logger *slog.Logger) int {
	metric := EuclideanMetric{}
	reseeds := 0
	for c := range centroids {
		if counts[c] > 0 {
			continue
		}

		far, farD := -1, -1.0
		for i := 0; i < m.Len(); i++ {
			if counts[labels[i]] <= 1 {
				continue
			}
			if d := metric.ReducedDistance(m.Row(i), centroids[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			continue
		}

		if logger != nil {
			logger.Warn("reseeding empty cluster",
				"cluster", c,
				"point", far,
				"from_cluster", labels[far],
			)
		}
		counts[labels[far]]--
		copy(centroids[c], m.Row(far))
		labels[far] = c
		counts[c] = 1
		reseeds++
	}
	return reseeds
}

// withinSS returns the total within-cluster sum of squared Euclidean
// distances from each point to its centroid.
func withinSS(m *FeatureMatrix, centroids [][]float64, labels Partition) float64 {
	metric := EuclideanMetric{}
	var total float64
	for i := 0; i < m.Len(); i++ {
		total += metric.ReducedDistance(m.Row(i), centroids[labels[i]])
	}
	return total
}
