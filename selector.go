package cluster

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// SweepSource selects which algorithm produces the partition evaluated at
// each candidate k.
type SweepSource string

const (
	// SweepKMeans runs a fresh k-means per candidate k.
	SweepKMeans SweepSource = "kmeans"
	// SweepLinkage cuts one agglomerative dendrogram (built once and
	// shared read-only across candidates) at each k.
	SweepLinkage SweepSource = "linkage"
)

// KRange is an inclusive range of candidate cluster counts.
type KRange struct {
	Min, Max int
}

// ScorePoint is one (k, score) entry of a model-selection curve.
type ScorePoint struct {
	K     int
	Score float64
}

// HartiganPoint is one entry of a Hartigan-index curve. Defined is false
// when WSS(k+1) is zero, where the index would require dividing by zero.
type HartiganPoint struct {
	K       int
	Score   float64
	Defined bool
}

// Selector evaluates partitions across a range of candidate cluster counts
// to produce elbow (within-cluster sum of squares), Hartigan-index and
// average-silhouette curves. The curves are for the caller to inspect; only
// the silhouette sweep ventures a suggested k.
//
// Candidate k values are evaluated concurrently. Each run owns its state
// and publishes into its own output slot, so no locking is involved;
// cancellation via ctx aborts the sweep with no partial curve returned.
type Selector struct {
	// Features is the matrix all runs partition. Required.
	Features *FeatureMatrix

	// KMeans is the run template for SweepKMeans; K is overridden per
	// candidate. The zero value gets default MaxIter.
	KMeans KMeansConfig

	// Linkage is the rule used to build the shared dendrogram for
	// SweepLinkage. Defaults to complete linkage.
	Linkage Linkage

	// Metric builds the distance matrix for silhouette scores and linkage
	// sweeps. Defaults to Euclidean.
	Metric DistanceMetric

	// Workers bounds the number of concurrent per-k runs.
	// 0 means runtime.NumCPU().
	Workers int
}

// WSSCurve returns the total within-cluster sum of squares at each k in kr.
// The caller inspects the curve for an elbow; no k is auto-picked.
func (s *Selector) WSSCurve(ctx context.Context, kr KRange, source SweepSource) ([]ScorePoint, error) {
	wss, err := s.sweepWSS(ctx, kr, source)
	if err != nil {
		return nil, err
	}
	points := make([]ScorePoint, len(wss))
	for i, w := range wss {
		points[i] = ScorePoint{K: kr.Min + i, Score: w}
	}
	return points, nil
}

// HartiganCurve returns H(k) = ((WSS(k)/WSS(k+1)) - 1) * (n-k-1) for each k
// in kr. The sweep internally extends the range by one to obtain WSS(k+1);
// kr.Max must therefore leave room for one more cluster. Entries where
// WSS(k+1) is zero are flagged Defined=false instead of dividing.
func (s *Selector) HartiganCurve(ctx context.Context, kr KRange, source SweepSource) ([]HartiganPoint, error) {
	if err := s.validateRange(kr); err != nil {
		return nil, err
	}
	n := s.Features.Len()
	extended := KRange{Min: kr.Min, Max: kr.Max + 1}
	if extended.Max > n {
		return nil, invalidInputf("hartigan needs k+1 <= %d, got max k %d", n, kr.Max)
	}

	wss, err := s.sweepWSS(ctx, extended, source)
	if err != nil {
		return nil, err
	}

	points := make([]HartiganPoint, kr.Max-kr.Min+1)
	for i := range points {
		k := kr.Min + i
		p := HartiganPoint{K: k}
		if next := wss[i+1]; next > 0 {
			p.Score = (wss[i]/next - 1) * float64(n-k-1)
			p.Defined = true
		}
		points[i] = p
	}
	return points, nil
}

// SilhouetteCurve returns the average silhouette width at each k in kr,
// plus the k maximizing it as a suggestion (ties to the lowest k). The full
// curve is still the thing to inspect; k=1 scores 0 by convention.
func (s *Selector) SilhouetteCurve(ctx context.Context, kr KRange, source SweepSource) ([]ScorePoint, int, error) {
	if err := s.validateRange(kr); err != nil {
		return nil, 0, err
	}
	dm, dendro, err := s.prepare(source)
	if err != nil {
		return nil, 0, err
	}

	points := make([]ScorePoint, kr.Max-kr.Min+1)
	err = s.forEachK(ctx, kr, func(i, k int) error {
		labels, err := s.partitionAt(k, source, dendro)
		if err != nil {
			return err
		}
		records, err := Silhouettes(labels, dm)
		if err != nil {
			return err
		}
		points[i] = ScorePoint{K: k, Score: AverageWidth(records)}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	suggested := points[0].K
	bestScore := points[0].Score
	for _, p := range points[1:] {
		if p.Score > bestScore {
			suggested, bestScore = p.K, p.Score
		}
	}
	return points, suggested, nil
}

func (s *Selector) validateRange(kr KRange) error {
	if s.Features == nil {
		return invalidInputf("selector has no feature matrix")
	}
	n := s.Features.Len()
	if kr.Min < 1 || kr.Max < kr.Min || kr.Max > n {
		return invalidInputf("k range [%d, %d] invalid for %d points", kr.Min, kr.Max, n)
	}
	return nil
}

// prepare builds the shared read-only inputs of a sweep: the distance
// matrix, and for linkage sweeps the dendrogram cut at each candidate k.
func (s *Selector) prepare(source SweepSource) (*DistanceMatrix, *Dendrogram, error) {
	dm, err := NewDistanceMatrix(s.Features, s.Metric, s.workers())
	if err != nil {
		return nil, nil, err
	}
	if source != SweepLinkage {
		return dm, nil, nil
	}

	linkage := s.Linkage
	if linkage == "" {
		linkage = LinkageComplete
	}
	dendro, err := Agglomerate(dm, linkage)
	if err != nil {
		return nil, nil, err
	}
	return dm, dendro, nil
}

func (s *Selector) sweepWSS(ctx context.Context, kr KRange, source SweepSource) ([]float64, error) {
	if err := s.validateRange(kr); err != nil {
		return nil, err
	}
	var dendro *Dendrogram
	if source == SweepLinkage {
		var err error
		if _, dendro, err = s.prepare(source); err != nil {
			return nil, err
		}
	} else if source != SweepKMeans {
		return nil, invalidInputf("unknown sweep source %q", source)
	}

	wss := make([]float64, kr.Max-kr.Min+1)
	err := s.forEachK(ctx, kr, func(i, k int) error {
		if source == SweepKMeans {
			cfg := s.KMeans
			cfg.K = k
			res, err := KMeans(s.Features, cfg)
			if err != nil {
				return err
			}
			wss[i] = res.WithinSS
			return nil
		}
		labels, err := dendro.CutByCount(k)
		if err != nil {
			return err
		}
		wss[i] = partitionWSS(s.Features, labels)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wss, nil
}

// partitionAt produces the labels evaluated at candidate k.
func (s *Selector) partitionAt(k int, source SweepSource, dendro *Dendrogram) (Partition, error) {
	switch source {
	case SweepKMeans:
		cfg := s.KMeans
		cfg.K = k
		res, err := KMeans(s.Features, cfg)
		if err != nil {
			return nil, err
		}
		return res.Labels, nil
	case SweepLinkage:
		return dendro.CutByCount(k)
	default:
		return nil, invalidInputf("unknown sweep source %q", source)
	}
}

// forEachK runs fn for every candidate k, bounded by Workers goroutines.
// Results are published into disjoint slots only; a context cancellation or
// failed run aborts the whole sweep.
func (s *Selector) forEachK(ctx context.Context, kr KRange, fn func(i, k int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for k := kr.Min; k <= kr.Max; k++ {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return fn(k-kr.Min, k)
		})
	}
	return g.Wait()
}

func (s *Selector) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.NumCPU()
}

// partitionWSS computes the total within-cluster sum of squared Euclidean
// distances for an arbitrary partition, using the mean of each cluster's
// points as its centroid.
func partitionWSS(m *FeatureMatrix, labels Partition) float64 {
	k := labels.NumClusters()
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, m.Dims())
	}
	for i := 0; i < m.Len(); i++ {
		floats.Add(sums[labels[i]], m.Row(i))
		counts[labels[i]]++
	}
	for c := range sums {
		floats.Scale(1/float64(counts[c]), sums[c])
	}

	metric := EuclideanMetric{}
	var total float64
	for i := 0; i < m.Len(); i++ {
		total += metric.ReducedDistance(m.Row(i), sums[labels[i]])
	}
	return total
}
