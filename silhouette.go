package cluster

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SilhouetteRecord measures how well one point fits its assigned cluster
// versus the next-best alternative. Width is in [-1, 1]; values near 1 mean
// the point sits well inside its cluster.
//
// Points in singleton clusters get width 0 by convention, with Neighbor -1.
// The same applies to every point when the partition has a single cluster
// (no alternative exists).
type SilhouetteRecord struct {
	Cluster  int
	Neighbor int
	Width    float64
}

// Silhouettes computes the per-point silhouette widths of a partition from
// a distance matrix. For point i in cluster C, a(i) is the mean distance to
// the other members of C, b(i) is the smallest mean distance from i to any
// other cluster (ties to the lowest cluster id), and the width is
// (b-a)/max(a,b), or 0 when both are 0.
func Silhouettes(p Partition, dm *DistanceMatrix) ([]SilhouetteRecord, error) {
	if dm == nil {
		return nil, invalidInputf("distance matrix is nil")
	}
	n := dm.Len()
	if len(p) != n {
		return nil, invalidInputf("partition has %d labels for %d points", len(p), n)
	}

	numClusters := 0
	for i, c := range p {
		if c < 0 {
			return nil, invalidInputf("point %d has negative cluster id %d", i, c)
		}
		if c+1 > numClusters {
			numClusters = c + 1
		}
	}

	sizes := make([]int, numClusters)
	for _, c := range p {
		sizes[c]++
	}

	records := make([]SilhouetteRecord, n)
	sums := make([]float64, numClusters)
	for i := 0; i < n; i++ {
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if j != i {
				sums[p[j]] += dm.Distance(i, j)
			}
		}

		own := p[i]
		records[i] = SilhouetteRecord{Cluster: own, Neighbor: -1}
		if sizes[own] == 1 {
			continue // singleton convention: width 0
		}
		a := sums[own] / float64(sizes[own]-1)

		b := math.Inf(1)
		for c := 0; c < numClusters; c++ {
			if c == own || sizes[c] == 0 {
				continue
			}
			if mean := sums[c] / float64(sizes[c]); mean < b {
				b = mean
				records[i].Neighbor = c
			}
		}
		if records[i].Neighbor == -1 {
			continue // single-cluster partition: width 0
		}

		if denom := math.Max(a, b); denom > 0 {
			records[i].Width = (b - a) / denom
		}
	}
	return records, nil
}

// AverageWidth returns the mean silhouette width over all records.
func AverageWidth(records []SilhouetteRecord) float64 {
	widths := make([]float64, len(records))
	for i, r := range records {
		widths[i] = r.Width
	}
	return stat.Mean(widths, nil)
}

// AverageWidthPerCluster returns the mean silhouette width of each cluster
// id present in the records.
func AverageWidthPerCluster(records []SilhouetteRecord) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range records {
		sums[r.Cluster] += r.Width
		counts[r.Cluster]++
	}
	avgs := make(map[int]float64, len(sums))
	for c, sum := range sums {
		avgs[c] = sum / float64(counts[c])
	}
	return avgs
}
