package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Linkage selects the rule for computing dissimilarity between two clusters
// from pairwise point dissimilarities.
type Linkage string

const (
	// LinkageSingle uses the minimum of the two absorbed distances.
	LinkageSingle Linkage = "single"
	// LinkageComplete uses the maximum of the two absorbed distances.
	LinkageComplete Linkage = "complete"
	// LinkageAverage uses the size-weighted mean of the two absorbed
	// distances (UPGMA).
	LinkageAverage Linkage = "average"
	// LinkageCentroid recomputes the Euclidean distance between cluster
	// centroids. May produce non-monotonic heights (inversions); those are
	// a property of the method and are preserved, not corrected.
	LinkageCentroid Linkage = "centroid"
)

func validateLinkage(linkage Linkage) error {
	switch linkage {
	case LinkageSingle, LinkageComplete, LinkageAverage, LinkageCentroid:
		return nil
	default:
		return invalidInputf("unknown linkage %q", linkage)
	}
}

// Agglomerate builds the full n-1-step dendrogram by repeatedly merging the
// pair of active clusters with minimum dissimilarity. Ties are broken by the
// lowest (left, right) id pair, so the output is deterministic. The working
// dissimilarity table starts as a copy of dm and is updated in place with
// the selected linkage rule after every merge.
func Agglomerate(dm *DistanceMatrix, linkage Linkage) (*Dendrogram, error) {
	if dm == nil {
		return nil, invalidInputf("distance matrix is nil")
	}
	if err := validateLinkage(linkage); err != nil {
		return nil, err
	}
	n := dm.Len()
	w := newWorkSet(dm, linkage == LinkageCentroid)

	steps := make([]MergeStep, 0, n-1)
	for stepIdx := 0; stepIdx < n-1; stepIdx++ {
		a, b, h := w.closestPair()
		newID := n + stepIdx
		steps = append(steps, MergeStep{Left: a, Right: b, Height: h, ID: newID})
		w.merge(a, b, newID, linkage)
	}

	return &Dendrogram{n: n, steps: steps}, nil
}

// workSet is the owned mutable working structure of a single agglomerative
// run: the set of active cluster ids, their sizes, centroids (centroid
// linkage only) and the live inter-cluster dissimilarity table.
type workSet struct {
	active    []int // ascending; new ids are always the largest
	size      []int
	centroids [][]float64
	dist      map[[2]int]float64
}

func newWorkSet(dm *DistanceMatrix, withCentroids bool) *workSet {
	n := dm.Len()
	w := &workSet{
		active: make([]int, n),
		size:   make([]int, 2*n-1),
		dist:   make(map[[2]int]float64, n*(n-1)/2),
	}
	for i := 0; i < n; i++ {
		w.active[i] = i
		w.size[i] = 1
	}
	for p := range dm.AllPairs() {
		w.dist[[2]int{p.I, p.J}] = p.D
	}
	if withCentroids {
		w.centroids = make([][]float64, 2*n-1)
		for i := 0; i < n; i++ {
			c := make([]float64, dm.features.Dims())
			copy(c, dm.features.Row(i))
			w.centroids[i] = c
		}
	}
	return w
}

func (w *workSet) distance(a, b int) float64 {
	if a > b {
		a, b = b, a
	}
	return w.dist[[2]int{a, b}]
}

// closestPair scans active ids in ascending order and returns the pair with
// minimum dissimilarity. The strict < comparison keeps the lexicographically
// lowest pair on ties.
func (w *workSet) closestPair() (a, b int, h float64) {
	h = math.Inf(1)
	for i := 0; i < len(w.active); i++ {
		for j := i + 1; j < len(w.active); j++ {
			if d := w.distance(w.active[i], w.active[j]); d < h {
				a, b, h = w.active[i], w.active[j], d
			}
		}
	}
	return a, b, h
}

// merge replaces clusters a and b with newID and recomputes newID's
// dissimilarity to every remaining active cluster under the linkage rule.
func (w *workSet) merge(a, b, newID int, linkage Linkage) {
	sa, sb := w.size[a], w.size[b]
	w.size[newID] = sa + sb

	if w.centroids != nil {
		// Size-weighted mean of the absorbed centroids.
		c := make([]float64, len(w.centroids[a]))
		floats.AddScaled(c, float64(sa), w.centroids[a])
		floats.AddScaled(c, float64(sb), w.centroids[b])
		floats.Scale(1/float64(sa+sb), c)
		w.centroids[newID] = c
	}

	remaining := w.active[:0:len(w.active)]
	for _, id := range w.active {
		if id == a || id == b {
			continue
		}
		remaining = append(remaining, id)
	}

	for _, c := range remaining {
		da, db := w.distance(a, c), w.distance(b, c)
		var nd float64
		switch linkage {
		case LinkageSingle:
			nd = math.Min(da, db)
		case LinkageComplete:
			nd = math.Max(da, db)
		case LinkageAverage:
			nd = (float64(sa)*da + float64(sb)*db) / float64(sa+sb)
		case LinkageCentroid:
			nd = EuclideanMetric{}.Distance(w.centroids[newID], w.centroids[c])
		}
		w.dist[[2]int{c, newID}] = nd
		delete(w.dist, pairKey(a, c))
		delete(w.dist, pairKey(b, c))
	}
	delete(w.dist, pairKey(a, b))

	w.active = append(remaining, newID)
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
