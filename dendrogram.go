package cluster

// MergeStep records two clusters uniting at a given dissimilarity height.
// Left and Right are cluster ids: original points are 0..n-1, merged
// clusters are assigned ids n, n+1, ... in creation order (the same scheme
// scipy uses for linkage output). ID is the id of the merged cluster.
type MergeStep struct {
	Left, Right int
	Height      float64
	ID          int
}

// Partition maps each point index to a cluster id in [0, k).
type Partition []int

// NumClusters returns the number of distinct cluster ids in the partition.
func (p Partition) NumClusters() int {
	seen := make(map[int]bool, len(p))
	for _, c := range p {
		seen[c] = true
	}
	return len(seen)
}

// Dendrogram is a frozen sequence of n-1 merge steps over n points.
// Heights are non-decreasing for single, complete and average linkage;
// centroid linkage may produce inversions, which are preserved as-is.
type Dendrogram struct {
	n     int
	steps []MergeStep
}

// NumPoints returns the number of original points.
func (d *Dendrogram) NumPoints() int { return d.n }

// Steps returns the merge sequence in construction order.
// The returned slice is shared; callers must not modify it.
func (d *Dendrogram) Steps() []MergeStep { return d.steps }

// Heights returns the merge heights in step order.
func (d *Dendrogram) Heights() []float64 {
	hs := make([]float64, len(d.steps))
	for i, s := range d.steps {
		hs[i] = s.Height
	}
	return hs
}

// Monotonic reports whether heights are non-decreasing along the merge
// sequence. False indicates centroid-linkage inversions.
func (d *Dendrogram) Monotonic() bool {
	for i := 1; i < len(d.steps); i++ {
		if d.steps[i].Height < d.steps[i-1].Height {
			return false
		}
	}
	return true
}

// CutByCount undoes merges from the top of the tree until exactly k
// clusters remain and returns the resulting partition. Returns
// ErrInvalidInput if k < 1 or k > n.
func (d *Dendrogram) CutByCount(k int) (Partition, error) {
	if k < 1 || k > d.n {
		return nil, invalidInputf("cut count %d out of range [1, %d]", k, d.n)
	}
	return d.replay(d.n - k), nil
}

// CutByHeight returns the partition obtained by applying only merges with
// height <= h. For non-monotonic (centroid-linkage) trees a merge is
// applied only when both of its child clusters have materialized; merges
// whose children were skipped stay undone.
func (d *Dendrogram) CutByHeight(h float64) Partition {
	rep := make([]int, 2*d.n-1)
	formed := make([]bool, 2*d.n-1)
	for i := 0; i < d.n; i++ {
		rep[i] = i
		formed[i] = true
	}

	uf := newUnionFind(d.n)
	for _, s := range d.steps {
		if s.Height > h || !formed[s.Left] || !formed[s.Right] {
			continue
		}
		root := uf.union(rep[s.Left], rep[s.Right])
		rep[s.ID] = root
		formed[s.ID] = true
	}
	return d.labels(uf)
}

// replay applies the first count merge steps and returns the partition.
func (d *Dendrogram) replay(count int) Partition {
	rep := make([]int, 2*d.n-1)
	for i := 0; i < d.n; i++ {
		rep[i] = i
	}

	uf := newUnionFind(d.n)
	for _, s := range d.steps[:count] {
		root := uf.union(rep[s.Left], rep[s.Right])
		rep[s.ID] = root
	}
	return d.labels(uf)
}

// labels extracts contiguous cluster ids from the union-find state,
// numbered in first-occurrence order over point indices.
func (d *Dendrogram) labels(uf *unionFind) Partition {
	labels := make(Partition, d.n)
	next := 0
	idOf := make(map[int]int, d.n)
	for i := 0; i < d.n; i++ {
		root := uf.find(i)
		id, ok := idOf[root]
		if !ok {
			id = next
			idOf[root] = id
			next++
		}
		labels[i] = id
	}
	return labels
}
