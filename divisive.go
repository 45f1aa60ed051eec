package cluster

import (
	"sort"
)

// Divide builds a dendrogram by top-down splitting (divisive analysis).
// Starting from one cluster of all points, each iteration splits the most
// diffuse active cluster (largest mean pairwise dissimilarity): the member
// farthest on average from the rest seeds a splinter group, then members
// whose average dissimilarity to the splinter group is smaller than to the
// remaining group defect until no further moves occur.
//
// Each split is recorded at the diameter of the cluster being divided.
// Because a subset's diameter never exceeds its parent's, emitting the
// steps bottom-up yields non-decreasing heights and the shared Dendrogram
// cut logic applies unchanged.
func Divide(dm *DistanceMatrix) (*Dendrogram, error) {
	if dm == nil {
		return nil, invalidInputf("distance matrix is nil")
	}
	n := dm.Len()

	root := &splitNode{members: seqInts(n)}
	activeSplittable := []*splitNode{root}

	var internal []*splitNode // in split order
	for len(internal) < n-1 {
		// Most diffuse cluster next. activeSplittable stays in creation
		// order, so the strict > keeps the earliest created on ties.
		best := -1
		bestDiff := -1.0
		for i, node := range activeSplittable {
			if diff := meanPairwise(dm, node.members); diff > bestDiff {
				best, bestDiff = i, diff
			}
		}
		node := activeSplittable[best]
		activeSplittable = append(activeSplittable[:best], activeSplittable[best+1:]...)

		splinter, rest := splinterSplit(dm, node.members)
		node.height = diameter(dm, node.members)
		node.childA = &splitNode{members: splinter}
		node.childB = &splitNode{members: rest}
		internal = append(internal, node)

		for _, child := range []*splitNode{node.childA, node.childB} {
			if len(child.members) > 1 {
				activeSplittable = append(activeSplittable, child)
			}
		}
	}

	return assembleSteps(n, internal), nil
}

// splitNode is one cluster in the top-down split tree. Internal nodes carry
// the height at which they were divided and their two children.
type splitNode struct {
	members        []int // ascending point indices
	height         float64
	childA, childB *splitNode
	id             int
}

func seqInts(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

// meanPairwise returns the mean dissimilarity over all member pairs,
// 0 for singletons.
func meanPairwise(dm *DistanceMatrix, members []int) float64 {
	if len(members) < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += dm.Distance(members[i], members[j])
		}
	}
	pairs := len(members) * (len(members) - 1) / 2
	return sum / float64(pairs)
}

// diameter returns the maximum pairwise dissimilarity among members.
func diameter(dm *DistanceMatrix, members []int) float64 {
	var maxD float64
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if d := dm.Distance(members[i], members[j]); d > maxD {
				maxD = d
			}
		}
	}
	return maxD
}

// splinterSplit divides members into a splinter group seeded by the point
// farthest on average from the rest, then repeatedly moves members whose
// average dissimilarity to the splinter group is smaller than to their own
// remaining group. Both returned groups are in ascending point order.
func splinterSplit(dm *DistanceMatrix, members []int) (splinter, rest []int) {
	seed := members[0]
	bestAvg := -1.0
	for _, m := range members {
		var sum float64
		for _, o := range members {
			if o != m {
				sum += dm.Distance(m, o)
			}
		}
		if avg := sum / float64(len(members)-1); avg > bestAvg {
			seed, bestAvg = m, avg
		}
	}

	splinter = []int{seed}
	for _, m := range members {
		if m != seed {
			rest = append(rest, m)
		}
	}

	for moved := true; moved; {
		moved = false
		for i := 0; i < len(rest); i++ {
			if len(rest) == 1 {
				break // never empty the original group
			}
			m := rest[i]
			var toSplinter, toRest float64
			for _, o := range splinter {
				toSplinter += dm.Distance(m, o)
			}
			toSplinter /= float64(len(splinter))
			for _, o := range rest {
				if o != m {
					toRest += dm.Distance(m, o)
				}
			}
			toRest /= float64(len(rest) - 1)

			if toSplinter < toRest {
				splinter = append(splinter, m)
				rest = append(rest[:i], rest[i+1:]...)
				i--
				moved = true
			}
		}
	}

	sort.Ints(splinter)
	return splinter, rest
}

// assembleSteps converts the split tree into merge steps. Internal nodes
// are ordered by ascending height (stable over reverse split order, so
// children always precede their parent) and assigned ids n, n+1, ... in
// that order, matching the agglomerative id scheme.
func assembleSteps(n int, internal []*splitNode) *Dendrogram {
	ordered := make([]*splitNode, len(internal))
	for i, node := range internal {
		ordered[len(internal)-1-i] = node
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].height < ordered[j].height
	})

	steps := make([]MergeStep, 0, len(ordered))
	for i, node := range ordered {
		node.id = n + i
		left, right := nodeID(node.childA), nodeID(node.childB)
		if left > right {
			left, right = right, left
		}
		steps = append(steps, MergeStep{Left: left, Right: right, Height: node.height, ID: node.id})
	}
	return &Dendrogram{n: n, steps: steps}
}

func nodeID(node *splitNode) int {
	if len(node.members) == 1 {
		return node.members[0]
	}
	return node.id
}
