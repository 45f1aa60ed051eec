package cluster

import (
	"errors"
	"testing"
)

func TestDivide_HandComputedThreePoints(t *testing.T) {
	// 1-D points 0, 1, 10. Point 2 is farthest on average, so it splinters
	// off first at the full diameter 10; the remaining pair splits at 1.
	// Emitted bottom-up: (0,1)->3 at 1, then (2,3)->4 at 10.
	dm := mustDistanceMatrix(t, [][]float64{{0}, {1}, {10}})
	dendro, err := Divide(dm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []MergeStep{
		{Left: 0, Right: 1, Height: 1, ID: 3},
		{Left: 2, Right: 3, Height: 10, ID: 4},
	}
	steps := dendro.Steps()
	if len(steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(steps))
	}
	for i, w := range want {
		if steps[i] != w {
			t.Errorf("step %d: got %+v, want %+v", i, steps[i], w)
		}
	}
}

func TestDivide_HeightsNonDecreasing(t *testing.T) {
	rows := [][]float64{
		{0.3, 1.2}, {4.1, 0.7}, {2.2, 3.3}, {0.9, 0.1},
		{3.8, 3.9}, {1.5, 2.7}, {4.4, 2.1}, {0.2, 3.0},
	}
	dendro, err := Divide(mustDistanceMatrix(t, rows))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dendro.Steps()) != len(rows)-1 {
		t.Fatalf("expected %d steps, got %d", len(rows)-1, len(dendro.Steps()))
	}
	if !dendro.Monotonic() {
		t.Errorf("divisive heights should be non-decreasing bottom-up, got %v", dendro.Heights())
	}
}

func TestDivide_CutExtremes(t *testing.T) {
	dendro, err := Divide(mustDistanceMatrix(t, threePairs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all, err := dendro.CutByCount(1)
	if err != nil {
		t.Fatalf("CutByCount(1): %v", err)
	}
	assertPartition(t, all, []int{0, 0, 0, 0, 0, 0})

	singletons, err := dendro.CutByCount(6)
	if err != nil {
		t.Fatalf("CutByCount(6): %v", err)
	}
	assertPartition(t, singletons, []int{0, 1, 2, 3, 4, 5})
}

func TestDivide_AgreesWithAgglomerateOnBimodalData(t *testing.T) {
	// Clearly bimodal: two tight blobs. Both engines must agree on the
	// 2-cluster partition: the blobs are the last to separate top-down and
	// the first to stay merged bottom-up.
	rows := [][]float64{
		{0, 0}, {0, 1}, {1, 0},
		{16, 16}, {16, 17}, {17, 16},
	}
	dm := mustDistanceMatrix(t, rows)

	divisive, err := Divide(dm)
	if err != nil {
		t.Fatalf("Divide: %v", err)
	}
	agglomerative, err := Agglomerate(dm, LinkageComplete)
	if err != nil {
		t.Fatalf("Agglomerate: %v", err)
	}

	divCut, err := divisive.CutByCount(2)
	if err != nil {
		t.Fatalf("divisive CutByCount(2): %v", err)
	}
	aggCut, err := agglomerative.CutByCount(2)
	if err != nil {
		t.Fatalf("agglomerative CutByCount(2): %v", err)
	}
	assertPartition(t, divCut, []int{0, 0, 0, 1, 1, 1})
	assertPartition(t, aggCut, []int{0, 0, 0, 1, 1, 1})
}

func TestDivide_CutByHeightMatchesCount(t *testing.T) {
	// Divisive heights are sorted, so cutting just below the top height
	// must equal the 2-cluster count cut.
	dendro, err := Divide(mustDistanceMatrix(t, threePairs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	heights := dendro.Heights()
	top := heights[len(heights)-1]

	byHeight := dendro.CutByHeight(top - 1e-9)
	byCount, err := dendro.CutByCount(2)
	if err != nil {
		t.Fatalf("CutByCount(2): %v", err)
	}
	assertPartition(t, byHeight, byCount)
}

func TestDivide_NilDistanceMatrix(t *testing.T) {
	if _, err := Divide(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
