package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobSelector(t *testing.T) *Selector {
	t.Helper()
	m := mustFeatureMatrix(t, [][]float64{
		{0, 0}, {0, 1}, {1, 0},
		{16, 16}, {16, 17}, {17, 16},
		{32, 0}, {32, 1}, {33, 0},
	})
	cfg := DefaultKMeansConfig(0)
	cfg.Seed = 42
	return &Selector{Features: m, KMeans: cfg, Workers: 2}
}

func TestWSSCurve_LinkageCutsNonIncreasing(t *testing.T) {
	sel := blobSelector(t)
	points, err := sel.WSSCurve(context.Background(), KRange{Min: 1, Max: 5}, SweepLinkage)
	require.NoError(t, err)
	require.Len(t, points, 5)

	for i, p := range points {
		assert.Equal(t, i+1, p.K)
		assert.GreaterOrEqual(t, p.Score, 0.0)
	}
	// Refining a nested cut never raises the within-cluster dispersion.
	for i := 1; i < len(points); i++ {
		assert.LessOrEqual(t, points[i].Score, points[i-1].Score,
			"WSS rose from k=%d to k=%d", points[i-1].K, points[i].K)
	}
}

func TestWSSCurve_KMeansSource(t *testing.T) {
	sel := blobSelector(t)
	points, err := sel.WSSCurve(context.Background(), KRange{Min: 2, Max: 4}, SweepKMeans)
	require.NoError(t, err)
	require.Len(t, points, 3)
	for i, p := range points {
		assert.Equal(t, i+2, p.K)
		assert.GreaterOrEqual(t, p.Score, 0.0)
	}
}

func TestHartiganCurve_DefinedValues(t *testing.T) {
	sel := blobSelector(t)
	points, err := sel.HartiganCurve(context.Background(), KRange{Min: 1, Max: 3}, SweepLinkage)
	require.NoError(t, err)
	require.Len(t, points, 3)

	// n=9: H(k) = ((WSS(k)/WSS(k+1)) - 1) * (9-k-1). Dropping from one
	// blob-splitting cut to the next is a large improvement, so H stays
	// positive and defined while WSS(k+1) > 0.
	for _, p := range points {
		assert.Truef(t, p.Defined, "H(%d) should be defined", p.K)
		assert.GreaterOrEqual(t, p.Score, 0.0)
	}
}

func TestHartiganCurve_FlagsZeroWSS(t *testing.T) {
	// Two duplicate pairs: the 2-cluster cut has zero dispersion, so
	// H(1) needs WSS(2)=0 and must be flagged rather than divided.
	m := mustFeatureMatrix(t, [][]float64{{0}, {0}, {5}, {5}})
	sel := &Selector{Features: m}

	points, err := sel.HartiganCurve(context.Background(), KRange{Min: 1, Max: 1}, SweepLinkage)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.False(t, points[0].Defined)
	assert.Zero(t, points[0].Score)
}

func TestHartiganCurve_RangeMustLeaveRoom(t *testing.T) {
	m := mustFeatureMatrix(t, [][]float64{{0}, {1}, {2}})
	sel := &Selector{Features: m}
	_, err := sel.HartiganCurve(context.Background(), KRange{Min: 1, Max: 3}, SweepLinkage)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSilhouetteCurve_SuggestsBlobCount(t *testing.T) {
	sel := blobSelector(t)
	points, suggested, err := sel.SilhouetteCurve(context.Background(), KRange{Min: 2, Max: 5}, SweepLinkage)
	require.NoError(t, err)
	require.Len(t, points, 4)

	assert.Equal(t, 3, suggested, "three blobs should maximize the average width")
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Score, -1.0)
		assert.LessOrEqual(t, p.Score, 1.0)
	}
}

func TestSilhouetteCurve_KMeansSource(t *testing.T) {
	// Two blobs: any distinct-row init converges to the blob split at k=2,
	// and any k=3 partition has to cut a blob, scoring strictly lower.
	m := mustFeatureMatrix(t, [][]float64{
		{0, 0}, {0, 1}, {1, 0}, {1, 1},
		{16, 16}, {16, 17}, {17, 16}, {17, 17},
	})
	cfg := DefaultKMeansConfig(0)
	cfg.Seed = 9
	sel := &Selector{Features: m, KMeans: cfg}

	_, suggested, err := sel.SilhouetteCurve(context.Background(), KRange{Min: 2, Max: 3}, SweepKMeans)
	require.NoError(t, err)
	assert.Equal(t, 2, suggested)
}

func TestSelector_CancelledContext(t *testing.T) {
	sel := blobSelector(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	points, err := sel.WSSCurve(ctx, KRange{Min: 1, Max: 5}, SweepKMeans)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, points)
}

func TestSelector_InvalidRanges(t *testing.T) {
	sel := blobSelector(t)

	_, err := sel.WSSCurve(context.Background(), KRange{Min: 0, Max: 3}, SweepKMeans)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = sel.WSSCurve(context.Background(), KRange{Min: 3, Max: 2}, SweepKMeans)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = sel.WSSCurve(context.Background(), KRange{Min: 1, Max: 10}, SweepKMeans)
	require.ErrorIs(t, err, ErrInvalidInput)

	missing := &Selector{}
	_, err = missing.WSSCurve(context.Background(), KRange{Min: 1, Max: 2}, SweepKMeans)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSelector_UnknownSource(t *testing.T) {
	sel := blobSelector(t)
	_, err := sel.WSSCurve(context.Background(), KRange{Min: 1, Max: 2}, SweepSource("dbscan"))
	require.ErrorIs(t, err, ErrInvalidInput)
}
