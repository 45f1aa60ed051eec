// Package cluster implements unsupervised partitioning of numeric feature
// vectors: hierarchical clustering (agglomerative and divisive) and k-means,
// plus the evaluation machinery for choosing a cluster count (silhouette
// widths, within-cluster dispersion, the Hartigan index).
//
// Hierarchical clustering runs over a pairwise distance matrix and produces
// a dendrogram that can be cut into a flat partition by cluster count or by
// height:
//
//	m, err := cluster.NewFeatureMatrix(rows)
//	dm, err := cluster.NewDistanceMatrix(m, cluster.EuclideanMetric{}, 0)
//	dendro, err := cluster.Agglomerate(dm, cluster.LinkageComplete)
//	labels, err := dendro.CutByCount(3)
//
// Divide builds an equivalent dendrogram top-down by repeatedly splitting
// the most diffuse cluster. K-means partitions the feature matrix directly:
//
//	cfg := cluster.DefaultKMeansConfig(3)
//	cfg.Seed = 42
//	res, err := cluster.KMeans(m, cfg)
//	// res.Labels, res.Centroids, res.WithinSS
//
// Inputs are expected pre-cleaned and pre-standardized; scaling is the
// caller's responsibility. All algorithms are deterministic given fixed
// inputs and seed.
//
// # Choosing k
//
// Selector sweeps a range of candidate cluster counts and returns the
// curves callers inspect to pick k:
//
//	sel := &cluster.Selector{Features: m}
//	wss, err := sel.WSSCurve(ctx, cluster.KRange{Min: 1, Max: 10}, cluster.SweepKMeans)
//	sil, suggested, err := sel.SilhouetteCurve(ctx, cluster.KRange{Min: 2, Max: 10}, cluster.SweepKMeans)
package cluster
