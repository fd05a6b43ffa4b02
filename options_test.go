package simclust

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsAreValid(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.Validate())
	assert.Equal(t, SimilarityMode, opts.Mode)
	assert.Equal(t, PPJoinPlusIndexKind, opts.Index)
	assert.Equal(t, ConnectedComponentsPolicy, opts.Policy)
	assert.Equal(t, 0.8, opts.Threshold)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr error
	}{
		{name: "unknown mode", mutate: func(o *Options) { o.Mode = "hybrid" }, wantErr: ErrUnknownMode},
		{name: "zero similarity", mutate: func(o *Options) { o.Threshold = 0 }, wantErr: ErrInvalidThreshold},
		{name: "similarity above one", mutate: func(o *Options) { o.Threshold = 1.01 }, wantErr: ErrInvalidThreshold},
		{name: "negative radius", mutate: func(o *Options) {
			o.Mode, o.Index, o.Threshold = DistanceMode, VPTreeIndexKind, -0.5
		}, wantErr: ErrInvalidThreshold},
		{name: "unknown index", mutate: func(o *Options) { o.Index = "lsh" }, wantErr: ErrUnknownIndexKind},
		{name: "metric index in similarity mode", mutate: func(o *Options) { o.Index = LAESAIndexKind }, wantErr: ErrModeMismatch},
		{name: "join in distance mode", mutate: func(o *Options) {
			o.Mode, o.Threshold, o.Index = DistanceMode, 2, AllPairsIndexKind
		}, wantErr: ErrModeMismatch},
		{name: "unknown policy", mutate: func(o *Options) { o.Policy = "kmeans" }, wantErr: ErrUnknownPolicyKind},
		{name: "negative workers", mutate: func(o *Options) { o.Workers = -2 }, wantErr: ErrInvalidWorkers},
		{name: "negative pivots", mutate: func(o *Options) { o.Pivots = -1 }, wantErr: ErrInvalidPivotCount},
		{name: "negative cache", mutate: func(o *Options) { o.DistanceCacheSize = -1 }, wantErr: ErrInvalidCacheSize},
		{name: "unknown selection", mutate: func(o *Options) { o.PivotSelection = "greedy" }, wantErr: ErrUnknownPivotSelection},
		{name: "unknown precision", mutate: func(o *Options) { o.PivotPrecision = "float8" }, wantErr: ErrUnknownPrecision},
		{name: "unknown token order", mutate: func(o *Options) { o.TokenOrder = "random" }, wantErr: ErrUnknownTokenOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			assert.ErrorIs(t, opts.Validate(), tt.wantErr)
		})
	}

	t.Run("brute force in both modes", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Index = BruteForceIndexKind
		require.NoError(t, opts.Validate())

		opts.Mode, opts.Threshold = DistanceMode, 3
		require.NoError(t, opts.Validate())
	})
}

func TestLoadOptions(t *testing.T) {
	doc := `
mode: distance
threshold: 2
index: laesa
policy: leader
workers: 4
pivots: 6
pivot_selection: random
pivot_precision: float16
seed: 99
min_cluster_size: 3
include_singletons: true
distance_cache_size: 1024
`
	opts, err := LoadOptions(strings.NewReader(doc))
	require.NoError(t, err)

	want := DefaultOptions()
	want.Mode = DistanceMode
	want.Threshold = 2
	want.Index = LAESAIndexKind
	want.Policy = LeaderPolicy
	want.Workers = 4
	want.Pivots = 6
	want.PivotSelection = RandomPivots
	want.PivotPrecision = HalfPrecision
	want.Seed = 99
	want.MinClusterSize = 3
	want.IncludeSingletons = true
	want.DistanceCacheSize = 1024
	assert.Equal(t, want, opts)
}

func TestLoadOptionsPartialKeepsDefaults(t *testing.T) {
	opts, err := LoadOptions(strings.NewReader("threshold: 0.6\ntoken_order: frequent-first\n"))
	require.NoError(t, err)

	want := DefaultOptions()
	want.Threshold = 0.6
	want.TokenOrder = FrequentFirst
	assert.Equal(t, want, opts)
}

func TestLoadOptionsEmpty(t *testing.T) {
	opts, err := LoadOptions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)
}

func TestLoadOptionsErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{name: "unknown key", doc: "treshold: 0.5\n"},
		{name: "malformed", doc: "threshold: [1, 2\n"},
		{name: "wrong type", doc: "workers: many\n"},
		{name: "invalid value", doc: "threshold: 0\n", wantErr: ErrInvalidThreshold},
		{name: "mode mismatch", doc: "mode: distance\nthreshold: 1\n", wantErr: ErrModeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadOptions(strings.NewReader(tt.doc))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simclust.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy: fuzzy\nworkers: 2\n"), 0o644))

	opts, err := LoadOptionsFile(path)
	require.NoError(t, err)
	assert.Equal(t, FuzzyPolicy, opts.Policy)
	assert.Equal(t, 2, opts.Workers)

	_, err = LoadOptionsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOptionsClusterOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.MinClusterSize = 4
	opts.IncludeSingletons = true
	assert.Equal(t, ClusterOptions{MinClusterSize: 4, IncludeSingletons: true}, opts.clusterOptions())
}
