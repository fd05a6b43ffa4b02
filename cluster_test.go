package simclust

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allPolicies = []ClusterPolicyKind{LeaderPolicy, FuzzyPolicy, ConnectedComponentsPolicy}

func buildClusters(t *testing.T, policy ClusterPolicyKind, n int, opts ClusterOptions, pairs ...Pair) [][]uint32 {
	t.Helper()
	builder, err := NewClusterBuilder(policy, n, opts)
	require.NoError(t, err)
	for _, p := range pairs {
		require.NoError(t, builder.Add(p))
	}
	return builder.Clusters()
}

func randomPairs(seed uint64, n, count int) []Pair {
	rng := rand.New(rand.NewPCG(seed, seed*31))
	pairs := make([]Pair, 0, count)
	for len(pairs) < count {
		i, j := uint32(rng.IntN(n)), uint32(rng.IntN(n))
		if i == j {
			continue
		}
		pairs = append(pairs, newPair(i, j, 0))
	}
	return pairs
}

func TestNewClusterBuilder(t *testing.T) {
	for _, policy := range allPolicies {
		builder, err := NewClusterBuilder(policy, 4, DefaultClusterOptions())
		require.NoError(t, err)
		assert.Equal(t, policy, builder.Policy())
		assert.Empty(t, builder.Clusters())
	}

	_, err := NewClusterBuilder("hierarchical", 4, DefaultClusterOptions())
	assert.ErrorIs(t, err, ErrUnknownPolicyKind)

	_, err = NewClusterBuilder(LeaderPolicy, -1, DefaultClusterOptions())
	assert.ErrorIs(t, err, ErrIDOutOfRange)
}

func TestClusterPolicies(t *testing.T) {
	pairs := []Pair{{I: 0, J: 1}, {I: 1, J: 2}, {I: 0, J: 3}, {I: 2, J: 4}, {I: 3, J: 4}}

	tests := []struct {
		policy ClusterPolicyKind
		want   [][]uint32
	}{
		{policy: LeaderPolicy, want: [][]uint32{{0, 1, 3}, {2, 4}}},
		{policy: FuzzyPolicy, want: [][]uint32{{0, 1, 2, 3, 4}}},
		{policy: ConnectedComponentsPolicy, want: [][]uint32{{0, 1, 2, 3, 4}}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			got := buildClusters(t, tt.policy, 6, DefaultClusterOptions(), pairs...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLeaderIsOrderSensitive(t *testing.T) {
	forward := buildClusters(t, LeaderPolicy, 3, DefaultClusterOptions(), Pair{I: 0, J: 1}, Pair{I: 1, J: 2})
	assert.Equal(t, [][]uint32{{0, 1}}, forward)

	backward := buildClusters(t, LeaderPolicy, 3, DefaultClusterOptions(), Pair{I: 1, J: 2}, Pair{I: 0, J: 1})
	assert.Equal(t, [][]uint32{{1, 2}}, backward)
}

func TestLeaderClustersAreStars(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		pairs := randomPairs(seed, 60, 120)
		edges := make(map[[2]uint32]bool, len(pairs))
		for _, p := range pairs {
			edges[[2]uint32{p.I, p.J}] = true
		}

		clusters := buildClusters(t, LeaderPolicy, 60, DefaultClusterOptions(), pairs...)
		seen := make(map[uint32]bool)
		for _, cluster := range clusters {
			for _, id := range cluster {
				assert.False(t, seen[id], "id %d in two clusters", id)
				seen[id] = true
			}

			// some member must be paired with every other member
			hasLeader := false
			for _, leader := range cluster {
				star := true
				for _, id := range cluster {
					if id != leader && !edges[[2]uint32{min(id, leader), max(id, leader)}] {
						star = false
						break
					}
				}
				if star {
					hasLeader = true
					break
				}
			}
			assert.True(t, hasLeader, "cluster %v has no leader", cluster)
		}
	}
}

func TestFuzzyMatchesComponents(t *testing.T) {
	for seed := uint64(1); seed <= 8; seed++ {
		pairs := randomPairs(seed, 100, 70)
		opts := ClusterOptions{MinClusterSize: 1, IncludeSingletons: true}

		fuzzy := buildClusters(t, FuzzyPolicy, 100, opts, pairs...)
		components := buildClusters(t, ConnectedComponentsPolicy, 100, opts, pairs...)
		assert.Equal(t, components, fuzzy, "seed %d", seed)
	}
}

func TestFuzzyMergesClusters(t *testing.T) {
	builder, err := NewClusterBuilder(FuzzyPolicy, 6, DefaultClusterOptions())
	require.NoError(t, err)

	for _, p := range []Pair{{I: 0, J: 1}, {I: 2, J: 3}, {I: 4, J: 5}} {
		require.NoError(t, builder.Add(p))
	}
	assert.Equal(t, [][]uint32{{0, 1}, {2, 3}, {4, 5}}, builder.Clusters())

	require.NoError(t, builder.Add(Pair{I: 1, J: 2}))
	assert.Equal(t, [][]uint32{{0, 1, 2, 3}, {4, 5}}, builder.Clusters())

	require.NoError(t, builder.Add(Pair{I: 3, J: 5}))
	assert.Equal(t, [][]uint32{{0, 1, 2, 3, 4, 5}}, builder.Clusters())
}

func TestComponentsIgnoreOrder(t *testing.T) {
	pairs := randomPairs(9, 80, 60)
	want := buildClusters(t, ConnectedComponentsPolicy, 80, DefaultClusterOptions(), pairs...)

	rng := rand.New(rand.NewPCG(1, 1))
	for range 5 {
		rng.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
		assert.Equal(t, want, buildClusters(t, ConnectedComponentsPolicy, 80, DefaultClusterOptions(), pairs...))
	}
}

func TestClusterBuilderIdempotentPairs(t *testing.T) {
	pairs := []Pair{{I: 0, J: 1}, {I: 1, J: 2}, {I: 3, J: 4}}
	for _, policy := range allPolicies {
		once := buildClusters(t, policy, 5, DefaultClusterOptions(), pairs...)
		twice := buildClusters(t, policy, 5, DefaultClusterOptions(), append(pairs, pairs...)...)
		assert.Equal(t, once, twice, "policy %s", policy)
	}
}

func TestClusterBuilderRejectsBadPairs(t *testing.T) {
	for _, policy := range allPolicies {
		t.Run(string(policy), func(t *testing.T) {
			builder, err := NewClusterBuilder(policy, 3, DefaultClusterOptions())
			require.NoError(t, err)

			assert.ErrorIs(t, builder.Add(Pair{I: 1, J: 1}), ErrSelfPair)
			assert.ErrorIs(t, builder.Add(Pair{I: 0, J: 3}), ErrIDOutOfRange)
			assert.ErrorIs(t, builder.Add(Pair{I: 7, J: 1}), ErrIDOutOfRange)
			assert.Empty(t, builder.Clusters(), "rejected pairs leave no trace")

			require.NoError(t, builder.Add(Pair{I: 2, J: 0}))
			assert.Equal(t, [][]uint32{{0, 2}}, builder.Clusters())
		})
	}
}

func TestClusterOptions(t *testing.T) {
	pairs := []Pair{{I: 0, J: 1}, {I: 2, J: 3}, {I: 3, J: 4}}

	for _, policy := range []ClusterPolicyKind{FuzzyPolicy, ConnectedComponentsPolicy} {
		t.Run(string(policy), func(t *testing.T) {
			got := buildClusters(t, policy, 6, ClusterOptions{MinClusterSize: 3}, pairs...)
			assert.Equal(t, [][]uint32{{2, 3, 4}}, got)

			got = buildClusters(t, policy, 6, ClusterOptions{MinClusterSize: 3, IncludeSingletons: true}, pairs...)
			assert.Equal(t, [][]uint32{{0}, {1}, {2, 3, 4}, {5}}, got)

			got = buildClusters(t, policy, 6, ClusterOptions{IncludeSingletons: true}, pairs...)
			assert.Equal(t, [][]uint32{{0, 1}, {2, 3, 4}, {5}}, got)

			got = buildClusters(t, policy, 6, ClusterOptions{MinClusterSize: 0}, pairs...)
			assert.Equal(t, [][]uint32{{0, 1}, {2, 3, 4}}, got, "sizes below 1 mean the default")
		})
	}

	got := buildClusters(t, LeaderPolicy, 0, ClusterOptions{IncludeSingletons: true})
	assert.Empty(t, got)
}

func TestClustersDoNotMutateBuilder(t *testing.T) {
	for _, policy := range allPolicies {
		builder, err := NewClusterBuilder(policy, 5, DefaultClusterOptions())
		require.NoError(t, err)
		require.NoError(t, builder.Add(Pair{I: 3, J: 1}))
		require.NoError(t, builder.Add(Pair{I: 1, J: 0}))

		first := builder.Clusters()
		first[0][0] = 99
		assert.NotEqual(t, first, builder.Clusters(), "policy %s", policy)
	}
}

func TestConsume(t *testing.T) {
	builder, err := NewClusterBuilder(ConnectedComponentsPolicy, 4, DefaultClusterOptions())
	require.NoError(t, err)

	require.NoError(t, Consume(builder, NewSliceStream([]Pair{{I: 0, J: 1}, {I: 1, J: 2}})))
	assert.Equal(t, [][]uint32{{0, 1, 2}}, builder.Clusters())

	err = Consume(builder, NewSliceStream([]Pair{{I: 3, J: 3}}))
	assert.ErrorIs(t, err, ErrSelfPair)

	failing := newBatchStream(context.Background(), func() ([]Pair, bool, error) {
		return nil, false, errOracleBroken
	})
	assert.ErrorIs(t, Consume(builder, failing), errOracleBroken)
}

func TestClusterPipelineOnIndexes(t *testing.T) {
	words := randomWords(21, 150, 5, "abc")
	idx, err := NewVPTreeIndex(context.Background(), editMetric(t, words), len(words), 1)
	require.NoError(t, err)

	builder, err := NewClusterBuilder(ConnectedComponentsPolicy, len(words), DefaultClusterOptions())
	require.NoError(t, err)
	require.NoError(t, Consume(builder, idx.SelfJoin(context.Background())))

	var exhaustive []Pair
	for _, ids := range exhaustiveDistancePairs(words, EditDistance, 1) {
		exhaustive = append(exhaustive, Pair{I: ids[0], J: ids[1]})
	}
	want := buildClusters(t, ConnectedComponentsPolicy, len(words), DefaultClusterOptions(), exhaustive...)
	assert.Equal(t, want, builder.Clusters())
}
