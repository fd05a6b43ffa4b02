package simclust

import (
	"cmp"
	"fmt"
	"slices"
)

// ClusterPolicyKind selects how verified pairs are turned into clusters.
type ClusterPolicyKind string

const (
	// LeaderPolicy lets the first id of an unclaimed pair lead a new cluster;
	// later pairs only add members to existing leaders. Order-sensitive.
	LeaderPolicy ClusterPolicyKind = "leader"

	// FuzzyPolicy grows clusters as pairs arrive and merges whole clusters
	// when a pair bridges them.
	FuzzyPolicy ClusterPolicyKind = "fuzzy"

	// ConnectedComponentsPolicy reports the connected components of the
	// pair graph. Independent of pair order.
	ConnectedComponentsPolicy ClusterPolicyKind = "connected-components"
)

func (k ClusterPolicyKind) validate() error {
	switch k {
	case LeaderPolicy, FuzzyPolicy, ConnectedComponentsPolicy:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPolicyKind, string(k))
	}
}

// ClusterOptions controls which clusters are reported.
type ClusterOptions struct {
	// MinClusterSize drops smaller clusters. Values below 1 mean the default, 2.
	MinClusterSize int

	// IncludeSingletons reports every id not covered by a returned cluster as
	// a cluster of its own.
	IncludeSingletons bool
}

// DefaultClusterOptions reports clusters of two or more ids and no singletons.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{MinClusterSize: 2}
}

// ClusterBuilder consumes verified pairs, in delivery order, and produces
// clusters of ids. A builder is owned by a single goroutine.
type ClusterBuilder interface {
	// Add feeds one verified pair. Pairs with I > J are accepted and swapped.
	// Returns ErrSelfPair for (i, i) and ErrIDOutOfRange for unknown ids,
	// leaving the builder unchanged.
	Add(p Pair) error

	// Clusters returns the clusters built so far. Ids are ascending within a
	// cluster and clusters are ordered by their smallest id.
	Clusters() [][]uint32

	// Policy returns the policy the builder implements
	Policy() ClusterPolicyKind
}

// NewClusterBuilder creates an empty builder over ids 0..n-1.
func NewClusterBuilder(policy ClusterPolicyKind, n int, opts ClusterOptions) (ClusterBuilder, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrIDOutOfRange, n)
	}
	if opts.MinClusterSize < 1 {
		opts.MinClusterSize = 2
	}

	switch policy {
	case LeaderPolicy:
		return newLeaderBuilder(n, opts), nil
	case FuzzyPolicy:
		return newFuzzyBuilder(n, opts), nil
	default:
		return newComponentsBuilder(n, opts), nil
	}
}

// Consume feeds every pair of stream into builder and closes the stream.
func Consume(builder ClusterBuilder, stream PairStream) error {
	defer stream.Close()
	for stream.Next() {
		if err := builder.Add(stream.Pair()); err != nil {
			return err
		}
	}
	return stream.Err()
}

// checkPair validates a pair against n ids and orders it so that I < J.
func checkPair(p Pair, n int) (Pair, error) {
	if p.I == p.J {
		return p, fmt.Errorf("%w: (%d, %d)", ErrSelfPair, p.I, p.J)
	}
	if int(p.I) >= n || int(p.J) >= n {
		return p, fmt.Errorf("%w: (%d, %d) with %d items", ErrIDOutOfRange, p.I, p.J, n)
	}
	return newPair(p.I, p.J, p.Score), nil
}

// finalizeClusters sorts raw groups, applies opts and orders the result.
// Groups are not modified.
func finalizeClusters(groups [][]uint32, n int, opts ClusterOptions) [][]uint32 {
	clusters := make([][]uint32, 0, len(groups))
	covered := make([]bool, n)
	for _, group := range groups {
		if len(group) < opts.MinClusterSize {
			continue
		}
		cluster := slices.Clone(group)
		slices.Sort(cluster)
		for _, id := range cluster {
			covered[id] = true
		}
		clusters = append(clusters, cluster)
	}

	if opts.IncludeSingletons {
		for id, ok := range covered {
			if !ok {
				clusters = append(clusters, []uint32{uint32(id)})
			}
		}
	}

	slices.SortFunc(clusters, func(a, b []uint32) int {
		return cmp.Compare(a[0], b[0])
	})
	return clusters
}
