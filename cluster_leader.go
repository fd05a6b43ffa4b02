package simclust

import "github.com/RoaringBitmap/roaring"

// Compile-time checks to ensure leaderBuilder implements ClusterBuilder
var _ ClusterBuilder = (*leaderBuilder)(nil)

// leaderBuilder assigns ids to leaders on a first-come basis.
//
// For a pair (i, j), in delivery order:
//   - i and j both unclaimed: i leads a new cluster {i, j}
//   - i leads a cluster and j is unclaimed: j joins it
//   - anything else is ignored; a claimed id is never reassigned
type leaderBuilder struct {
	n    int
	opts ClusterOptions

	// claimed holds every id that is a leader or a member
	claimed *roaring.Bitmap

	// leaders maps a leader id to its cluster position
	leaders map[uint32]int

	clusters [][]uint32
}

func newLeaderBuilder(n int, opts ClusterOptions) *leaderBuilder {
	return &leaderBuilder{
		n:       n,
		opts:    opts,
		claimed: roaring.New(),
		leaders: make(map[uint32]int),
	}
}

func (b *leaderBuilder) Add(p Pair) error {
	p, err := checkPair(p, b.n)
	if err != nil {
		return err
	}
	if b.claimed.Contains(p.J) {
		return nil
	}

	if pos, ok := b.leaders[p.I]; ok {
		b.clusters[pos] = append(b.clusters[pos], p.J)
		b.claimed.Add(p.J)
		return nil
	}
	if b.claimed.Contains(p.I) {
		return nil
	}

	b.leaders[p.I] = len(b.clusters)
	b.clusters = append(b.clusters, []uint32{p.I, p.J})
	b.claimed.Add(p.I)
	b.claimed.Add(p.J)
	return nil
}

func (b *leaderBuilder) Clusters() [][]uint32 {
	return finalizeClusters(b.clusters, b.n, b.opts)
}

func (b *leaderBuilder) Policy() ClusterPolicyKind {
	return LeaderPolicy
}
