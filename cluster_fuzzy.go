package simclust

// Compile-time checks to ensure fuzzyBuilder implements ClusterBuilder
var _ ClusterBuilder = (*fuzzyBuilder)(nil)

// unclustered marks an id that belongs to no fuzzy cluster yet
const unclustered = -1

// fuzzyBuilder grows clusters transitively as pairs arrive.
//
// Clusters live in an arena indexed by position. Merging moves the ids of the
// smaller cluster into the larger one, repoints their clusterOf entries and
// leaves the emptied slot nil; positions are never reused.
type fuzzyBuilder struct {
	n    int
	opts ClusterOptions

	// clusters is the arena; nil entries were merged away
	clusters [][]uint32

	// clusterOf[id] is the arena position of the cluster holding id
	clusterOf []int32
}

func newFuzzyBuilder(n int, opts ClusterOptions) *fuzzyBuilder {
	clusterOf := make([]int32, n)
	for i := range clusterOf {
		clusterOf[i] = unclustered
	}
	return &fuzzyBuilder{n: n, opts: opts, clusterOf: clusterOf}
}

func (b *fuzzyBuilder) Add(p Pair) error {
	p, err := checkPair(p, b.n)
	if err != nil {
		return err
	}

	ci, cj := b.clusterOf[p.I], b.clusterOf[p.J]
	switch {
	case ci == unclustered && cj == unclustered:
		pos := int32(len(b.clusters))
		b.clusters = append(b.clusters, []uint32{p.I, p.J})
		b.clusterOf[p.I] = pos
		b.clusterOf[p.J] = pos
	case cj == unclustered:
		b.join(ci, p.J)
	case ci == unclustered:
		b.join(cj, p.I)
	case ci != cj:
		b.merge(ci, cj)
	}
	return nil
}

// join adds id to the cluster at pos
func (b *fuzzyBuilder) join(pos int32, id uint32) {
	b.clusters[pos] = append(b.clusters[pos], id)
	b.clusterOf[id] = pos
}

// merge moves the smaller of two clusters into the larger one
func (b *fuzzyBuilder) merge(a, c int32) {
	if len(b.clusters[a]) < len(b.clusters[c]) {
		a, c = c, a
	}
	for _, id := range b.clusters[c] {
		b.join(a, id)
	}
	b.clusters[c] = nil
}

func (b *fuzzyBuilder) Clusters() [][]uint32 {
	live := make([][]uint32, 0, len(b.clusters))
	for _, cluster := range b.clusters {
		if cluster != nil {
			live = append(live, cluster)
		}
	}
	return finalizeClusters(live, b.n, b.opts)
}

func (b *fuzzyBuilder) Policy() ClusterPolicyKind {
	return FuzzyPolicy
}
