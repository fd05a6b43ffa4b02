package simclust

import "github.com/RoaringBitmap/roaring"

// Compile-time checks to ensure componentsBuilder implements ClusterBuilder
var _ ClusterBuilder = (*componentsBuilder)(nil)

// componentsBuilder reports the connected components of the pair graph.
//
// Union-find keeps the components; a bitmap remembers which ids appeared in
// any pair, since untouched ids are never reported as components.
type componentsBuilder struct {
	n       int
	opts    ClusterOptions
	uf      *UnionFind
	touched *roaring.Bitmap
}

func newComponentsBuilder(n int, opts ClusterOptions) *componentsBuilder {
	return &componentsBuilder{
		n:       n,
		opts:    opts,
		uf:      NewUnionFind(n),
		touched: roaring.New(),
	}
}

func (b *componentsBuilder) Add(p Pair) error {
	p, err := checkPair(p, b.n)
	if err != nil {
		return err
	}
	b.touched.Add(p.I)
	b.touched.Add(p.J)
	b.uf.Union(p.I, p.J)
	return nil
}

func (b *componentsBuilder) Clusters() [][]uint32 {
	groups := make(map[uint32][]uint32)
	var roots []uint32
	it := b.touched.Iterator()
	for it.HasNext() {
		id := it.Next()
		root := b.uf.Find(id)
		if _, ok := groups[root]; !ok {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], id)
	}

	ordered := make([][]uint32, len(roots))
	for i, root := range roots {
		ordered[i] = groups[root]
	}
	return finalizeClusters(ordered, b.n, b.opts)
}

func (b *componentsBuilder) Policy() ClusterPolicyKind {
	return ConnectedComponentsPolicy
}
