package simclust

// UnionFind is a disjoint-set forest over ids 0..n-1.
//
// # PATH COMPRESSION + UNION BY RANK
//
// Find points every visited node at its grandparent (path halving), and Union
// hangs the shallower tree under the deeper one. Together they keep every
// operation at amortized O(α(n)), effectively constant.
//
// Not safe for concurrent mutation; a single consumer owns it.
type UnionFind struct {
	parent []uint32
	rank   []uint8
	size   []uint32
}

// NewUnionFind creates n singleton sets
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{
		parent: make([]uint32, n),
		rank:   make([]uint8, n),
		size:   make([]uint32, n),
	}
	for i := range uf.parent {
		uf.parent[i] = uint32(i)
		uf.size[i] = 1
	}
	return uf
}

// Find returns the representative of the set containing x
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing a and b and reports whether they were
// distinct.
func (uf *UnionFind) Union(a, b uint32) bool {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return false
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
	return true
}

// Connected reports whether a and b are in the same set
func (uf *UnionFind) Connected(a, b uint32) bool {
	return uf.Find(a) == uf.Find(b)
}

// SetSize returns the size of the set containing x
func (uf *UnionFind) SetSize(x uint32) int {
	return int(uf.size[uf.Find(x)])
}

// Len returns the number of elements
func (uf *UnionFind) Len() int {
	return len(uf.parent)
}
