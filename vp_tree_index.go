// VP-tree (vantage-point tree) index.
//
// WHAT IS A VP-TREE?
// A binary metric tree. Each node picks one item (the vantage point) and splits
// the remaining items by their distance to it: the closer half goes left, the
// farther half goes right. Only the distance function is needed, so it works
// for strings under edit distance as well as for vectors.
//
// HOW DOES A RADIUS QUERY PRUNE?
// For a query q with radius r and a node with vantage v and threshold t:
//
//	d(q,v) - r <= t  ⇒ the left ball may contain matches, descend left
//	d(q,v) + r >  t  ⇒ the right shell may contain matches, descend right
//
// Both follow from the triangle inequality. When neither holds the whole
// subtree is skipped without a single oracle call.
//
// TIME COMPLEXITY:
//   - Build: O(n log n) oracle calls for balanced splits
//   - Query: O(log n) node visits for small radii, O(n) in the worst case
//   - Self-join: n queries
//
// WHEN TO USE:
//   - Arbitrary metrics (edit distance, L2) with small radii
//   - When a pivot table (LAESA) would need too many pivots to prune well
package simclust

import (
	"context"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Compile-time checks to ensure VPTreeIndex implements PairIndex
var (
	_ PairIndex    = (*VPTreeIndex)(nil)
	_ rangeQuerier = (*VPTreeIndex)(nil)
)

// vpNode is one tree node. Children are positions in the node arena, -1 for none.
//
// Invariant: every id under left has d(id, vantage) <= threshold; every id
// under right has d(id, vantage) > threshold.
type vpNode struct {
	vantage   uint32
	threshold float64
	left      int32
	right     int32
}

// VPTreeIndex answers radius queries over a fixed collection of item ids.
//
// Nodes live in a flat arena addressed by int32, so the tree holds no
// pointers and is read-only once built. Concurrent queries are safe.
type VPTreeIndex struct {
	// metric compares items by id
	metric Metric

	// radius is the default query radius and the self-join threshold
	radius float64

	// nodes is the node arena, one node per item
	nodes []vpNode

	// root is the arena position of the root, -1 for an empty tree
	root int32
}

// NewVPTreeIndex builds a VP-tree over ids 0..n-1.
//
// The vantage of each node is the first remaining id, so the tree is fully
// determined by the input order. The split threshold is the median distance
// from the vantage to the other members of the node.
//
// Parameters:
//   - ctx: checked once per node; cancellation aborts the build
//   - metric: distance between items by id
//   - n: number of items
//   - radius: self-join threshold, must be finite and non-negative
//
// Returns:
//   - *VPTreeIndex: the built tree
//   - error: ErrInvalidThreshold, the context error, or the first oracle failure
func NewVPTreeIndex(ctx context.Context, metric Metric, n int, radius float64) (*VPTreeIndex, error) {
	if radius < 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: radius %v", ErrInvalidThreshold, radius)
	}
	// arena positions are int32
	if n < 0 || int64(n) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyItems, n)
	}

	idx := &VPTreeIndex{
		metric: metric,
		radius: radius,
		nodes:  make([]vpNode, 0, n),
		root:   -1,
	}

	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i)
	}

	root, err := idx.build(ctx, ids)
	if err != nil {
		return nil, err
	}
	idx.root = root
	return idx, nil
}

// build creates the subtree over ids and returns its arena position.
func (idx *VPTreeIndex) build(ctx context.Context, ids []uint32) (int32, error) {
	if len(ids) == 0 {
		return -1, nil
	}
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	pos := int32(len(idx.nodes))
	idx.nodes = append(idx.nodes, vpNode{vantage: ids[0], left: -1, right: -1})

	rest := ids[1:]
	if len(rest) == 0 {
		return pos, nil
	}

	dists := make([]float64, len(rest))
	for i, id := range rest {
		d, err := idx.metric.Distance(ids[0], id)
		if err != nil {
			return -1, err
		}
		dists[i] = d
	}

	sorted := slices.Clone(dists)
	slices.Sort(sorted)
	threshold := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	inner := make([]uint32, 0, len(rest))
	var outer []uint32
	for i, id := range rest {
		if dists[i] <= threshold {
			inner = append(inner, id)
		} else {
			outer = append(outer, id)
		}
	}

	left, err := idx.build(ctx, inner)
	if err != nil {
		return -1, err
	}
	right, err := idx.build(ctx, outer)
	if err != nil {
		return -1, err
	}

	node := &idx.nodes[pos]
	node.threshold = threshold
	node.left = left
	node.right = right
	return pos, nil
}

// rangeQuery visits every eligible id within radius of query.
//
// Traversal uses an explicit stack; each visited node costs exactly one
// oracle call, d(query, vantage).
func (idx *VPTreeIndex) rangeQuery(query uint32, radius float64, filter *IDFilter, visit func(id uint32, d float64)) error {
	if idx.root < 0 {
		return nil
	}

	stack := []int32{idx.root}
	for len(stack) > 0 {
		pos := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &idx.nodes[pos]

		d, err := idx.metric.Distance(query, node.vantage)
		if err != nil {
			return err
		}
		if d <= radius && filter.Admits(node.vantage) {
			visit(node.vantage, d)
		}

		if node.right >= 0 && d+radius > node.threshold {
			stack = append(stack, node.right)
		}
		if node.left >= 0 && d-radius <= node.threshold {
			stack = append(stack, node.left)
		}
	}
	return nil
}

// SelfJoin returns every pair (i, j), i < j, with d(i, j) <= radius.
//
// Each id is queried in ascending order and only matches j > i are kept, so
// every unordered pair is emitted exactly once and never as (i, i). Pairs are
// produced one query at a time, ordered by J within a query.
func (idx *VPTreeIndex) SelfJoin(ctx context.Context) PairStream {
	n := uint32(len(idx.nodes))
	var next uint32
	return newBatchStream(ctx, func() ([]Pair, bool, error) {
		if next >= n {
			return nil, false, nil
		}
		query := next
		next++

		var batch []Pair
		err := idx.rangeQuery(query, idx.radius, nil, func(id uint32, d float64) {
			if id > query {
				batch = append(batch, Pair{I: query, J: id, Score: d})
			}
		})
		if err != nil {
			return nil, false, err
		}
		slices.SortFunc(batch, func(a, b Pair) int { return int(a.J) - int(b.J) })
		return batch, true, nil
	})
}

// NewSearch creates a radius search against the tree. The default radius is
// the one the index was built with.
func (idx *VPTreeIndex) NewSearch() RadiusSearch {
	return newRadiusSearch(idx, idx.radius)
}

// Radius returns the self-join threshold
func (idx *VPTreeIndex) Radius() float64 {
	return idx.radius
}

// Len returns the number of indexed items
func (idx *VPTreeIndex) Len() int {
	return len(idx.nodes)
}

// Kind returns the index strategy
func (idx *VPTreeIndex) Kind() IndexKind {
	return VPTreeIndexKind
}

// Depth returns the number of nodes on the longest root-to-leaf path
func (idx *VPTreeIndex) Depth() int {
	var depth func(pos int32) int
	depth = func(pos int32) int {
		if pos < 0 {
			return 0
		}
		node := &idx.nodes[pos]
		return 1 + max(depth(node.left), depth(node.right))
	}
	return depth(idx.root)
}
