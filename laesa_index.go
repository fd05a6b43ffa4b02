// LAESA (Linear Approximating and Eliminating Search Algorithm) index.
//
// WHAT IS LAESA?
// A handful of items are chosen as pivots and the distance from every item to
// every pivot is computed once, up front. At query time those tabulated
// distances bound the unknown distance between two items from below:
//
//	d(q,x) >= |d(q,p) - d(x,p)|   for every pivot p
//
// If the best bound already exceeds the radius, x is eliminated without an
// oracle call. Otherwise the real distance is computed and tested.
//
// MEMORY:
//   - n × k table cells (8 bytes each, or 2 with HalfPrecision)
//   - No tree, no pointers: much less than a VP-tree's per-node overhead for small k
//
// TIME COMPLEXITY:
//   - Build: n × k oracle calls, each table cell computed exactly once
//   - Query: O(n × k) arithmetic plus one oracle call per surviving candidate
//
// WHEN TO USE:
//   - Expensive oracles where each avoided call matters more than the O(n) scan
//   - Memory-constrained runs (use HalfPrecision for another 4x)
package simclust

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"
)

// Compile-time checks to ensure LAESAIndex implements PairIndex
var (
	_ PairIndex    = (*LAESAIndex)(nil)
	_ rangeQuerier = (*LAESAIndex)(nil)
)

// PivotSelection represents how LAESA chooses its pivots
type PivotSelection string

const (
	// MaxMinPivots picks pivots greedily, each one the item farthest from all
	// pivots chosen so far. Spread-out pivots give tighter bounds.
	MaxMinPivots PivotSelection = "max-min"

	// RandomPivots samples pivots uniformly with a seeded generator.
	RandomPivots PivotSelection = "random"
)

func (s PivotSelection) validate() error {
	switch s {
	case MaxMinPivots, RandomPivots:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPivotSelection, string(s))
	}
}

// LAESAConfig holds the build parameters of a LAESA index.
type LAESAConfig struct {
	// Radius is the self-join threshold and the default search radius
	Radius float64

	// Pivots is the number of pivots k. 0 picks ceil(log2(n+1)), capped at n-1.
	// An explicit count must be smaller than the number of items.
	Pivots int

	// Selection chooses how pivots are picked
	Selection PivotSelection

	// Precision chooses the pivot table storage format
	Precision PivotPrecision

	// Seed drives RandomPivots
	Seed uint64
}

// DefaultLAESAConfig returns a config with automatic pivot count, max-min
// selection and a full precision table.
func DefaultLAESAConfig(radius float64) LAESAConfig {
	return LAESAConfig{
		Radius:    radius,
		Pivots:    0,
		Selection: MaxMinPivots,
		Precision: FullPrecision,
	}
}

// LAESAIndex answers radius queries by eliminating candidates with
// pivot-based lower bounds. Read-only once built; concurrent queries are safe.
type LAESAIndex struct {
	// metric compares items by id
	metric Metric

	// radius is the default query radius and the self-join threshold
	radius float64

	// n is the number of indexed items
	n int

	// pivots holds the pivot ids in selection order
	pivots []uint32

	// table holds d(id, pivots[p]) for every id and p
	table PivotStore
}

// NewLAESAIndex selects pivots and computes the n×k pivot table.
//
// Parameters:
//   - ctx: checked once per pivot; cancellation aborts the build
//   - metric: distance between items by id
//   - n: number of items
//   - cfg: build parameters
//
// Returns:
//   - *LAESAIndex: the built index
//   - error: a configuration error, the context error, or the first oracle failure
func NewLAESAIndex(ctx context.Context, metric Metric, n int, cfg LAESAConfig) (*LAESAIndex, error) {
	if cfg.Radius < 0 || math.IsNaN(cfg.Radius) || math.IsInf(cfg.Radius, 0) {
		return nil, fmt.Errorf("%w: radius %v", ErrInvalidThreshold, cfg.Radius)
	}
	if n < 0 || uint64(n) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyItems, n)
	}
	if err := cfg.Selection.validate(); err != nil {
		return nil, err
	}
	k, err := pivotCount(cfg.Pivots, n)
	if err != nil {
		return nil, err
	}
	table, err := NewPivotStore(cfg.Precision, n, k)
	if err != nil {
		return nil, err
	}

	idx := &LAESAIndex{
		metric: metric,
		radius: cfg.Radius,
		n:      n,
		table:  table,
	}

	switch cfg.Selection {
	case RandomPivots:
		err = idx.selectRandom(ctx, k, cfg.Seed)
	default:
		err = idx.selectMaxMin(ctx, k)
	}
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// pivotCount resolves the requested pivot count against the collection size.
func pivotCount(requested, n int) (int, error) {
	if requested < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPivotCount, requested)
	}
	if requested == 0 {
		if n <= 1 {
			return 0, nil
		}
		return min(bits.Len(uint(n)), n-1), nil
	}
	if n > 0 && requested >= n {
		return 0, fmt.Errorf("%w: %d pivots for %d items", ErrInvalidPivotCount, requested, n)
	}
	return min(requested, n), nil
}

// fillColumn computes d(id, pivot) for every id into column p.
// minDist, when non-nil, is lowered to the new distances.
func (idx *LAESAIndex) fillColumn(p int, pivot uint32, minDist []float64) error {
	for id := 0; id < idx.n; id++ {
		d, err := idx.metric.Distance(uint32(id), pivot)
		if err != nil {
			return err
		}
		idx.table.Set(id, p, d)
		if minDist != nil && d < minDist[id] {
			minDist[id] = d
		}
	}
	return nil
}

// selectMaxMin performs farthest-first traversal starting from id 0.
// Ties on distance go to the lowest id.
func (idx *LAESAIndex) selectMaxMin(ctx context.Context, k int) error {
	if k == 0 {
		return nil
	}

	minDist := make([]float64, idx.n)
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}
	chosen := make([]bool, idx.n)

	pivot := uint32(0)
	for p := 0; p < k; p++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx.pivots = append(idx.pivots, pivot)
		chosen[pivot] = true
		if err := idx.fillColumn(p, pivot, minDist); err != nil {
			return err
		}

		best := -1.0
		for id := 0; id < idx.n; id++ {
			if !chosen[id] && minDist[id] > best {
				best = minDist[id]
				pivot = uint32(id)
			}
		}
	}
	return nil
}

// selectRandom samples k distinct pivots with a PCG source seeded by seed.
func (idx *LAESAIndex) selectRandom(ctx context.Context, k int, seed uint64) error {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(idx.n)
	for p := 0; p < k; p++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		pivot := uint32(perm[p])
		idx.pivots = append(idx.pivots, pivot)
		if err := idx.fillColumn(p, pivot, nil); err != nil {
			return err
		}
	}
	return nil
}

// lowerBound returns max over pivots of the gap between the distance
// intervals of a and b. It never exceeds d(a, b) for a true metric.
func (idx *LAESAIndex) lowerBound(a, b int) float64 {
	bound := 0.0
	for p := range idx.pivots {
		alo, ahi := idx.table.Bounds(a, p)
		blo, bhi := idx.table.Bounds(b, p)
		bound = max(bound, alo-bhi, blo-ahi)
	}
	return bound
}

// scan visits every eligible id >= from within radius of query. Rows of the
// table stand in for d(query, pivot), so only surviving candidates cost an
// oracle call.
func (idx *LAESAIndex) scan(query uint32, from int, radius float64, filter *IDFilter, visit func(id uint32, d float64)) error {
	for id := from; id < idx.n; id++ {
		if filter.Rejects(uint32(id)) {
			continue
		}
		if idx.lowerBound(int(query), id) > radius {
			continue
		}
		d, err := idx.metric.Distance(query, uint32(id))
		if err != nil {
			return err
		}
		if d <= radius {
			visit(uint32(id), d)
		}
	}
	return nil
}

// rangeQuery visits every eligible id within radius of query.
func (idx *LAESAIndex) rangeQuery(query uint32, radius float64, filter *IDFilter, visit func(id uint32, d float64)) error {
	return idx.scan(query, 0, radius, filter, visit)
}

// SelfJoin returns every pair (i, j), i < j, with d(i, j) <= radius.
// Query i only scans ids above i, so each unordered pair is considered once.
func (idx *LAESAIndex) SelfJoin(ctx context.Context) PairStream {
	var next int
	return newBatchStream(ctx, func() ([]Pair, bool, error) {
		if next >= idx.n {
			return nil, false, nil
		}
		query := uint32(next)
		next++

		var batch []Pair
		err := idx.scan(query, next, idx.radius, nil, func(id uint32, d float64) {
			batch = append(batch, Pair{I: query, J: id, Score: d})
		})
		if err != nil {
			return nil, false, err
		}
		return batch, true, nil
	})
}

// NewSearch creates a radius search against the index. The default radius
// is the one the index was built with.
func (idx *LAESAIndex) NewSearch() RadiusSearch {
	return newRadiusSearch(idx, idx.radius)
}

// Pivots returns the pivot ids in selection order
func (idx *LAESAIndex) Pivots() []uint32 {
	return append([]uint32(nil), idx.pivots...)
}

// Table returns the pivot distance table
func (idx *LAESAIndex) Table() PivotStore {
	return idx.table
}

// Radius returns the self-join threshold
func (idx *LAESAIndex) Radius() float64 {
	return idx.radius
}

// Len returns the number of indexed items
func (idx *LAESAIndex) Len() int {
	return idx.n
}

// Kind returns the index strategy
func (idx *LAESAIndex) Kind() IndexKind {
	return LAESAIndexKind
}
