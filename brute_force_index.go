// Brute-force pair index.
//
// WHAT IS IT?
// The pair-join counterpart of a flat index: every unordered pair (i, j) is
// compared, nothing is pruned. It is the exhaustive baseline the pruning
// indexes are checked against, and the natural workload for parallel
// verification since its candidates are all independent.
//
// TIME COMPLEXITY:
//   - Build: O(1)
//   - Self-join: n(n-1)/2 oracle calls
//
// GUARANTEES & TRADE-OFFS:
// ✓ Pros:
//   - Exact in both modes, with any comparator (no metric axioms needed)
//   - Verification parallelizes perfectly
//
// ✗ Cons:
//   - Quadratic, only practical for small collections
package simclust

import (
	"context"
	"fmt"
	"math"
)

// Compile-time checks to ensure BruteForceIndex implements PairIndex
var _ PairIndex = (*BruteForceIndex)(nil)

// BruteForceIndex enumerates and checks every pair of a collection.
type BruteForceIndex struct {
	n         int
	mode      Mode
	threshold float64
	score     func(i, j uint32) (float64, error)
}

// NewBruteForceIndex creates a distance-mode brute-force index keeping pairs
// with d(i, j) <= radius.
func NewBruteForceIndex(metric Metric, n int, radius float64) (*BruteForceIndex, error) {
	if radius < 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: radius %v", ErrInvalidThreshold, radius)
	}
	if n < 0 || uint64(n) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyItems, n)
	}
	return &BruteForceIndex{n: n, mode: DistanceMode, threshold: radius, score: metric.Distance}, nil
}

// NewBruteForceSimilarityIndex creates a similarity-mode brute-force index
// keeping pairs with sim(i, j) >= threshold.
func NewBruteForceSimilarityIndex(sim SimilarityMetric, n int, threshold float64) (*BruteForceIndex, error) {
	if !(threshold > 0 && threshold <= 1) {
		return nil, fmt.Errorf("%w: similarity %v not in (0, 1]", ErrInvalidThreshold, threshold)
	}
	if n < 0 || uint64(n) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyItems, n)
	}
	return &BruteForceIndex{n: n, mode: SimilarityMode, threshold: threshold, score: sim.Similarity}, nil
}

// Candidates returns every pair (i, j), i < j, unscored. Feed it through
// VerifyPairs with Check to score and filter, possibly in parallel.
func (idx *BruteForceIndex) Candidates(ctx context.Context) PairStream {
	var next uint32
	return newBatchStream(ctx, func() ([]Pair, bool, error) {
		if int(next) >= idx.n {
			return nil, false, nil
		}
		i := next
		next++

		batch := make([]Pair, 0, idx.n-int(next))
		for j := next; int(j) < idx.n; j++ {
			batch = append(batch, Pair{I: i, J: j})
		}
		return batch, true, nil
	})
}

// Check scores a candidate and reports whether it meets the threshold.
// It is safe for concurrent use when the underlying comparator is.
func (idx *BruteForceIndex) Check(p Pair) (Pair, bool, error) {
	score, err := idx.score(p.I, p.J)
	if err != nil {
		return p, false, err
	}
	p.Score = score
	if idx.mode == DistanceMode {
		return p, score <= idx.threshold, nil
	}
	return p, score >= idx.threshold, nil
}

// SelfJoin returns every pair (i, j), i < j, meeting the threshold, checked
// sequentially.
func (idx *BruteForceIndex) SelfJoin(ctx context.Context) PairStream {
	return VerifyPairs(ctx, idx.Candidates(ctx), idx.Check, 1)
}

// Mode returns the comparison mode
func (idx *BruteForceIndex) Mode() Mode {
	return idx.mode
}

// Len returns the number of indexed items
func (idx *BruteForceIndex) Len() int {
	return idx.n
}

// Kind returns the index strategy
func (idx *BruteForceIndex) Kind() IndexKind {
	return BruteForceIndexKind
}
