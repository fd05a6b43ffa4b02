package simclust

import (
	"context"
	"fmt"
)

// Mode selects how items are compared.
type Mode string

const (
	// DistanceMode compares items with a DistanceOracle and keeps pairs whose
	// distance is at most the threshold (a radius).
	DistanceMode Mode = "distance"

	// SimilarityMode compares items by similarity and keeps pairs whose
	// similarity is at least the threshold.
	SimilarityMode Mode = "similarity"
)

// IndexKind represents the candidate-pair generation strategy.
// Different strategies offer different tradeoffs between build cost, memory and pruning power.
type IndexKind string

const (
	// VPTreeIndexKind is a vantage-point tree answering radius queries under any metric.
	VPTreeIndexKind IndexKind = "vp-tree"

	// LAESAIndexKind precomputes distances to a fixed set of pivots and prunes with
	// triangle-inequality lower bounds. Uses less memory than a tree.
	LAESAIndexKind IndexKind = "laesa"

	// AllPairsIndexKind is the prefix-filtered set-similarity join.
	AllPairsIndexKind IndexKind = "all-pairs"

	// PPJoinIndexKind adds positional filtering to AllPairsIndexKind.
	PPJoinIndexKind IndexKind = "ppjoin"

	// PPJoinPlusIndexKind adds suffix filtering to PPJoinIndexKind.
	PPJoinPlusIndexKind IndexKind = "ppjoin-plus"

	// BruteForceIndexKind compares every pair. Exhaustive, used as a baseline and
	// for small collections.
	BruteForceIndexKind IndexKind = "brute-force"
)

// Supports reports whether the strategy can run in the given mode.
func (k IndexKind) Supports(mode Mode) bool {
	switch k {
	case VPTreeIndexKind, LAESAIndexKind:
		return mode == DistanceMode
	case AllPairsIndexKind, PPJoinIndexKind, PPJoinPlusIndexKind:
		return mode == SimilarityMode
	case BruteForceIndexKind:
		return mode == DistanceMode || mode == SimilarityMode
	default:
		return false
	}
}

func (k IndexKind) validate() error {
	switch k {
	case VPTreeIndexKind, LAESAIndexKind, AllPairsIndexKind, PPJoinIndexKind, PPJoinPlusIndexKind, BruteForceIndexKind:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIndexKind, string(k))
	}
}

// PairIndex is implemented by every index that can enumerate the pairs of its
// own collection satisfying a threshold.
//
// An index is built once over a fixed snapshot and is read-only afterwards, so
// concurrent queries against a built index are safe.
type PairIndex interface {
	// Kind returns the index strategy
	Kind() IndexKind

	// Len returns the number of indexed items
	Len() int

	// SelfJoin returns a single-pass stream of pairs (i, j), i < j, each
	// emitted at most once.
	SelfJoin(ctx context.Context) PairStream
}
