package simclust

import (
	"fmt"

	"github.com/viterin/vek/vek32"
)

// Built-in oracles. Singletons are stateless and can be safely reused across goroutines.
var (
	// EditDistance is the Levenshtein distance between two strings, counted in
	// runes. It is a true metric and can back VPTreeIndex and LAESAIndex.
	EditDistance DistanceOracle[string] = DistanceFunc[string](func(a, b string) (float64, error) {
		return float64(Levenshtein(a, b)), nil
	})

	// EuclideanDistance is the L2 distance between two vectors of equal length.
	EuclideanDistance DistanceOracle[[]float32] = DistanceFunc[[]float32](euclidean)
)

// euclidean computes sqrt(sum((a[i] - b[i])^2)).
// Time complexity: O(n) where n is the vector dimension
func euclidean(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return float64(vek32.Distance(a, b)), nil
}

// Levenshtein returns the minimum number of single-rune insertions, deletions
// and substitutions turning a into b.
//
// Uses the two-row dynamic program.
// Time complexity: O(|a| × |b|), memory O(min(|a|, |b|))
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// JaccardSimilarity returns |A∩B| / |A∪B| over token multisets: a token
// repeated k times in one set and m times in the other contributes min(k, m)
// to the intersection and max(k, m) to the union.
//
// Two empty multisets have similarity 0, so empty items never pair.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	counts := make(map[string]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	overlap := 0
	for _, t := range b {
		if counts[t] > 0 {
			counts[t]--
			overlap++
		}
	}
	return jaccardFromOverlap(overlap, len(a), len(b))
}

// jaccardFromOverlap is the single place where a Jaccard score is computed
// from set sizes, so every join variant and the brute-force baseline round
// identically.
func jaccardFromOverlap(overlap, lenA, lenB int) float64 {
	union := lenA + lenB - overlap
	if union <= 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}

// TokenJaccard returns a SimilarityOracle computing multiset Jaccard
// similarity over the tokens produced by tokenizer.
func TokenJaccard[T any](tokenizer Tokenizer[T]) SimilarityOracle[T] {
	return SimilarityFunc[T](func(a, b T) (float64, error) {
		return JaccardSimilarity(tokenizer.Tokenize(a), tokenizer.Tokenize(b)), nil
	})
}
