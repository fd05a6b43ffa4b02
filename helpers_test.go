package simclust

import (
	"cmp"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// randomWords returns n words of length 1..maxLen over a small alphabet, so
// that many pairs fall within small edit distances.
func randomWords(seed uint64, n, maxLen int, alphabet string) []string {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	words := make([]string, n)
	for i := range words {
		b := make([]byte, 1+rng.IntN(maxLen))
		for j := range b {
			b[j] = alphabet[rng.IntN(len(alphabet))]
		}
		words[i] = string(b)
	}
	return words
}

// randomTokenSets returns n token multisets drawn from a vocabulary of
// vocab tokens, sizes 0..maxLen.
func randomTokenSets(seed uint64, n, maxLen, vocab int) [][]string {
	rng := rand.New(rand.NewPCG(seed, seed+7))
	sets := make([][]string, n)
	for i := range sets {
		size := rng.IntN(maxLen + 1)
		set := make([]string, size)
		for j := range set {
			set[j] = string(rune('a' + rng.IntN(vocab)))
		}
		sets[i] = set
	}
	return sets
}

// randomVectors returns n vectors of dimension dim with components in [0, 1)
func randomVectors(seed uint64, n, dim int) [][]float32 {
	rng := rand.New(rand.NewPCG(seed, seed+3))
	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors[i] = v
	}
	return vectors
}

// editMetric returns an id-based edit distance metric over words
func editMetric(t *testing.T, words []string) Metric {
	t.Helper()
	reg, err := NewRegistry(words)
	require.NoError(t, err)
	return NewMetric(reg, EditDistance)
}

// exhaustiveDistancePairs compares every pair of items directly
func exhaustiveDistancePairs[T any](items []T, oracle DistanceOracle[T], radius float64) [][2]uint32 {
	var out [][2]uint32
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			d, err := oracle.Distance(items[i], items[j])
			if err != nil {
				panic(err)
			}
			if d <= radius {
				out = append(out, [2]uint32{uint32(i), uint32(j)})
			}
		}
	}
	return out
}

// exhaustiveJaccardPairs compares every pair of token sets directly
func exhaustiveJaccardPairs(sets [][]string, threshold float64) [][2]uint32 {
	var out [][2]uint32
	for i := range sets {
		for j := i + 1; j < len(sets); j++ {
			if JaccardSimilarity(sets[i], sets[j]) >= threshold {
				out = append(out, [2]uint32{uint32(i), uint32(j)})
			}
		}
	}
	return out
}

// pairIDs extracts and sorts the id pairs of a pair list
func pairIDs(pairs []Pair) [][2]uint32 {
	out := make([][2]uint32, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, [2]uint32{p.I, p.J})
	}
	slices.SortFunc(out, comparePairIDs)
	return out
}

func comparePairIDs(a, b [2]uint32) int {
	if c := cmp.Compare(a[0], b[0]); c != 0 {
		return c
	}
	return cmp.Compare(a[1], b[1])
}

// requireWellFormed checks that pairs are ordered, never self pairs, and unique
func requireWellFormed(t *testing.T, pairs []Pair) {
	t.Helper()
	seen := make(map[[2]uint32]bool, len(pairs))
	for _, p := range pairs {
		require.Less(t, p.I, p.J, "pair (%d, %d) not ordered", p.I, p.J)
		key := [2]uint32{p.I, p.J}
		require.False(t, seen[key], "pair (%d, %d) emitted twice", p.I, p.J)
		seen[key] = true
	}
}

// countingDistance wraps an oracle and counts its calls
type countingDistance[T any] struct {
	inner DistanceOracle[T]
	calls int
}

func (c *countingDistance[T]) Distance(a, b T) (float64, error) {
	c.calls++
	return c.inner.Distance(a, b)
}

var errOracleBroken = errors.New("oracle broken")

// failingAfter returns a distance oracle that fails after limit calls
func failingAfter(limit int) DistanceOracle[string] {
	calls := 0
	return DistanceFunc[string](func(a, b string) (float64, error) {
		calls++
		if calls > limit {
			return 0, errOracleBroken
		}
		return float64(Levenshtein(a, b)), nil
	})
}
