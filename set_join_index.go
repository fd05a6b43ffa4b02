// Set-similarity join index (All-Pairs, PPJoin, PPJoin+).
//
// WHAT IS A SET-SIMILARITY JOIN?
// Given token sets and a Jaccard threshold t, find every pair with
// J(x,y) = |x∩y| / |x∪y| >= t without comparing every pair.
//
// HOW DOES IT PRUNE?
// Tokens are ranked by a global order and every set is sorted by rank.
// Sets are processed by ascending size. For each set x:
//
//  1. PREFIX FILTER: if J(x,y) >= t, x and y must share a token among the
//     first |x| - ⌈t|x|⌉ + 1 tokens of x. Only those tokens are probed.
//  2. LENGTH FILTER: a set y with |y| < ⌈t|x|⌉ cannot reach t, so each
//     inverted list is skipped up to the first set long enough.
//  3. POSITIONAL FILTER (PPJoin): a match at position i of x and j of y
//     leaves room for at most 1 + min(|x|-i-1, |y|-j-1) more common tokens.
//     If that cannot reach the required overlap α = ⌈t/(1+t)·(|x|+|y|)⌉
//     the candidate is dropped.
//  4. SUFFIX FILTER (PPJoin+): on the first match, a recursive partition of
//     the unprobed suffixes bounds their Hamming distance from below.
//
// Survivors are verified by an exact merge intersection. All three variants
// return the same pairs; they only differ in how many candidates reach
// verification.
//
// TIME COMPLEXITY:
//   - Build: O(Σ|x| log V) for ranking and sorting, V distinct tokens
//   - Join: output-sensitive; worst case O(n²) candidates for t close to 0
//
// WHEN TO USE:
//   - Token-set similarity (n-grams, words) with thresholds around 0.5 and up
package simclust

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
)

// Compile-time checks to ensure SetJoinIndex implements PairIndex
var _ PairIndex = (*SetJoinIndex)(nil)

// ceilEpsilon absorbs floating point error in t·|x| products, so a product
// that should be an integer is never rounded up past it. Rounding down only
// weakens a filter, never makes it drop a true match.
const ceilEpsilon = 1e-9

func ceilT(v float64) int {
	return int(math.Ceil(v - ceilEpsilon))
}

// SetJoinConfig holds the parameters of a set-similarity join.
type SetJoinConfig struct {
	// Threshold is the minimum Jaccard similarity, in (0, 1]
	Threshold float64

	// Order is the global token order used when Ranking is empty
	Order TokenOrder

	// Ranking optionally supplies a precomputed rank per token, lowest first.
	// Tokens missing from it are ranked after all listed tokens, by Order.
	Ranking map[string]int
}

// DefaultSetJoinConfig returns a config with rare-first token order.
func DefaultSetJoinConfig(threshold float64) SetJoinConfig {
	return SetJoinConfig{
		Threshold: threshold,
		Order:     RareFirst,
	}
}

// SetJoinIndex joins a fixed collection of token multisets with itself.
// Read-only once built; every SelfJoin call runs an independent join.
type SetJoinIndex struct {
	// kind selects All-Pairs, PPJoin or PPJoin+
	kind IndexKind

	// threshold is the minimum Jaccard similarity
	threshold float64

	// inverted holds the full postings and document frequencies
	inverted *InvertedIndex

	// records[id] is the ascending global ranks of the token keys of id
	records [][]int32

	// vocabulary is the number of distinct token keys
	vocabulary int

	// order is the processing order: ascending size, ties by id
	order []uint32
}

// NewSetJoinIndex ranks the tokens of every set and prepares the join.
//
// Parameters:
//   - kind: AllPairsIndexKind, PPJoinIndexKind or PPJoinPlusIndexKind
//   - tokenSets: tokenSets[id] is the token multiset of item id
//   - cfg: threshold and token order
//
// Returns:
//   - *SetJoinIndex: the prepared join
//   - error: ErrUnknownIndexKind, ErrModeMismatch, ErrInvalidThreshold or ErrUnknownTokenOrder
func NewSetJoinIndex(kind IndexKind, tokenSets [][]string, cfg SetJoinConfig) (*SetJoinIndex, error) {
	if err := kind.validate(); err != nil {
		return nil, err
	}
	if kind != AllPairsIndexKind && kind != PPJoinIndexKind && kind != PPJoinPlusIndexKind {
		return nil, fmt.Errorf("%w: %s is not a set-similarity join", ErrModeMismatch, kind)
	}
	if !(cfg.Threshold > 0 && cfg.Threshold <= 1) {
		return nil, fmt.Errorf("%w: similarity %v not in (0, 1]", ErrInvalidThreshold, cfg.Threshold)
	}
	if uint64(len(tokenSets)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyItems, len(tokenSets))
	}

	inverted := NewInvertedIndex(tokenSets)
	ranking, err := rankTokens(inverted, cfg)
	if err != nil {
		return nil, err
	}

	idx := &SetJoinIndex{
		kind:       kind,
		threshold:  cfg.Threshold,
		inverted:   inverted,
		records:    make([][]int32, len(tokenSets)),
		vocabulary: len(ranking),
		order:      make([]uint32, len(tokenSets)),
	}

	for id := range tokenSets {
		keys := inverted.Record(uint32(id))
		record := make([]int32, len(keys))
		for i, key := range keys {
			record[i] = ranking[key]
		}
		slices.Sort(record)
		idx.records[id] = record
		idx.order[id] = uint32(id)
	}

	slices.SortStableFunc(idx.order, func(a, b uint32) int {
		return cmp.Compare(len(idx.records[a]), len(idx.records[b]))
	})

	return idx, nil
}

// rankTokens builds the global token order, honoring a caller ranking first.
func rankTokens(inverted *InvertedIndex, cfg SetJoinConfig) (map[TokenKey]int32, error) {
	ranking, err := inverted.Ranking(cfg.Order)
	if err != nil {
		return nil, err
	}
	if len(cfg.Ranking) == 0 {
		return ranking, nil
	}

	keys := inverted.Tokens()
	slices.SortStableFunc(keys, func(a, b TokenKey) int {
		ra, aok := cfg.Ranking[a.Token]
		rb, bok := cfg.Ranking[b.Token]
		switch {
		case aok && bok && ra != rb:
			return cmp.Compare(ra, rb)
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		}
		return cmp.Compare(ranking[a], ranking[b])
	})

	custom := make(map[TokenKey]int32, len(keys))
	for rank, key := range keys {
		custom[key] = int32(rank)
	}
	return custom, nil
}

// posting is one entry of a prefix inverted list: set id and the position of
// the token inside that set.
type posting struct {
	id  uint32
	pos int32
}

// joinState is the mutable state of one self-join run.
type joinState struct {
	idx *SetJoinIndex

	// lists[rank] holds the indexed prefix occurrences of token rank
	lists [][]posting

	// starts[rank] skips list entries that fail the length filter
	starts []int

	// overlap[id] accumulates prefix matches, -1 marks a pruned candidate
	overlap []int32

	// touched lists the ids with a non-zero overlap entry
	touched []uint32

	// next is the position in idx.order of the next set to probe
	next int
}

// SelfJoin returns every pair (i, j), i < j, with J(i, j) >= threshold.
// Pairs are produced one probing set at a time. Empty sets never pair.
func (idx *SetJoinIndex) SelfJoin(ctx context.Context) PairStream {
	state := &joinState{
		idx:     idx,
		lists:   make([][]posting, idx.vocabulary),
		starts:  make([]int, idx.vocabulary),
		overlap: make([]int32, len(idx.records)),
	}
	return newBatchStream(ctx, state.step)
}

// step probes and indexes the next set and returns its verified pairs.
func (s *joinState) step() ([]Pair, bool, error) {
	idx := s.idx
	if s.next >= len(idx.order) {
		return nil, false, nil
	}
	xid := idx.order[s.next]
	s.next++

	x := idx.records[xid]
	lx := len(x)
	if lx == 0 {
		return nil, true, nil
	}

	t := idx.threshold
	minSize := max(1, ceilT(t*float64(lx)))
	probePrefix := lx - minSize + 1

	for i := 0; i < probePrefix; i++ {
		w := x[i]
		list := s.lists[w]

		start := s.starts[w]
		for start < len(list) && len(idx.records[list[start].id]) < minSize {
			start++
		}
		s.starts[w] = start

		for _, e := range list[start:] {
			s.probe(x, i, e)
		}
	}

	batch := s.verify(xid, x)

	indexPrefix := probePrefix
	if idx.kind != AllPairsIndexKind {
		indexPrefix = lx - max(1, ceilT(2*t/(1+t)*float64(lx))) + 1
	}
	for i := 0; i < indexPrefix; i++ {
		s.lists[x[i]] = append(s.lists[x[i]], posting{id: xid, pos: int32(i)})
	}

	return batch, true, nil
}

// probe applies the positional and suffix filters to one prefix match
// between x at position i and the set e.id at position e.pos.
func (s *joinState) probe(x []int32, i int, e posting) {
	idx := s.idx
	y := idx.records[e.id]
	a := s.overlap[e.id]
	if a < 0 {
		return
	}

	if idx.kind != AllPairsIndexKind {
		lx, ly, j := len(x), len(y), int(e.pos)
		alpha := max(1, ceilT(idx.threshold/(1+idx.threshold)*float64(lx+ly)))
		ubound := 1 + min(lx-i-1, ly-j-1)
		if int(a)+ubound < alpha {
			s.mark(e.id, -1)
			return
		}

		if a == 0 && idx.kind == PPJoinPlusIndexKind {
			hmax := lx + ly - 2*alpha - (i + j)
			if suffixHammingLB(x[i+1:], y[j+1:], hmax, 1) > hmax {
				s.mark(e.id, -1)
				return
			}
		}
	}

	s.mark(e.id, a+1)
}

// mark records the overlap entry of id, tracking first touches
func (s *joinState) mark(id uint32, value int32) {
	if s.overlap[id] == 0 {
		s.touched = append(s.touched, id)
	}
	s.overlap[id] = value
}

// verify computes the exact Jaccard similarity of every surviving candidate
// and resets the overlap accumulator.
func (s *joinState) verify(xid uint32, x []int32) []Pair {
	var batch []Pair
	for _, yid := range s.touched {
		if s.overlap[yid] > 0 {
			y := s.idx.records[yid]
			score := jaccardFromOverlap(intersectSorted(x, y), len(x), len(y))
			if score >= s.idx.threshold {
				batch = append(batch, newPair(xid, yid, score))
			}
		}
		s.overlap[yid] = 0
	}
	s.touched = s.touched[:0]

	slices.SortFunc(batch, func(a, b Pair) int {
		if c := cmp.Compare(a.I, b.I); c != 0 {
			return c
		}
		return cmp.Compare(a.J, b.J)
	})
	return batch
}

// intersectSorted counts the common elements of two ascending slices.
func intersectSorted(x, y []int32) int {
	count := 0
	for i, j := 0, 0; i < len(x) && j < len(y); {
		switch {
		case x[i] < y[j]:
			i++
		case x[i] > y[j]:
			j++
		default:
			count++
			i++
			j++
		}
	}
	return count
}

// Inverted returns the full inverted index over all token keys
func (idx *SetJoinIndex) Inverted() *InvertedIndex {
	return idx.inverted
}

// Threshold returns the minimum Jaccard similarity
func (idx *SetJoinIndex) Threshold() float64 {
	return idx.threshold
}

// Len returns the number of indexed sets
func (idx *SetJoinIndex) Len() int {
	return len(idx.records)
}

// Kind returns the join variant
func (idx *SetJoinIndex) Kind() IndexKind {
	return idx.kind
}

// TokenSets tokenizes every item in order.
func TokenSets[T any](items []T, tokenizer Tokenizer[T]) [][]string {
	sets := make([][]string, len(items))
	for i, item := range items {
		sets[i] = tokenizer.Tokenize(item)
	}
	return sets
}
