package simclust

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring"
)

// TokenOrder is the global token ordering used by prefix filtering.
// Any fixed order yields the same join output; the order only changes how much
// work the prefix filter prunes.
type TokenOrder string

const (
	// RareFirst ranks tokens by ascending document frequency, so prefixes are
	// made of rare tokens and inverted lists probed by prefixes stay short.
	RareFirst TokenOrder = "rare-first"

	// FrequentFirst ranks tokens by descending document frequency.
	FrequentFirst TokenOrder = "frequent-first"
)

func (o TokenOrder) validate() error {
	switch o {
	case RareFirst, FrequentFirst:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTokenOrder, string(o))
	}
}

// TokenKey identifies one occurrence of a token inside a multiset. The k-th
// repeat of a token is a distinct element, which turns multiset Jaccard into
// plain set Jaccard over keys.
type TokenKey struct {
	Token      string
	Occurrence int
}

// InvertedIndex maps every token key to the ascending ids of the items that
// contain it. It is built once and never mutated.
//
// Postings are roaring bitmaps, so ids are strictly ascending by construction
// and the total number of entries equals the sum of all token set sizes.
type InvertedIndex struct {
	postings map[TokenKey]*roaring.Bitmap
	records  [][]TokenKey
	size     int
}

// NewInvertedIndex indexes the token multiset of every item; tokenSets[id] is
// the multiset of item id.
func NewInvertedIndex(tokenSets [][]string) *InvertedIndex {
	ix := &InvertedIndex{
		postings: make(map[TokenKey]*roaring.Bitmap),
		records:  make([][]TokenKey, len(tokenSets)),
	}

	for id, tokens := range tokenSets {
		record := toTokenKeys(tokens)
		ix.records[id] = record
		ix.size += len(record)

		for _, key := range record {
			bitmap := ix.postings[key]
			if bitmap == nil {
				bitmap = roaring.New()
				ix.postings[key] = bitmap
			}
			bitmap.Add(uint32(id))
		}
	}

	return ix
}

// toTokenKeys numbers repeated tokens so every key of a record is distinct
func toTokenKeys(tokens []string) []TokenKey {
	seen := make(map[string]int, len(tokens))
	keys := make([]TokenKey, len(tokens))
	for i, t := range tokens {
		keys[i] = TokenKey{Token: t, Occurrence: seen[t]}
		seen[t]++
	}
	return keys
}

// Len returns the number of indexed items
func (ix *InvertedIndex) Len() int {
	return len(ix.records)
}

// Size returns the total number of posting entries, Σ|tokenset(i)|.
func (ix *InvertedIndex) Size() int {
	return ix.size
}

// Record returns the distinct token keys of item id
func (ix *InvertedIndex) Record(id uint32) []TokenKey {
	return ix.records[id]
}

// DocumentFrequency returns the number of items containing key
func (ix *InvertedIndex) DocumentFrequency(key TokenKey) int {
	bitmap := ix.postings[key]
	if bitmap == nil {
		return 0
	}
	return int(bitmap.GetCardinality())
}

// Postings returns the ascending ids of the items containing key
func (ix *InvertedIndex) Postings(key TokenKey) []uint32 {
	bitmap := ix.postings[key]
	if bitmap == nil {
		return nil
	}
	return bitmap.ToArray()
}

// Tokens returns every indexed key in deterministic order
func (ix *InvertedIndex) Tokens() []TokenKey {
	keys := make([]TokenKey, 0, len(ix.postings))
	for key := range ix.postings {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, compareTokenKeys)
	return keys
}

// Ranking assigns every key its position in the global token order. Ties on
// document frequency are broken by token, then occurrence, so the ranking is
// a total order independent of map iteration.
func (ix *InvertedIndex) Ranking(order TokenOrder) (map[TokenKey]int32, error) {
	if err := order.validate(); err != nil {
		return nil, err
	}

	keys := ix.Tokens()
	df := make(map[TokenKey]int, len(keys))
	for _, key := range keys {
		df[key] = ix.DocumentFrequency(key)
	}

	slices.SortStableFunc(keys, func(a, b TokenKey) int {
		if order == FrequentFirst {
			return cmp.Compare(df[b], df[a])
		}
		return cmp.Compare(df[a], df[b])
	})

	ranking := make(map[TokenKey]int32, len(keys))
	for rank, key := range keys {
		ranking[key] = int32(rank)
	}
	return ranking, nil
}

func compareTokenKeys(a, b TokenKey) int {
	if c := cmp.Compare(a.Token, b.Token); c != 0 {
		return c
	}
	return cmp.Compare(a.Occurrence, b.Occurrence)
}
