package simclust

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Compile-time checks to ensure radiusSearch implements RadiusSearch
var _ RadiusSearch = (*radiusSearch)(nil)

// Neighbor is one radius search result: item ID lies within the search
// radius of item Query.
type Neighbor struct {
	Query    uint32
	ID       uint32
	Distance float64
}

// RadiusSearch encapsulates the search context for a metric index
type RadiusSearch interface {
	// WithNode sets the item id(s) to search from - supports single or batch queries
	WithNode(ids ...uint32) RadiusSearch

	// WithRadius sets the maximum distance of returned neighbors.
	// Defaults to the radius the index was built with.
	WithRadius(radius float64) RadiusSearch

	// WithIDs restricts results to the given ids (optional)
	WithIDs(ids ...uint32) RadiusSearch

	// WithoutIDs drops the given ids from the results (optional)
	WithoutIDs(ids ...uint32) RadiusSearch

	// Execute the search and return the results
	Execute() ([]Neighbor, error)
}

// rangeQuerier is the traversal each metric index provides to radiusSearch.
// visit is called once per id within radius of query, the query itself included.
type rangeQuerier interface {
	Len() int
	rangeQuery(query uint32, radius float64, filter *IDFilter, visit func(id uint32, d float64)) error
}

// radiusSearch implements RadiusSearch for VPTreeIndex and LAESAIndex.
type radiusSearch struct {
	index   rangeQuerier
	nodeIDs []uint32
	radius  float64
	ids     []uint32
	skipIDs []uint32
}

func newRadiusSearch(index rangeQuerier, radius float64) *radiusSearch {
	return &radiusSearch{index: index, radius: radius}
}

// WithNode sets the item id(s) to search from
func (s *radiusSearch) WithNode(ids ...uint32) RadiusSearch {
	s.nodeIDs = ids
	return s
}

// WithRadius sets the search radius
func (s *radiusSearch) WithRadius(radius float64) RadiusSearch {
	s.radius = radius
	return s
}

// WithIDs restricts results to ids
func (s *radiusSearch) WithIDs(ids ...uint32) RadiusSearch {
	s.ids = ids
	return s
}

// WithoutIDs excludes ids
func (s *radiusSearch) WithoutIDs(ids ...uint32) RadiusSearch {
	s.skipIDs = ids
	return s
}

// Execute performs the radius queries.
//
// Results are grouped by query in the order the queries were given; within a
// query they are sorted by distance, then id. The query item itself is
// returned at distance 0 when it is eligible.
//
// Returns:
//   - []Neighbor: every eligible item within radius of each query
//   - error: configuration errors, or the first oracle failure
func (s *radiusSearch) Execute() ([]Neighbor, error) {
	if len(s.nodeIDs) == 0 {
		return nil, fmt.Errorf("must specify at least one node ID")
	}
	if s.radius < 0 || math.IsNaN(s.radius) || math.IsInf(s.radius, 0) {
		return nil, fmt.Errorf("%w: radius %v", ErrInvalidThreshold, s.radius)
	}
	n := s.index.Len()
	for _, id := range s.nodeIDs {
		if int(id) >= n {
			return nil, fmt.Errorf("%w: %d", ErrIDOutOfRange, id)
		}
	}

	filter := NewIDFilter(s.ids, s.skipIDs)
	defer ReturnIDFilter(filter)
	if filter.Eligible(n) == 0 {
		return nil, nil
	}

	var results []Neighbor
	for _, query := range s.nodeIDs {
		start := len(results)
		err := s.index.rangeQuery(query, s.radius, filter, func(id uint32, d float64) {
			results = append(results, Neighbor{Query: query, ID: id, Distance: d})
		})
		if err != nil {
			return nil, err
		}
		slices.SortFunc(results[start:], func(a, b Neighbor) int {
			if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}
	return results, nil
}
