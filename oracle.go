package simclust

import (
	"fmt"
	"math"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DistanceOracle measures how far apart two items are.
//
// Implementations must be symmetric and return 0 for identical items. The
// metric indexes (VPTreeIndex, LAESAIndex) additionally assume the triangle
// inequality d(a,c) <= d(a,b) + d(b,c). A violation is not detected: it can
// only cause missed pairs, never a crash or a wrong cluster structure.
type DistanceOracle[T any] interface {
	Distance(a, b T) (float64, error)
}

// DistanceFunc adapts a plain function to DistanceOracle.
type DistanceFunc[T any] func(a, b T) (float64, error)

// Distance calls f(a, b)
func (f DistanceFunc[T]) Distance(a, b T) (float64, error) {
	return f(a, b)
}

// SimilarityOracle measures how alike two items are, in [0, 1].
// Implementations must be symmetric.
type SimilarityOracle[T any] interface {
	Similarity(a, b T) (float64, error)
}

// SimilarityFunc adapts a plain function to SimilarityOracle.
type SimilarityFunc[T any] func(a, b T) (float64, error)

// Similarity calls f(a, b)
func (f SimilarityFunc[T]) Similarity(a, b T) (float64, error) {
	return f(a, b)
}

// Tokenizer derives the token multiset of an item. Repeated tokens are
// significant: they count towards weighted (multiset) Jaccard similarity.
type Tokenizer[T any] interface {
	Tokenize(item T) []string
}

// TokenizerFunc adapts a plain function to Tokenizer.
type TokenizerFunc[T any] func(item T) []string

// Tokenize calls f(item)
func (f TokenizerFunc[T]) Tokenize(item T) []string {
	return f(item)
}

// VerifyFunc is an optional extra predicate applied to every pair an index
// emits, typically an expensive exact check behind a cheap index.
type VerifyFunc[T any] func(a, b T) (bool, error)

// Metric compares two registered items by id. It is the uniform interface
// every metric index consumes.
type Metric interface {
	Distance(i, j uint32) (float64, error)
}

// MetricFunc adapts a plain function to Metric.
type MetricFunc func(i, j uint32) (float64, error)

// Distance calls f(i, j)
func (f MetricFunc) Distance(i, j uint32) (float64, error) {
	return f(i, j)
}

// SimilarityMetric is the similarity counterpart of Metric.
type SimilarityMetric interface {
	Similarity(i, j uint32) (float64, error)
}

// NewMetric wraps a distance oracle over registry values into an id-based Metric.
// Oracle errors and invalid distances are reported as *OracleError.
func NewMetric[T any](reg *Registry[T], oracle DistanceOracle[T]) Metric {
	return &distanceAdapter[T]{reg: reg, oracle: oracle, calls: new(atomic.Uint64)}
}

// distanceAdapter resolves ids through the registry and validates results.
type distanceAdapter[T any] struct {
	reg    *Registry[T]
	oracle DistanceOracle[T]
	calls  *atomic.Uint64
}

func (a *distanceAdapter[T]) Distance(i, j uint32) (float64, error) {
	if i == j {
		return 0, nil
	}
	a.calls.Add(1)
	d, err := a.oracle.Distance(a.reg.Item(i), a.reg.Item(j))
	if err != nil {
		return 0, &OracleError{I: i, J: j, Err: err}
	}
	if math.IsNaN(d) || d < 0 {
		return 0, &OracleError{I: i, J: j, Err: fmt.Errorf("%w: got %v", ErrInvalidDistance, d)}
	}
	return d, nil
}

// NewSimilarityMetric wraps a similarity oracle over registry values into an
// id-based SimilarityMetric. Values outside [0, 1] are reported as *OracleError.
func NewSimilarityMetric[T any](reg *Registry[T], oracle SimilarityOracle[T]) SimilarityMetric {
	return &similarityAdapter[T]{reg: reg, oracle: oracle, calls: new(atomic.Uint64)}
}

// Calls returns the number of oracle invocations made so far
func (a *distanceAdapter[T]) Calls() uint64 {
	return a.calls.Load()
}

// similarityAdapter is the SimilarityOracle counterpart of distanceAdapter.
type similarityAdapter[T any] struct {
	reg    *Registry[T]
	oracle SimilarityOracle[T]
	calls  *atomic.Uint64
}

func (a *similarityAdapter[T]) Similarity(i, j uint32) (float64, error) {
	a.calls.Add(1)
	s, err := a.oracle.Similarity(a.reg.Item(i), a.reg.Item(j))
	if err != nil {
		return 0, &OracleError{I: i, J: j, Err: err}
	}
	if math.IsNaN(s) || s < 0 || s > 1 {
		return 0, &OracleError{I: i, J: j, Err: fmt.Errorf("%w: got %v", ErrInvalidSimilarity, s)}
	}
	return s, nil
}

// Calls returns the number of oracle invocations made so far
func (a *similarityAdapter[T]) Calls() uint64 {
	return a.calls.Load()
}

// OracleCalls reports how many times the oracle behind m was invoked. It
// returns 0 for comparators that do not count calls.
func OracleCalls(m any) uint64 {
	if c, ok := m.(interface{ Calls() uint64 }); ok {
		return c.Calls()
	}
	return 0
}

// cachedMetric memoizes an expensive Metric. Keys are unordered id pairs, so
// d(i,j) and d(j,i) share one entry.
type cachedMetric struct {
	inner Metric
	cache *lru.Cache[uint64, float64]
}

// NewCachedMetric wraps inner with an LRU cache holding up to size distances.
// The cache is safe for concurrent use.
func NewCachedMetric(inner Metric, size int) (Metric, error) {
	cache, err := lru.New[uint64, float64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create distance cache: %w", err)
	}
	return &cachedMetric{inner: inner, cache: cache}, nil
}

func (c *cachedMetric) Distance(i, j uint32) (float64, error) {
	if i == j {
		return 0, nil
	}
	key := pairKey(i, j)
	if d, ok := c.cache.Get(key); ok {
		return d, nil
	}
	d, err := c.inner.Distance(i, j)
	if err != nil {
		return 0, err
	}
	c.cache.Add(key, d)
	return d, nil
}

// Calls returns the oracle invocations of the wrapped metric; cache hits are
// not counted.
func (c *cachedMetric) Calls() uint64 {
	return OracleCalls(c.inner)
}

// pairKey packs an unordered id pair into a single map key
func pairKey(i, j uint32) uint64 {
	if i > j {
		i, j = j, i
	}
	return uint64(i)<<32 | uint64(j)
}
