package simclust

import (
	"fmt"
	"math"

	"github.com/x448/float16"
)

// ============================================================================
// PIVOT STORE INTERFACE
// ============================================================================

// PivotPrecision represents how the LAESA pivot table stores distances
type PivotPrecision string

const (
	FullPrecision PivotPrecision = "float64"
	HalfPrecision PivotPrecision = "float16"
)

func (p PivotPrecision) validate() error {
	switch p {
	case FullPrecision, HalfPrecision:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPrecision, string(p))
	}
}

// PivotStore is the dense n×k matrix of item-to-pivot distances.
//
// Lossy stores cannot return the exact distance, so reads return an interval
// [lo, hi] guaranteed to contain the value that was written. Lower bounds
// derived from intervals never exceed the bounds derived from exact values,
// which keeps pivot pruning free of false negatives.
type PivotStore interface {
	// Set stores the distance between item id and pivot p
	Set(id, p int, d float64)

	// Bounds returns an interval containing the distance stored for (id, p)
	Bounds(id, p int) (lo, hi float64)

	// Pivots returns k, the number of columns
	Pivots() int

	// Entries returns the number of stored cells, n×k
	Entries() int

	// Precision returns the storage format
	Precision() PivotPrecision
}

// ============================================================================
// FACTORY FUNCTION
// ============================================================================

// NewPivotStore creates an empty n×k pivot table of the given precision.
func NewPivotStore(precision PivotPrecision, n, k int) (PivotStore, error) {
	if n < 0 || k < 0 {
		return nil, fmt.Errorf("%w: %d items × %d pivots", ErrInvalidPivotCount, n, k)
	}
	switch precision {
	case FullPrecision:
		return &fullPrecisionStore{k: k, cells: make([]float64, n*k)}, nil
	case HalfPrecision:
		return &halfPrecisionStore{k: k, cells: make([]uint16, n*k)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrecision, string(precision))
	}
}

// ============================================================================
// FULL PRECISION STORE (Float64)
// ============================================================================

// fullPrecisionStore keeps exact distances.
//
// Memory: 8 bytes per cell
// Bounds: lo == hi, the stored value
type fullPrecisionStore struct {
	k     int
	cells []float64
}

func (s *fullPrecisionStore) Set(id, p int, d float64) {
	s.cells[id*s.k+p] = d
}

func (s *fullPrecisionStore) Bounds(id, p int) (float64, float64) {
	d := s.cells[id*s.k+p]
	return d, d
}

func (s *fullPrecisionStore) Pivots() int {
	return s.k
}

func (s *fullPrecisionStore) Entries() int {
	return len(s.cells)
}

func (s *fullPrecisionStore) Precision() PivotPrecision {
	return FullPrecision
}

// ============================================================================
// HALF PRECISION STORE (Float16)
// ============================================================================

// Relative and absolute error margins of a float16 round trip. Rounding to
// nearest moves a normal value by at most 2^-11 relative and a subnormal one
// by at most 2^-25 absolute; the margins below are twice that.
var (
	halfRelativeError = math.Ldexp(1, -10)
	halfAbsoluteError = math.Ldexp(1, -24)
	halfMax           = float16.Frombits(0x7bff).Float32()
)

// halfPrecisionStore compresses distances to 16-bit floating point.
//
// Memory: 2 bytes per cell (75% savings vs float64)
// Bounds: widened by the float16 rounding error. Values above 65504 are
// stored as +Inf and read back as [65504, +Inf).
type halfPrecisionStore struct {
	k     int
	cells []uint16
}

func (s *halfPrecisionStore) Set(id, p int, d float64) {
	s.cells[id*s.k+p] = float16.Fromfloat32(float32(d)).Bits()
}

func (s *halfPrecisionStore) Bounds(id, p int) (float64, float64) {
	v := float64(float16.Frombits(s.cells[id*s.k+p]).Float32())
	if math.IsInf(v, 1) {
		return float64(halfMax), v
	}
	lo := max(0, v*(1-halfRelativeError)-halfAbsoluteError)
	hi := v*(1+halfRelativeError) + halfAbsoluteError
	return lo, hi
}

func (s *halfPrecisionStore) Pivots() int {
	return s.k
}

func (s *halfPrecisionStore) Entries() int {
	return len(s.cells)
}

func (s *halfPrecisionStore) Precision() PivotPrecision {
	return HalfPrecision
}
