package simclust

import (
	"errors"
	"fmt"
)

// Configuration errors. These are returned before any index is built or any
// oracle is called.
var (
	// ErrMissingOracle is returned when the selected mode has no oracle to compare items with.
	ErrMissingOracle = errors.New("missing oracle for the selected mode")

	// ErrMissingTokenizer is returned when a set-similarity join is selected without a tokenizer.
	ErrMissingTokenizer = errors.New("missing tokenizer for set-similarity join")

	// ErrUnusedOracle is returned when a similarity oracle is given to a
	// set-similarity join, which only compares token sets.
	ErrUnusedOracle = errors.New("similarity oracle not used by set-similarity join")

	// ErrInvalidThreshold is returned for a radius that is negative or not finite,
	// or a similarity threshold outside (0, 1].
	ErrInvalidThreshold = errors.New("threshold out of valid range")

	// ErrInvalidPivotCount is returned when the LAESA pivot count is negative or
	// not smaller than the number of items.
	ErrInvalidPivotCount = errors.New("invalid pivot count")

	// ErrInvalidWorkers is returned for a negative worker pool size.
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidCacheSize is returned for a negative distance cache size.
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrModeMismatch is returned when an index strategy does not support the selected mode.
	ErrModeMismatch = errors.New("index strategy does not support mode")

	// ErrUnknownMode is returned for an unrecognized comparison mode.
	ErrUnknownMode = errors.New("unknown mode")

	// ErrUnknownIndexKind is returned for an unrecognized index strategy.
	ErrUnknownIndexKind = errors.New("unknown index kind")

	// ErrUnknownPolicyKind is returned for an unrecognized cluster policy.
	ErrUnknownPolicyKind = errors.New("unknown cluster policy")

	// ErrUnknownPivotSelection is returned for an unrecognized pivot selection strategy.
	ErrUnknownPivotSelection = errors.New("unknown pivot selection")

	// ErrUnknownPrecision is returned for an unrecognized pivot table precision.
	ErrUnknownPrecision = errors.New("unknown pivot precision")

	// ErrUnknownTokenOrder is returned for an unrecognized global token order.
	ErrUnknownTokenOrder = errors.New("unknown token order")

	// ErrTooManyItems is returned when the collection does not fit in uint32 ids.
	ErrTooManyItems = errors.New("too many items")
)

// Runtime errors.
var (
	// ErrSelfPair is returned when a cluster builder receives a pair (i, i).
	// No index produces one, so receiving it is a producer bug.
	ErrSelfPair = errors.New("self pair")

	// ErrIDOutOfRange is returned for an item id outside [0, n).
	ErrIDOutOfRange = errors.New("item id out of range")

	// ErrInvalidDistance is returned when a distance oracle yields a negative or NaN value.
	ErrInvalidDistance = errors.New("distance must be a non-negative number")

	// ErrInvalidSimilarity is returned when a similarity oracle yields a value outside [0, 1].
	ErrInvalidSimilarity = errors.New("similarity must be in [0, 1]")

	// ErrDimensionMismatch is returned when two vectors of different lengths are compared.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// OracleError reports a failed comparison between two items.
type OracleError struct {
	I, J uint32
	Err  error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle failed on pair (%d, %d): %v", e.I, e.J, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}
