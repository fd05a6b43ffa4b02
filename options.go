package simclust

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultSimilarityThreshold is the default minimum Jaccard similarity
	DefaultSimilarityThreshold = 0.8

	// DefaultMinClusterSize is the smallest cluster reported by default
	DefaultMinClusterSize = 2
)

// Options contains the plain-data configuration of a clustering run.
// It can be loaded from YAML; oracles and the logger are set on Config.
type Options struct {
	// Mode selects distance or similarity comparison
	Mode Mode `yaml:"mode"`

	// Threshold is the radius in DistanceMode (finite, >= 0) or the minimum
	// similarity in SimilarityMode (in (0, 1])
	Threshold float64 `yaml:"threshold"`

	// Index selects the candidate-pair strategy
	Index IndexKind `yaml:"index"`

	// Policy selects how pairs become clusters
	Policy ClusterPolicyKind `yaml:"policy"`

	// Workers is the verification pool size. 0 and 1 verify inline.
	Workers int `yaml:"workers"`

	// Pivots is the LAESA pivot count, 0 for automatic. An explicit count
	// must be below the number of items; the check is skipped for empty input.
	Pivots int `yaml:"pivots"`

	// PivotSelection chooses how LAESA picks pivots
	PivotSelection PivotSelection `yaml:"pivot_selection"`

	// PivotPrecision chooses the LAESA pivot table format
	PivotPrecision PivotPrecision `yaml:"pivot_precision"`

	// TokenOrder is the global token order of the set-similarity joins
	TokenOrder TokenOrder `yaml:"token_order"`

	// Seed drives random pivot selection
	Seed uint64 `yaml:"seed"`

	// MinClusterSize drops smaller clusters
	MinClusterSize int `yaml:"min_cluster_size"`

	// IncludeSingletons also reports unclustered ids as one-item clusters
	IncludeSingletons bool `yaml:"include_singletons"`

	// DistanceCacheSize memoizes that many distances, 0 disables the cache
	DistanceCacheSize int `yaml:"distance_cache_size"`
}

// DefaultOptions returns a similarity-mode configuration: PPJoin+ at
// threshold 0.8 with connected-components clustering.
func DefaultOptions() Options {
	return Options{
		Mode:           SimilarityMode,
		Threshold:      DefaultSimilarityThreshold,
		Index:          PPJoinPlusIndexKind,
		Policy:         ConnectedComponentsPolicy,
		Workers:        1,
		Pivots:         0,
		PivotSelection: MaxMinPivots,
		PivotPrecision: FullPrecision,
		TokenOrder:     RareFirst,
		MinClusterSize: DefaultMinClusterSize,
	}
}

// Validate checks the options on their own. Checks that depend on the items
// or the oracles happen when a run starts.
func (o Options) Validate() error {
	switch o.Mode {
	case DistanceMode:
		if o.Threshold < 0 || math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0) {
			return fmt.Errorf("%w: radius %v", ErrInvalidThreshold, o.Threshold)
		}
	case SimilarityMode:
		if !(o.Threshold > 0 && o.Threshold <= 1) {
			return fmt.Errorf("%w: similarity %v not in (0, 1]", ErrInvalidThreshold, o.Threshold)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, string(o.Mode))
	}

	if err := o.Index.validate(); err != nil {
		return err
	}
	if !o.Index.Supports(o.Mode) {
		return fmt.Errorf("%w: %s in %s mode", ErrModeMismatch, o.Index, o.Mode)
	}
	if err := o.Policy.validate(); err != nil {
		return err
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, o.Workers)
	}
	if o.Pivots < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPivotCount, o.Pivots)
	}
	if o.DistanceCacheSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, o.DistanceCacheSize)
	}
	if err := o.PivotSelection.validate(); err != nil {
		return err
	}
	if err := o.PivotPrecision.validate(); err != nil {
		return err
	}
	return o.TokenOrder.validate()
}

// clusterOptions extracts the cluster builder options
func (o Options) clusterOptions() ClusterOptions {
	return ClusterOptions{
		MinClusterSize:    o.MinClusterSize,
		IncludeSingletons: o.IncludeSingletons,
	}
}

// LoadOptions decodes YAML over DefaultOptions and validates the result.
// Unknown keys are rejected. An empty document yields the defaults.
//
// Example:
//
//	mode: distance
//	threshold: 2
//	index: vp-tree
//	policy: leader
//	workers: 4
func LoadOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("failed to decode options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadOptionsFile reads options from a YAML file.
func LoadOptionsFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to open options file: %w", err)
	}
	defer f.Close()
	return LoadOptions(f)
}
