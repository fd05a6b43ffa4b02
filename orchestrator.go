package simclust

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config is the full configuration of a clustering run over items of type T:
// the plain Options plus the code-level collaborators.
type Config[T any] struct {
	Options

	// Distance compares items in DistanceMode
	Distance DistanceOracle[T]

	// Similarity compares items for the similarity-mode brute-force index.
	// When nil, token Jaccard over Tokenizer is used. The set-similarity
	// joins reject it with ErrUnusedOracle.
	Similarity SimilarityOracle[T]

	// Tokenizer derives token multisets for the set-similarity joins
	Tokenizer Tokenizer[T]

	// Verifier is an optional extra predicate every pair must pass
	Verifier VerifyFunc[T]

	// Logger receives run diagnostics
	Logger zerolog.Logger
}

// NewConfig creates a config from options with a disabled logger.
func NewConfig[T any](opts Options) *Config[T] {
	return &Config[T]{Options: opts, Logger: zerolog.Nop()}
}

// WithDistance sets the distance oracle
func (c *Config[T]) WithDistance(oracle DistanceOracle[T]) *Config[T] {
	c.Distance = oracle
	return c
}

// WithSimilarity sets the similarity oracle
func (c *Config[T]) WithSimilarity(oracle SimilarityOracle[T]) *Config[T] {
	c.Similarity = oracle
	return c
}

// WithTokenizer sets the tokenizer
func (c *Config[T]) WithTokenizer(tokenizer Tokenizer[T]) *Config[T] {
	c.Tokenizer = tokenizer
	return c
}

// WithVerifier sets the extra verification predicate
func (c *Config[T]) WithVerifier(verify VerifyFunc[T]) *Config[T] {
	c.Verifier = verify
	return c
}

// WithLogger sets the logger
func (c *Config[T]) WithLogger(logger zerolog.Logger) *Config[T] {
	c.Logger = logger
	return c
}

// validate checks the options and that the collaborators needed by the
// selected mode and index are present.
func (c *Config[T]) validate(n int) error {
	if err := c.Options.Validate(); err != nil {
		return err
	}

	switch c.Mode {
	case DistanceMode:
		if c.Distance == nil {
			return fmt.Errorf("%w: distance mode needs a distance oracle", ErrMissingOracle)
		}
	case SimilarityMode:
		if c.Index == BruteForceIndexKind {
			if c.Similarity == nil && c.Tokenizer == nil {
				return fmt.Errorf("%w: similarity mode needs a similarity oracle or a tokenizer", ErrMissingOracle)
			}
		} else {
			if c.Tokenizer == nil {
				return fmt.Errorf("%w: %s", ErrMissingTokenizer, c.Index)
			}
			if c.Similarity != nil {
				return fmt.Errorf("%w: %s", ErrUnusedOracle, c.Index)
			}
		}
	}

	if c.Index == LAESAIndexKind {
		if _, err := pivotCount(c.Pivots, n); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarizes one clustering run.
type Stats struct {
	// RunID correlates the log lines of the run
	RunID string

	// Items is the number of input items
	Items int

	// Candidates is the number of pairs that reached verification
	Candidates uint64

	// Verified is the number of pairs fed to the cluster builder
	Verified uint64

	// Rejected is Candidates minus Verified
	Rejected uint64

	// OracleCalls counts distance or similarity oracle invocations,
	// index build included. Cache hits are not counted.
	OracleCalls uint64

	// Clusters is the number of returned clusters
	Clusters int

	// Duration is the wall time of the run
	Duration time.Duration
}

// pipeline is a wired pair stream with its counters.
type pipeline struct {
	stream     PairStream
	oracle     any
	candidates atomic.Uint64
	verified   atomic.Uint64
}

// newPipeline builds the configured index and chains its stream through
// verification. cfg must be validated and items non-empty.
func newPipeline[T any](ctx context.Context, reg *Registry[T], cfg *Config[T], logger zerolog.Logger) (*pipeline, error) {
	p := &pipeline{}
	n := reg.Len()
	start := time.Now()

	var source PairStream
	var checks []PairCheck

	switch cfg.Mode {
	case DistanceMode:
		adapter := NewMetric(reg, cfg.Distance)
		p.oracle = adapter
		metric := adapter
		if cfg.DistanceCacheSize > 0 {
			cached, err := NewCachedMetric(adapter, cfg.DistanceCacheSize)
			if err != nil {
				return nil, err
			}
			metric = cached
		}

		switch cfg.Index {
		case VPTreeIndexKind:
			idx, err := NewVPTreeIndex(ctx, metric, n, cfg.Threshold)
			if err != nil {
				return nil, fmt.Errorf("failed to build vp-tree: %w", err)
			}
			logger.Debug().Int("depth", idx.Depth()).Msg("vp-tree built")
			source = idx.SelfJoin(ctx)
		case LAESAIndexKind:
			idx, err := NewLAESAIndex(ctx, metric, n, LAESAConfig{
				Radius:    cfg.Threshold,
				Pivots:    cfg.Pivots,
				Selection: cfg.PivotSelection,
				Precision: cfg.PivotPrecision,
				Seed:      cfg.Seed,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to build laesa index: %w", err)
			}
			logger.Debug().Int("pivots", len(idx.Pivots())).Str("precision", string(idx.Table().Precision())).Msg("laesa index built")
			source = idx.SelfJoin(ctx)
		default:
			idx, err := NewBruteForceIndex(metric, n, cfg.Threshold)
			if err != nil {
				return nil, err
			}
			source = idx.Candidates(ctx)
			checks = append(checks, idx.Check)
		}

	case SimilarityMode:
		if cfg.Index == BruteForceIndexKind {
			oracle := cfg.Similarity
			if oracle == nil {
				oracle = TokenJaccard(cfg.Tokenizer)
			}
			sim := NewSimilarityMetric(reg, oracle)
			p.oracle = sim
			idx, err := NewBruteForceSimilarityIndex(sim, n, cfg.Threshold)
			if err != nil {
				return nil, err
			}
			source = idx.Candidates(ctx)
			checks = append(checks, idx.Check)
			break
		}

		idx, err := NewSetJoinIndex(cfg.Index, TokenSets(reg.items, cfg.Tokenizer), SetJoinConfig{
			Threshold: cfg.Threshold,
			Order:     cfg.TokenOrder,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build %s join: %w", cfg.Index, err)
		}
		logger.Debug().Int("postings", idx.Inverted().Size()).Msg("set join prepared")
		source = idx.SelfJoin(ctx)
	}

	logger.Debug().Str("index", string(cfg.Index)).Dur("elapsed", time.Since(start)).Msg("index ready")

	if cfg.Verifier != nil {
		verify := cfg.Verifier
		checks = append(checks, func(pair Pair) (Pair, bool, error) {
			ok, err := verify(reg.Item(pair.I), reg.Item(pair.J))
			if err != nil {
				return pair, false, &OracleError{I: pair.I, J: pair.J, Err: err}
			}
			return pair, ok, nil
		})
	}

	workers := max(cfg.Workers, 1)
	if len(checks) == 0 {
		workers = 1
	}
	check := ChainChecks(checks...)
	counted := func(pair Pair) (Pair, bool, error) {
		p.candidates.Add(1)
		pair, ok, err := check(pair)
		if ok {
			p.verified.Add(1)
		}
		return pair, ok, err
	}

	p.stream = VerifyPairs(ctx, source, counted, workers)
	return p, nil
}

// Cluster groups items whose pairs meet the configured threshold.
//
// Clusters are returned as original item values. Within a cluster, values
// follow input order; clusters are ordered by their first item.
func Cluster[T any](ctx context.Context, items []T, cfg *Config[T]) ([][]T, error) {
	clusters, _, err := ClusterWithStats(ctx, items, cfg)
	return clusters, err
}

// ClusterWithStats is Cluster with a summary of the work done.
//
// Configuration errors are returned before any index is built. Oracle and
// verifier failures abort the run; no partial clusters are returned.
func ClusterWithStats[T any](ctx context.Context, items []T, cfg *Config[T]) ([][]T, Stats, error) {
	start := time.Now()
	stats := Stats{RunID: uuid.NewString(), Items: len(items)}
	logger := cfg.Logger.With().
		Str("component", "orchestrator").
		Str("run_id", stats.RunID).
		Logger()

	reg, err := NewRegistry(items)
	if err != nil {
		return nil, stats, err
	}
	if err := cfg.validate(reg.Len()); err != nil {
		return nil, stats, err
	}

	builder, err := NewClusterBuilder(cfg.Policy, reg.Len(), cfg.clusterOptions())
	if err != nil {
		return nil, stats, err
	}

	if reg.Len() > 0 {
		p, err := newPipeline(ctx, reg, cfg, logger)
		if err != nil {
			return nil, stats, err
		}
		if err := feed(builder, p.stream, logger); err != nil {
			return nil, stats, err
		}
		stats.Candidates = p.candidates.Load()
		stats.Verified = p.verified.Load()
		stats.Rejected = stats.Candidates - stats.Verified
		stats.OracleCalls = OracleCalls(p.oracle)
	}

	clusters := builder.Clusters()
	stats.Clusters = len(clusters)
	stats.Duration = time.Since(start)

	logger.Info().
		Int("items", stats.Items).
		Uint64("candidates", stats.Candidates).
		Uint64("verified", stats.Verified).
		Uint64("oracle_calls", stats.OracleCalls).
		Int("clusters", stats.Clusters).
		Dur("duration", stats.Duration).
		Str("policy", string(cfg.Policy)).
		Msg("clustering complete")

	return reg.Materialize(clusters), stats, nil
}

// feed drains stream into builder. Self pairs are logged and skipped; any
// other builder error or a stream error aborts.
func feed(builder ClusterBuilder, stream PairStream, logger zerolog.Logger) error {
	defer stream.Close()
	for stream.Next() {
		pair := stream.Pair()
		if err := builder.Add(pair); err != nil {
			if errors.Is(err, ErrSelfPair) {
				logger.Warn().Uint32("id", pair.I).Msg("self pair rejected")
				continue
			}
			return err
		}
	}
	return stream.Err()
}

// CandidatePairs returns the verified pair stream of a run without
// clustering it. The caller must drain or Close the stream.
func CandidatePairs[T any](ctx context.Context, items []T, cfg *Config[T]) (PairStream, error) {
	logger := cfg.Logger.With().
		Str("component", "pairs").
		Str("run_id", uuid.NewString()).
		Logger()

	reg, err := NewRegistry(items)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(reg.Len()); err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		return NewSliceStream(nil), nil
	}

	p, err := newPipeline(ctx, reg, cfg, logger)
	if err != nil {
		return nil, err
	}
	return p.stream, nil
}
