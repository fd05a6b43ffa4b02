package simclust

import (
	"context"
	"iter"
)

// Pair is an unordered pair of item ids, stored with I < J, together with the
// score that qualified it (a distance in DistanceMode, a similarity in
// SimilarityMode).
type Pair struct {
	I, J  uint32
	Score float64
}

// newPair orders a and b so that I < J
func newPair(a, b uint32, score float64) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{I: a, J: b, Score: score}
}

// PairStream is a finite, single-pass cursor over pairs.
//
// Usage:
//
//	for stream.Next() {
//	    p := stream.Pair()
//	    ...
//	}
//	if err := stream.Err(); err != nil { ... }
//
// Once Next returns false the stream is exhausted and stays exhausted.
// Re-running requires building a new stream from the index. Close may be
// called at any time to stop early; indexes are read-only, so stopping never
// leaves them inconsistent.
type PairStream interface {
	// Next advances to the next pair and reports whether there is one
	Next() bool

	// Pair returns the current pair. Only valid after Next returned true
	Pair() Pair

	// Err returns the error that ended the stream, if any
	Err() error

	// Close releases resources held by the stream. Safe to call more than once
	Close() error
}

// batchStream turns a producer of pair batches into a PairStream. Producers
// compute one batch per step (one radius query, one probing record) so pairs
// are generated lazily.
type batchStream struct {
	ctx  context.Context
	step func() (batch []Pair, more bool, err error)

	buf  []Pair
	pos  int
	cur  Pair
	err  error
	done bool

	// release, when set, runs once when the stream finishes
	release func()
}

// newBatchStream creates a stream that calls step until it reports no more
// batches. The context is checked between steps.
func newBatchStream(ctx context.Context, step func() ([]Pair, bool, error)) *batchStream {
	return &batchStream{ctx: ctx, step: step}
}

func (s *batchStream) Next() bool {
	for !s.done {
		if s.pos < len(s.buf) {
			s.cur = s.buf[s.pos]
			s.pos++
			return true
		}

		if err := s.ctx.Err(); err != nil {
			s.finish(err)
			return false
		}

		batch, more, err := s.step()
		if err != nil {
			s.finish(err)
			return false
		}
		s.buf, s.pos = batch, 0
		if !more && len(batch) == 0 {
			s.finish(nil)
		} else if !more {
			s.step = noMoreBatches
		}
	}
	return false
}

func (s *batchStream) Pair() Pair {
	return s.cur
}

func (s *batchStream) Err() error {
	return s.err
}

func (s *batchStream) Close() error {
	s.finish(nil)
	return nil
}

func (s *batchStream) finish(err error) {
	if !s.done {
		s.done = true
		s.err = err
	}
	s.buf = nil
	s.step = noMoreBatches
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

func noMoreBatches() ([]Pair, bool, error) {
	return nil, false, nil
}

// NewSliceStream returns a stream over a fixed list of pairs.
func NewSliceStream(pairs []Pair) PairStream {
	done := false
	return newBatchStream(context.Background(), func() ([]Pair, bool, error) {
		if done {
			return nil, false, nil
		}
		done = true
		return pairs, false, nil
	})
}

// Pairs adapts a stream to a range-over-func iterator. A stream error is
// yielded as the final element. The stream is closed when iteration ends.
//
// Example:
//
//	for p, err := range Pairs(stream) {
//	    if err != nil { return err }
//	    ...
//	}
func Pairs(s PairStream) iter.Seq2[Pair, error] {
	return func(yield func(Pair, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Pair(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(Pair{}, err)
		}
	}
}

// Collect drains a stream into a slice and closes it.
func Collect(s PairStream) ([]Pair, error) {
	defer s.Close()
	var pairs []Pair
	for s.Next() {
		pairs = append(pairs, s.Pair())
	}
	return pairs, s.Err()
}
