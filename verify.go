package simclust

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// PairCheck verifies one candidate pair. It returns the pair (possibly
// re-scored), whether it is accepted, and an error that aborts the run.
// Checks run concurrently when VerifyPairs is given more than one worker.
type PairCheck func(p Pair) (Pair, bool, error)

// ChainChecks returns a check accepting a pair only if every check accepts
// it, in order. Later checks see the pair as re-scored by earlier ones.
func ChainChecks(checks ...PairCheck) PairCheck {
	return func(p Pair) (Pair, bool, error) {
		for _, check := range checks {
			var ok bool
			var err error
			p, ok, err = check(p)
			if err != nil || !ok {
				return p, false, err
			}
		}
		return p, true, nil
	}
}

// VerifyPairs filters a candidate stream through check.
//
// With workers <= 1 every pair is checked inline as the stream is consumed.
// Otherwise checks run on a bounded pool of workers and the verdicts are put
// back into candidate order before they are emitted, so the output does not
// depend on scheduling. The first failing check cancels the pool and ends
// the stream with its error.
//
// The returned stream owns in and closes it.
func VerifyPairs(ctx context.Context, in PairStream, check PairCheck, workers int) PairStream {
	if workers <= 1 {
		return verifySequential(ctx, in, check)
	}
	return verifyParallel(ctx, in, check, workers)
}

func verifySequential(ctx context.Context, in PairStream, check PairCheck) PairStream {
	stream := newBatchStream(ctx, func() ([]Pair, bool, error) {
		if !in.Next() {
			return nil, false, in.Err()
		}
		p, ok, err := check(in.Pair())
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, true, nil
		}
		return []Pair{p}, true, nil
	})
	stream.release = func() { in.Close() }
	return stream
}

// verifyWindowPerWorker bounds the candidates dispatched but not yet
// emitted, per worker. A slow check then stalls the dispatcher instead of
// letting verdicts pile up behind it.
const verifyWindowPerWorker = 4

// verdict is the outcome of checking the seq-th candidate
type verdict struct {
	seq  uint64
	pair Pair
	ok   bool
}

// parallelStream re-sequences verdicts produced by a worker pool.
type parallelStream struct {
	cancel  context.CancelFunc
	results chan verdict

	// window holds one token per dispatched candidate until Next consumes it
	window chan struct{}

	// err is written by the dispatcher before results is closed
	err error

	pending map[uint64]verdict
	nextSeq uint64
	cur     Pair
	done    bool
	final   error
}

func verifyParallel(ctx context.Context, in PairStream, check PairCheck, workers int) PairStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &parallelStream{
		cancel:  cancel,
		results: make(chan verdict, workers),
		window:  make(chan struct{}, workers*verifyWindowPerWorker),
		pending: make(map[uint64]verdict),
	}

	pool, poolCtx := errgroup.WithContext(ctx)
	pool.SetLimit(workers)

	go func() {
		defer close(s.results)
		defer in.Close()

		var seq uint64
		for poolCtx.Err() == nil && in.Next() {
			select {
			case s.window <- struct{}{}:
			case <-poolCtx.Done():
			}
			if poolCtx.Err() != nil {
				break
			}

			p, n := in.Pair(), seq
			seq++
			pool.Go(func() error {
				q, ok, err := check(p)
				if err != nil {
					return err
				}
				select {
				case s.results <- verdict{seq: n, pair: q, ok: ok}:
					return nil
				case <-poolCtx.Done():
					return poolCtx.Err()
				}
			})
		}

		s.err = pool.Wait()
		if s.err == nil {
			s.err = in.Err()
		}
		if s.err == nil {
			s.err = ctx.Err()
		}
	}()

	return s
}

func (s *parallelStream) Next() bool {
	for !s.done {
		if v, ok := s.pending[s.nextSeq]; ok {
			delete(s.pending, s.nextSeq)
			s.nextSeq++
			<-s.window
			if v.ok {
				s.cur = v.pair
				return true
			}
			continue
		}

		v, ok := <-s.results
		if !ok {
			s.done = true
			s.final = s.err
			s.pending = nil
			s.cancel()
			return false
		}
		s.pending[v.seq] = v
	}
	return false
}

func (s *parallelStream) Pair() Pair {
	return s.cur
}

func (s *parallelStream) Err() error {
	return s.final
}

// Close stops the pool and waits for in-flight checks to finish.
func (s *parallelStream) Close() error {
	s.cancel()
	for range s.results {
	}
	s.done = true
	s.pending = nil
	return nil
}
