// Package simulation repeats a resample-then-statistic trial and collects
// the results into an empirical distribution.
//
// More trials shrink Monte Carlo noise in percentiles and p-values; they do
// not change the shape the distribution converges to. A few thousand trials
// is usually enough.
package simulation

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"gosim/domain/core"
	"gosim/internal"
	"gosim/internal/distribution"
	"gosim/internal/random"

	"golang.org/x/sync/errgroup"
)

// TrialFunc performs one trial against state it closes over, typically a
// resampler sharing a single seeded source.
type TrialFunc func() (float64, error)

// StreamTrialFunc performs one trial drawing only from src, the trial's own
// random stream.
type StreamTrialFunc func(src *random.Source) (float64, error)

// ContextTrialFunc is a StreamTrialFunc that also receives the run's
// context, which is cancelled as soon as any other trial fails. Trials that
// run simulations of their own should pass it down.
type ContextTrialFunc func(ctx context.Context, src *random.Source) (float64, error)

// Runner executes trials and aggregates them.
type Runner struct {
	workers  int
	progress Progress
	logger   *internal.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets how many goroutines RunStreams may use. Values below 1
// select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		r.workers = n
	}
}

// WithProgress adds a progress observer.
func WithProgress(p Progress) Option {
	return func(r *Runner) {
		if p == nil {
			return
		}
		if _, ok := r.progress.(nopProgress); ok {
			r.progress = p
			return
		}
		r.progress = multiProgress{r.progress, p}
	}
}

// WithLogger sets the logger.
func WithLogger(l *internal.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner. By default it is sequential and silent.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		workers:  1,
		progress: nopProgress{},
		logger:   internal.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Workers returns the configured parallelism for RunStreams.
func (r *Runner) Workers() int {
	return r.workers
}

// Run calls trial exactly n times, one after another, and returns the
// results in call order. If any trial fails, or ctx is cancelled, the whole
// run fails and no partial distribution is returned.
func (r *Runner) Run(ctx context.Context, trial TrialFunc, n int) (*distribution.Empirical, error) {
	if n <= 0 {
		return nil, core.NewInvalidTrialCountError(n)
	}
	start := time.Now()
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, r.finish(n, fmt.Errorf("simulation stopped after %d of %d trials: %w", i, n, err))
		}
		v, err := trial()
		if err == nil {
			err = checkResult(v)
		}
		if err != nil {
			return nil, r.finish(n, fmt.Errorf("trial %d: %w", i, err))
		}
		values[i] = v
		r.progress.TrialCompleted()
	}
	r.logger.Debug("simulation finished: %d trials in %s", n, time.Since(start))
	r.finish(n, nil)
	return distribution.NewEmpirical(values)
}

// RunStreams calls trial n times, giving trial i the stream src.Stream(i).
// Because each trial's randomness depends only on the root seed and its
// index, the result is identical for every worker count.
func (r *Runner) RunStreams(ctx context.Context, src *random.Source, trial StreamTrialFunc, n int) (*distribution.Empirical, error) {
	return r.RunStreamsContext(ctx, src, func(_ context.Context, s *random.Source) (float64, error) {
		return trial(s)
	}, n)
}

// RunStreamsContext is RunStreams for trials that need the run's context.
func (r *Runner) RunStreamsContext(ctx context.Context, src *random.Source, trial ContextTrialFunc, n int) (*distribution.Empirical, error) {
	if n <= 0 {
		return nil, core.NewInvalidTrialCountError(n)
	}
	start := time.Now()
	values := make([]float64, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := trial(gctx, src.Stream(i))
			if err == nil {
				err = checkResult(v)
			}
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			values[i] = v
			r.progress.TrialCompleted()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, r.finish(n, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, r.finish(n, err)
	}

	r.logger.Debug("simulation finished: %d trials on %d workers in %s (seed %d)",
		n, r.workers, time.Since(start), src.Seed())
	r.finish(n, nil)
	return distribution.NewEmpirical(values)
}

// checkResult rejects NaN trial results.
func checkResult(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("%w: trial result is NaN", core.ErrStatisticUndefined)
	}
	return nil
}

func (r *Runner) finish(n int, err error) error {
	if err != nil {
		r.logger.Warn("simulation failed: %v", err)
	}
	r.progress.RunCompleted(n, err)
	return err
}

// EstimateProbability runs event on n independent streams and returns the
// fraction of trials in which it occurred.
func EstimateProbability(ctx context.Context, r *Runner, src *random.Source, event func(src *random.Source) (bool, error), n int) (float64, error) {
	return EstimateProbabilityContext(ctx, r, src, func(_ context.Context, s *random.Source) (bool, error) {
		return event(s)
	}, n)
}

// EstimateProbabilityContext is EstimateProbability for events that need the
// run's context.
func EstimateProbabilityContext(ctx context.Context, r *Runner, src *random.Source, event func(ctx context.Context, src *random.Source) (bool, error), n int) (float64, error) {
	d, err := r.RunStreamsContext(ctx, src, func(ctx context.Context, s *random.Source) (float64, error) {
		ok, err := event(ctx, s)
		if err != nil {
			return 0, err
		}
		if ok {
			return 1, nil
		}
		return 0, nil
	}, n)
	if err != nil {
		return 0, err
	}
	hits := 0.0
	for _, v := range d.Values() {
		hits += v
	}
	return hits / float64(n), nil
}
