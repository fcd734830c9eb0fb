package blake2f

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SynthesizeBatch lays out independent compressions in parallel, at most
// parallelism at a time (GOMAXPROCS when not positive). All instances share
// one spread table. The first error cancels the instances not yet started.
func SynthesizeBatch(ctx context.Context, inputs []Input, parallelism int, opts ...Option) ([]*Synthesis, error) {
	for i, in := range inputs {
		if in.Rounds > MaxRounds {
			return nil, fmt.Errorf("input %d: %w: %d > %d", i, ErrTooManyRounds, in.Rounds, MaxRounds)
		}
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	cfg := newConfig(opts)
	inFlight := cfg.metrics.BatchInFlight

	out := make([]*Synthesis, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			inFlight.Inc()
			defer inFlight.Dec()
			s, err := synthesize(KnownWitness(in), cfg)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	cfg.logger.Debug("blake2f batch synthesized", "instances", len(inputs), "parallelism", parallelism)
	return out, nil
}
