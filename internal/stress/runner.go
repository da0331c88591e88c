package stress

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seantiz/magma/internal/metrics"
	"github.com/seantiz/magma/internal/model"
	"github.com/seantiz/magma/internal/store"
)

// Runner resolves requested stressors from the registry and executes the
// configured number of instances of each in parallel, recording one run
// row per instance.
type Runner struct {
	registry *Registry
	store    store.Store
	logger   *slog.Logger
	metrics  *metrics.Stress
}

// NewRunner creates a runner. store and metrics may be nil, in which case
// run records and collector updates are skipped.
func NewRunner(reg *Registry, st store.Store, logger *slog.Logger, m *metrics.Stress) *Runner {
	return &Runner{
		registry: reg,
		store:    st,
		logger:   logger,
		metrics:  m,
	}
}

// Run executes instances copies of every named stressor concurrently until
// ctx is done or each instance reaches maxOps operations. It returns the
// first stressor failure, after all instances have finished and their run
// records have been stored.
func (r *Runner) Run(ctx context.Context, names []string, instances int, maxOps uint64) error {
	// Validate every name before launching anything so a typo cannot leave
	// half the instances already churning.
	for _, name := range names {
		if _, err := r.registry.Resolve(name); err != nil {
			return fmt.Errorf("resolve stressor: %w", err)
		}
	}

	var g errgroup.Group

	for _, name := range names {
		for i := 0; i < instances; i++ {
			s, err := r.registry.Resolve(name)
			if err != nil {
				return fmt.Errorf("resolve stressor: %w", err)
			}
			args := &Args{
				Name:     name,
				Instance: uint32(i),
				PID:      os.Getpid(),
				Counter:  NewCounter(maxOps),
				Logger:   r.logger.With("stressor", name, "instance", i),
				Metrics:  r.metrics,
			}
			g.Go(func() error {
				return r.runInstance(ctx, s, args)
			})
		}
	}

	return g.Wait()
}

// runInstance runs a single stressor instance and records its outcome.
func (r *Runner) runInstance(ctx context.Context, s Stressor, args *Args) error {
	args.Logger.Info("stressor starting")
	started := time.Now().UTC()

	runErr := s.Run(ctx, args)

	finished := time.Now().UTC()
	run := &model.Run{
		ID:         model.NewID(),
		Stressor:   args.Name,
		Instance:   args.Instance,
		Status:     model.StatusCompleted,
		Ops:        args.Counter.Count(),
		StartedAt:  started,
		FinishedAt: &finished,
	}
	if runErr != nil {
		run.Status = model.StatusFailed
		run.Error = runErr.Error()
	}
	if ir, ok := s.(IterationReporter); ok {
		run.Iterations, run.Limited = ir.Iterations()
	}

	if r.store != nil {
		// Recording the outcome must survive ctx cancellation: the run is
		// over by now and the row is the whole point.
		if err := r.store.InsertRun(context.WithoutCancel(ctx), run); err != nil {
			args.Logger.Error("record run", "error", err)
		}
	}

	args.Logger.Info("stressor finished",
		"status", run.Status,
		"ops", run.Ops,
		"iterations", run.Iterations,
		"limited", run.Limited,
		"duration", finished.Sub(started).String(),
	)

	if runErr != nil {
		return fmt.Errorf("%s instance %d: %w", args.Name, args.Instance, runErr)
	}
	return nil
}

// IterationReporter is implemented by stressors that track per-iteration
// statistics worth persisting alongside the operation count.
type IterationReporter interface {
	Iterations() (attempted, limited uint64)
}
