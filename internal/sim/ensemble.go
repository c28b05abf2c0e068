package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/mjsim/internal/mujoco"
)

// Ensemble runs perturbed clones of a base Data concurrently. Every clone
// shares the base's Model; each goroutine owns its clone.
type Ensemble struct {
	base         *mujoco.Data
	numRuns      int
	seedStart    int64
	perturbation float64
	limit        int
	metrics      func() []Metric
	observers    []Observer
}

func NewEnsemble(base *mujoco.Data, numRuns int, seedStart int64, perturbation float64) *Ensemble {
	return &Ensemble{
		base:         base,
		numRuns:      numRuns,
		seedStart:    seedStart,
		perturbation: perturbation,
	}
}

// WithMetrics sets a factory giving each run its own metric instances.
func (e *Ensemble) WithMetrics(factory func() []Metric) *Ensemble {
	e.metrics = factory
	return e
}

// WithObservers adds observers shared by every run.
func (e *Ensemble) WithObservers(obs ...Observer) *Ensemble {
	e.observers = append(e.observers, obs...)
	return e
}

// WithLimit bounds the number of runs in flight. Zero means unbounded.
func (e *Ensemble) WithLimit(n int) *Ensemble {
	e.limit = n
	return e
}

// Run clones the base once per run, perturbs each clone's velocities with
// its own seed and steps them concurrently. Results are in run order.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	clones := make([]*mujoco.Data, 0, e.numRuns)
	defer func() {
		for _, c := range clones {
			c.Close()
		}
	}()
	for i := 0; i < e.numRuns; i++ {
		c, err := e.base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone run %d: %w", i, err)
		}
		Perturb(c, e.seedStart+int64(i), e.perturbation)
		clones = append(clones, c)
	}

	results := make([]*Result, e.numRuns)
	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for idx, data := range clones {
		g.Go(func() error {
			sim := New(data)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					sim.AddMetric(m)
				}
			}
			for _, o := range e.observers {
				sim.AddObserver(o)
			}

			res, err := sim.Run(ctx, cfg)
			if err != nil {
				return fmt.Errorf("run %d: %w", idx, err)
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
