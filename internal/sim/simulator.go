package sim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/mjsim/internal/logger"
	"github.com/san-kum/mjsim/internal/mujoco"
)

// Simulator steps one Data instance. It does not own the Data.
type Simulator struct {
	data      *mujoco.Data
	metrics   []Metric
	observers []Observer
}

func New(data *mujoco.Data) *Simulator {
	return &Simulator{
		data:      data,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Data() *mujoco.Data { return s.data }

// Run advances the Data cfg.Steps times, recording every cfg.RecordEvery
// steps. On cancellation the partial result is returned with ctx.Err().
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	d := s.data
	rows := cfg.Steps/cfg.RecordEvery + 1
	result := &Result{
		Columns: Columns(d),
		Times:   make([]float64, 0, rows),
		States:  make([]State, 0, rows),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	result.States = append(result.States, Snapshot(d))
	result.Times = append(result.Times, d.Time())

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			s.collect(result)
			return result, ctx.Err()
		default:
		}

		for _, m := range s.metrics {
			m.Observe(d)
		}
		for _, obs := range s.observers {
			obs.OnStep(i, d)
		}

		if err := d.Step(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.StepsTaken++

		if cfg.ValidateState && !(State(d.Qpos()).IsValid() && State(d.Qvel()).IsValid()) {
			err := SimError{Time: d.Time(), Step: i, Message: "invalid state (NaN/Inf)"}
			result.Errors = append(result.Errors, err)
			logger.Warn("simulation diverged",
				zap.Int("step", i),
				zap.Float64("time", d.Time()))
			break
		}

		if (i+1)%cfg.RecordEvery == 0 {
			result.States = append(result.States, Snapshot(d))
			result.Times = append(result.Times, d.Time())
		}
	}

	s.collect(result)
	return result, nil
}

func (s *Simulator) collect(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// RunWithCallback steps until callback returns false, the context is done,
// or cfg.Steps steps have run. A non-positive cfg.Steps runs until stopped.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(step int, d *mujoco.Data) bool) error {
	for i := 0; cfg.Steps <= 0 || i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !callback(i, s.data) {
			return nil
		}
		if err := s.data.Step(); err != nil {
			return err
		}
		if cfg.ValidateState && !State(s.data.Qpos()).IsValid() {
			return fmt.Errorf("invalid state at t=%.4f", s.data.Time())
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	if cfg.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", cfg.Steps)
	}
	if cfg.RecordEvery <= 0 {
		return fmt.Errorf("record interval must be positive, got %d", cfg.RecordEvery)
	}
	return nil
}
