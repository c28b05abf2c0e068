package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/mjsim/internal/mujoco"
)

// HandleCollector tracks native handle lifecycles. It implements
// mujoco.HandleObserver.
type HandleCollector struct {
	gatherer prometheus.Gatherer

	Live     *prometheus.GaugeVec
	Acquired *prometheus.CounterVec
	Released *prometheus.CounterVec
}

var _ mujoco.HandleObserver = (*HandleCollector)(nil)

// NewHandleCollector registers handle metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewHandleCollector(reg prometheus.Registerer) (*HandleCollector, error) {
	reg, gatherer := resolve(reg)

	live, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mujoco_handles_live",
		Help: "Native handles currently held, labeled by kind.",
	}, []string{"kind"}), "mujoco_handles_live")
	if err != nil {
		return nil, err
	}
	acquired, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mujoco_handles_acquired_total",
		Help: "Native handles acquired, labeled by kind.",
	}, []string{"kind"}), "mujoco_handles_acquired_total")
	if err != nil {
		return nil, err
	}
	released, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mujoco_handles_released_total",
		Help: "Native handles released, labeled by kind.",
	}, []string{"kind"}), "mujoco_handles_released_total")
	if err != nil {
		return nil, err
	}

	return &HandleCollector{
		gatherer: gatherer,
		Live:     live,
		Acquired: acquired,
		Released: released,
	}, nil
}

func (c *HandleCollector) HandleAcquired(kind mujoco.HandleKind) {
	if c == nil {
		return
	}
	c.Live.WithLabelValues(string(kind)).Inc()
	c.Acquired.WithLabelValues(string(kind)).Inc()
}

func (c *HandleCollector) HandleReleased(kind mujoco.HandleKind) {
	if c == nil {
		return
	}
	c.Live.WithLabelValues(string(kind)).Dec()
	c.Released.WithLabelValues(string(kind)).Inc()
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *HandleCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// SimCollector exposes simulation progress. It implements sim.Observer, so
// it is safe to share across ensemble runs.
type SimCollector struct {
	gatherer prometheus.Gatherer

	StepsTotal  prometheus.Counter
	RunDuration prometheus.Histogram
	RunsTotal   *prometheus.CounterVec
}

func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	reg, gatherer := resolve(reg)

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mjsim_steps_total",
		Help: "Simulation steps taken across all runs.",
	}), "mjsim_steps_total")
	if err != nil {
		return nil, err
	}
	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mjsim_run_duration_seconds",
		Help:    "Wall-clock duration of a simulation run.",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}), "mjsim_run_duration_seconds")
	if err != nil {
		return nil, err
	}
	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mjsim_runs_total",
		Help: "Completed simulation runs, labeled by outcome.",
	}, []string{"outcome"}), "mjsim_runs_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:    gatherer,
		StepsTotal:  steps,
		RunDuration: duration,
		RunsTotal:   runs,
	}, nil
}

func (c *SimCollector) OnStep(int, *mujoco.Data) {
	if c == nil {
		return
	}
	c.StepsTotal.Inc()
}

// ObserveRun records one finished run. outcome is "ok", "diverged" or "error".
func (c *SimCollector) ObserveRun(d time.Duration, outcome string) {
	if c == nil {
		return
	}
	c.RunDuration.Observe(d.Seconds())
	c.RunsTotal.WithLabelValues(outcome).Inc()
}

func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// WriteTextfile dumps every metric known to g in the text exposition format,
// for pickup by a node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func resolve(reg prometheus.Registerer) (prometheus.Registerer, prometheus.Gatherer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	return reg, gatherer
}
