package metrics

import "github.com/san-kum/mjsim/internal/sim"

// Default returns a fresh instance of every metric.
func Default(stabilityThreshold float64) []sim.Metric {
	return []sim.Metric{
		NewStability(stabilityThreshold),
		NewKineticProxy(),
		NewKineticDrift(),
		NewControlEffort(),
	}
}
