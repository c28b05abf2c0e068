package metrics

import (
	"math"

	"github.com/san-kum/mjsim/internal/mujoco"
)

func kineticProxy(qvel []float64) float64 {
	var sum float64
	for _, v := range qvel {
		sum += v * v
	}
	return 0.5 * sum
}

// KineticProxy is the mean of ½·Σqvel² over observed steps. It treats every
// degree of freedom as unit mass.
type KineticProxy struct {
	name    string
	samples int
	total   float64
}

func NewKineticProxy() *KineticProxy {
	return &KineticProxy{name: "kinetic_proxy"}
}

func (k *KineticProxy) Name() string { return k.name }

func (k *KineticProxy) Observe(d *mujoco.Data) {
	k.total += kineticProxy(d.Qvel())
	k.samples++
}

func (k *KineticProxy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

func (k *KineticProxy) Reset() {
	k.total = 0
	k.samples = 0
}

// KineticDrift is the largest change of the kinetic proxy from its first
// observed value, relative to that value. A system that starts at rest has
// no scale, so its drift is absolute.
type KineticDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewKineticDrift() *KineticDrift {
	return &KineticDrift{name: "kinetic_drift"}
}

func (k *KineticDrift) Name() string { return k.name }

func (k *KineticDrift) Observe(d *mujoco.Data) {
	e := kineticProxy(d.Qvel())
	if k.samples == 0 {
		k.initial = e
	}
	k.samples++

	drift := math.Abs(e - k.initial)
	if k.initial != 0 {
		drift /= k.initial
	}
	k.maxDrift = math.Max(k.maxDrift, drift)
}

func (k *KineticDrift) Value() float64 {
	return k.maxDrift
}

func (k *KineticDrift) Reset() {
	k.initial = 0
	k.maxDrift = 0
	k.samples = 0
}
