package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/san-kum/mjsim/internal/mujoco"
)

// Initial is a state override applied to a fresh Data: joint positions and
// velocities by joint name, controls by actuator index.
type Initial struct {
	Qpos map[string][]float64
	Qvel map[string][]float64
	Ctrl []float64
}

// Apply writes the overrides into d through joint views, then runs Forward
// so derived quantities match.
func (in Initial) Apply(d *mujoco.Data) error {
	for name, values := range in.Qpos {
		j, ok := d.JointByName(name)
		if !ok {
			return fmt.Errorf("initial qpos: unknown joint %q", name)
		}
		if len(values) != len(j.Qpos) {
			return fmt.Errorf("initial qpos: joint %q (%s) takes %d values, got %d",
				name, j.Type, len(j.Qpos), len(values))
		}
		copy(j.Qpos, values)
	}
	for name, values := range in.Qvel {
		j, ok := d.JointByName(name)
		if !ok {
			return fmt.Errorf("initial qvel: unknown joint %q", name)
		}
		if len(values) != len(j.Qvel) {
			return fmt.Errorf("initial qvel: joint %q (%s) takes %d values, got %d",
				name, j.Type, len(j.Qvel), len(values))
		}
		copy(j.Qvel, values)
	}
	if ctrl := d.Ctrl(); len(in.Ctrl) > len(ctrl) {
		return fmt.Errorf("initial ctrl: model has %d actuators, got %d values", len(ctrl), len(in.Ctrl))
	}
	copy(d.Ctrl(), in.Ctrl)
	return d.Forward()
}

// Perturb adds uniform noise in [-scale, scale] to every velocity of d.
func Perturb(d *mujoco.Data, seed int64, scale float64) {
	if scale == 0 {
		return
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
	qvel := d.Qvel()
	for i := range qvel {
		qvel[i] += scale * (2*rng.Float64() - 1)
	}
}
