package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/mjsim/internal/mujoco"
)

// State is one recorded row: per-joint positions then velocities, in the
// column order given by Columns.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	var sum float64
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

type Metric interface {
	Name() string
	Observe(d *mujoco.Data)
	Value() float64
	Reset()
}

// Observer is called before every step. Observers shared by an Ensemble
// must be safe for concurrent use.
type Observer interface {
	OnStep(step int, d *mujoco.Data)
}

type Config struct {
	Steps         int
	RecordEvery   int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Steps:         1000,
		RecordEvery:   10,
		ValidateState: true,
	}
}

type Result struct {
	Columns    []string
	Times      []float64
	States     []State
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

type SimError struct {
	Step    int
	Time    float64
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

// Columns names the values Snapshot records, one per generalized coordinate
// and one per degree of freedom of every decodable joint.
func Columns(d *mujoco.Data) []string {
	var pos, vel []string
	for j := range d.Joints() {
		for i := range j.Qpos {
			pos = append(pos, columnName(j.Name, "qpos", i, len(j.Qpos)))
		}
		for i := range j.Qvel {
			vel = append(vel, columnName(j.Name, "qvel", i, len(j.Qvel)))
		}
	}
	return append(pos, vel...)
}

func columnName(joint, field string, i, n int) string {
	if n == 1 {
		return joint + "." + field
	}
	return fmt.Sprintf("%s.%s[%d]", joint, field, i)
}

// Snapshot copies the joint positions and velocities of d into a new State.
func Snapshot(d *mujoco.Data) State {
	var pos, vel State
	for j := range d.Joints() {
		pos = append(pos, j.Qpos...)
		vel = append(vel, j.Qvel...)
	}
	return append(pos, vel...)
}
