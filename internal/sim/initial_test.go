package sim

import (
	"strings"
	"testing"
)

func TestInitialApply(t *testing.T) {
	_, data := newTestData(t)

	in := Initial{
		Qpos: map[string][]float64{"elbow": {0.25}, "spin": {0, 1, 0, 0}},
		Qvel: map[string][]float64{"shoulder": {-1}},
		Ctrl: []float64{0.5},
	}
	if err := in.Apply(data); err != nil {
		t.Fatal(err)
	}

	if data.Qpos()[1] != 0.25 {
		t.Errorf("elbow qpos = %v", data.Qpos()[1])
	}
	spin, _ := data.JointByName("spin")
	if spin.Qpos[1] != 1 {
		t.Errorf("spin qpos = %v", spin.Qpos)
	}
	if data.Qvel()[0] != -1 {
		t.Errorf("shoulder qvel = %v", data.Qvel()[0])
	}
	if data.QfrcActuator()[0] != 0.5 {
		t.Errorf("Apply should run Forward, actuator force = %v", data.QfrcActuator()[0])
	}
}

func TestInitialApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		in   Initial
		want string
	}{
		{"unknown joint", Initial{Qpos: map[string][]float64{"knee": {1}}}, "unknown joint"},
		{"qpos arity", Initial{Qpos: map[string][]float64{"spin": {1}}}, "takes 4 values"},
		{"qvel arity", Initial{Qvel: map[string][]float64{"spin": {1, 2}}}, "takes 3 values"},
		{"ctrl arity", Initial{Ctrl: []float64{1, 2}}, "1 actuators"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, data := newTestData(t)
			err := tt.in.Apply(data)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestPerturb(t *testing.T) {
	_, data := newTestData(t)

	Perturb(data, 1, 0)
	for _, v := range data.Qvel() {
		if v != 0 {
			t.Fatal("zero scale should not perturb")
		}
	}

	Perturb(data, 1, 0.5)
	moved := false
	for _, v := range data.Qvel() {
		if v < -0.5 || v > 0.5 {
			t.Errorf("perturbation %v out of range", v)
		}
		if v != 0 {
			moved = true
		}
	}
	if !moved {
		t.Error("expected some velocity to change")
	}
}
