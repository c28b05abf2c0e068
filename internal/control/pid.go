package control

import (
	"fmt"

	"github.com/san-kum/mjsim/internal/mujoco"
)

// PID tracks Target on the first coordinate of Joint through Actuator.
// It holds integrator state, so each Data needs its own instance.
type PID struct {
	Joint    string
	Actuator string
	Kp       float64
	Ki       float64
	Kd       float64
	Target   float64

	actuator int
	bound    bool
	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(joint, actuator string, kp, ki, kd, target float64) *PID {
	return &PID{
		Joint:    joint,
		Actuator: actuator,
		Kp:       kp,
		Ki:       ki,
		Kd:       kd,
		Target:   target,
		first:    true,
	}
}

// Bind resolves the joint and actuator names against m. The joint must have
// a single degree of freedom.
func (p *PID) Bind(m *mujoco.Model) error {
	id, ok := m.JointID(p.Joint)
	if !ok {
		return fmt.Errorf("control: unknown joint %q", p.Joint)
	}
	typ, _ := m.JointType(id)
	if typ.VelocityCount() != 1 {
		return fmt.Errorf("control: joint %q is %s, pid needs a hinge or slide", p.Joint, typ)
	}

	for i := 0; i < m.Nu(); i++ {
		if name, ok := m.ActuatorName(i); ok && name == p.Actuator {
			p.actuator = i
			p.bound = true
			p.Reset()
			return nil
		}
	}
	return fmt.Errorf("control: unknown actuator %q", p.Actuator)
}

// Compute returns the control for position x at time t.
func (p *PID) Compute(x, t float64) float64 {
	err := p.Target - x

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return p.Kp * err
	}

	dt := t - p.prevT
	if dt > 0 {
		p.integral += err * dt
		derivative := (err - p.prevErr) / dt

		u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative

		p.prevErr = err
		p.prevT = t

		return u
	}
	return p.Kp * err
}

// OnStep writes the actuator control from the joint's current position.
// An unbound controller does nothing.
func (p *PID) OnStep(_ int, d *mujoco.Data) {
	if !p.bound {
		return
	}
	view, ok := d.JointByName(p.Joint)
	if !ok {
		return
	}
	ctrl := d.Ctrl()
	if p.actuator >= len(ctrl) {
		return
	}
	ctrl[p.actuator] = p.Compute(view.Qpos[0], d.Time())
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.prevT = 0
	p.first = true
}

// GetParams returns the gains and target by name, as tuned from the live view.
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}

// SetParam sets one of the names reported by GetParams. Unknown names are
// ignored. The integrator state is kept so a retune does not jolt the joint.
func (p *PID) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	}
}
