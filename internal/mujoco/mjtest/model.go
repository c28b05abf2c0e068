package mjtest

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/mjsim/internal/mujoco"
)

const gravity = 9.81

type compiledJoint struct {
	joint
	qposAdr int
	dofAdr  int
}

type compiledActuator struct {
	joint int
	gear  float64
}

// model mirrors the parts of a compiled native model the wrapper reads.
type model struct {
	sizes     mujoco.Sizes
	ints      map[mujoco.IntField][]int32
	names     []byte
	timestep  float64
	joints    []compiledJoint
	actuators []compiledActuator
	qpos0     []float64
}

func compileScene(s *scene, corruptNames bool) (*model, error) {
	m := &model{
		ints:     make(map[mujoco.IntField][]int32),
		timestep: s.timestep,
	}

	names := newNameTable()
	names.add(s.name)
	names.add("world")
	for _, b := range s.bodies {
		names.add(b.name)
	}

	jointIDs := make(map[string]int)
	var nq, nv int
	for _, b := range s.bodies {
		for _, j := range b.joints {
			if j.name != "" {
				if _, dup := jointIDs[j.name]; dup {
					return nil, fmt.Errorf("repeated name '%s' in joint", j.name)
				}
				jointIDs[j.name] = len(m.joints)
			}
			cj := compiledJoint{joint: j, qposAdr: nq, dofAdr: nv}
			m.joints = append(m.joints, cj)
			m.ints[mujoco.JntType] = append(m.ints[mujoco.JntType], int32(j.typ))
			m.ints[mujoco.JntQposAdr] = append(m.ints[mujoco.JntQposAdr], int32(nq))
			m.ints[mujoco.JntDofAdr] = append(m.ints[mujoco.JntDofAdr], int32(nv))
			m.ints[mujoco.NameJntAdr] = append(m.ints[mujoco.NameJntAdr], int32(names.add(j.name)))

			switch j.typ {
			case mujoco.JointFree:
				m.qpos0 = append(m.qpos0, j.anchor[0], j.anchor[1], j.anchor[2], 1, 0, 0, 0)
			case mujoco.JointBall:
				m.qpos0 = append(m.qpos0, 1, 0, 0, 0)
			default:
				m.qpos0 = append(m.qpos0, 0)
			}
			nq += j.typ.PositionCount()
			nv += j.typ.VelocityCount()
		}
	}

	for _, a := range s.actuators {
		id, ok := jointIDs[a.joint]
		if !ok {
			return nil, fmt.Errorf("unknown joint '%s' in actuator '%s'", a.joint, a.name)
		}
		m.actuators = append(m.actuators, compiledActuator{joint: id, gear: a.gear})
		m.ints[mujoco.NameActuatorAdr] = append(m.ints[mujoco.NameActuatorAdr], int32(names.add(a.name)))
	}

	m.names = names.buf
	if corruptNames {
		for _, adr := range m.ints[mujoco.NameJntAdr] {
			if m.names[adr] != 0 {
				m.names[adr] = 0xff
			}
		}
	}

	m.sizes = mujoco.Sizes{
		Nq:     nq,
		Nv:     nv,
		Nu:     len(m.actuators),
		Njnt:   len(m.joints),
		Nbody:  len(s.bodies) + 1,
		Nnames: len(m.names),
	}
	return m, nil
}

func (m *model) clone() *model {
	cp := *m
	cp.ints = make(map[mujoco.IntField][]int32, len(m.ints))
	for f, v := range m.ints {
		cp.ints[f] = slices.Clone(v)
	}
	cp.names = slices.Clone(m.names)
	cp.joints = slices.Clone(m.joints)
	cp.actuators = slices.Clone(m.actuators)
	cp.qpos0 = slices.Clone(m.qpos0)
	return &cp
}

type nameTable struct {
	buf []byte
}

func newNameTable() *nameTable { return &nameTable{} }

// add appends name with its terminator and returns its offset.
func (t *nameTable) add(name string) int {
	off := len(t.buf)
	t.buf = append(t.buf, name...)
	t.buf = append(t.buf, 0)
	return off
}

// data mirrors a native data instance.
type data struct {
	buf  [][]float64
	time float64
}

func newData(m *model) *data {
	fields := mujoco.FloatFields()
	d := &data{buf: make([][]float64, len(fields))}
	for _, f := range fields {
		d.buf[f] = make([]float64, f.Len(m.sizes))
	}
	d.reset(m)
	return d
}

func (d *data) clone() *data {
	cp := &data{buf: make([][]float64, len(d.buf)), time: d.time}
	for i, b := range d.buf {
		cp.buf[i] = slices.Clone(b)
	}
	return cp
}

func (d *data) reset(m *model) {
	for _, b := range d.buf {
		clear(b)
	}
	copy(d.buf[mujoco.Qpos], m.qpos0)
	d.time = 0
}

// forward fills the derived buffers with a unit-mass toy dynamics: gravity
// bias, spring-damper passive forces and geared motors.
func forward(m *model, d *data) {
	qpos, qvel := d.buf[mujoco.Qpos], d.buf[mujoco.Qvel]
	bias := d.buf[mujoco.QfrcBias]
	passive := d.buf[mujoco.QfrcPassive]
	act := d.buf[mujoco.QfrcActuator]
	cdof := d.buf[mujoco.Cdof]
	xanchor, xaxis := d.buf[mujoco.Xanchor], d.buf[mujoco.Xaxis]

	clear(bias)
	clear(act)
	clear(cdof)

	for id, j := range m.joints {
		q, v := j.qposAdr, j.dofAdr
		switch j.typ {
		case mujoco.JointHinge:
			bias[v] = gravity * math.Sin(qpos[q])
			passive[v] = -j.stiffness*qpos[q] - j.damping*qvel[v]
			copy(cdof[6*v:6*v+3], j.axis[:])
			copy(xanchor[3*id:3*id+3], j.anchor[:])
		case mujoco.JointSlide:
			bias[v] = gravity * j.axis[2]
			passive[v] = -j.stiffness*qpos[q] - j.damping*qvel[v]
			copy(cdof[6*v+3:6*v+6], j.axis[:])
			for k := range 3 {
				xanchor[3*id+k] = j.anchor[k] + qpos[q]*j.axis[k]
			}
		case mujoco.JointBall:
			for k := range 3 {
				passive[v+k] = -j.stiffness*qpos[q+1+k] - j.damping*qvel[v+k]
				cdof[6*(v+k)+k] = 1
			}
			copy(xanchor[3*id:3*id+3], j.anchor[:])
		case mujoco.JointFree:
			bias[v+2] = gravity
			for k := range 3 {
				passive[v+k] = -j.damping * qvel[v+k]
				passive[v+3+k] = -j.damping * qvel[v+3+k]
				cdof[6*(v+k)+3+k] = 1
				cdof[6*(v+3+k)+k] = 1
			}
			copy(xanchor[3*id:3*id+3], qpos[q:q+3])
		}
		copy(xaxis[3*id:3*id+3], j.axis[:])
	}

	ctrl := d.buf[mujoco.Ctrl]
	for i, a := range m.actuators {
		act[m.joints[a.joint].dofAdr] += a.gear * ctrl[i]
	}

	applied, constraint := d.buf[mujoco.QfrcApplied], d.buf[mujoco.QfrcConstraint]
	smooth := d.buf[mujoco.QfrcSmooth]
	accSmooth, acc := d.buf[mujoco.QaccSmooth], d.buf[mujoco.Qacc]
	diag := d.buf[mujoco.QLDiagInv]
	for i := range smooth {
		smooth[i] = passive[i] + act[i] + applied[i] - bias[i]
		accSmooth[i] = smooth[i]
		acc[i] = smooth[i] + constraint[i]
		diag[i] = 1
	}
}

// step runs forward then advances one semi-implicit Euler step.
func step(m *model, d *data) {
	forward(m, d)

	qpos, qvel, acc := d.buf[mujoco.Qpos], d.buf[mujoco.Qvel], d.buf[mujoco.Qacc]
	copy(d.buf[mujoco.QaccWarmstart], acc)
	dt := m.timestep
	for i := range qvel {
		qvel[i] += dt * acc[i]
	}

	for _, j := range m.joints {
		q, v := j.qposAdr, j.dofAdr
		switch j.typ {
		case mujoco.JointHinge, mujoco.JointSlide:
			qpos[q] += dt * qvel[v]
		case mujoco.JointBall:
			integrateQuat(qpos[q:q+4], qvel[v:v+3], dt)
		case mujoco.JointFree:
			for k := range 3 {
				qpos[q+k] += dt * qvel[v+k]
			}
			integrateQuat(qpos[q+3:q+7], qvel[v+3:v+6], dt)
		}
	}
	d.time += dt
}

// integrateQuat rotates quat by angular velocity w over dt and renormalizes.
func integrateQuat(quat, w []float64, dt float64) {
	a, b, c, e := quat[0], quat[1], quat[2], quat[3]
	h := 0.5 * dt
	quat[0] = a - h*(b*w[0]+c*w[1]+e*w[2])
	quat[1] = b + h*(a*w[0]+c*w[2]-e*w[1])
	quat[2] = c + h*(a*w[1]+e*w[0]-b*w[2])
	quat[3] = e + h*(a*w[2]+b*w[1]-c*w[0])

	n := math.Sqrt(quat[0]*quat[0] + quat[1]*quat[1] + quat[2]*quat[2] + quat[3]*quat[3])
	if n == 0 {
		quat[0], quat[1], quat[2], quat[3] = 1, 0, 0, 0
		return
	}
	for i := range quat {
		quat[i] /= n
	}
}
