package mujoco

import (
	"fmt"
	"iter"
	"unsafe"
)

// JointType is the kind of a joint. Values match the engine's mjtJoint codes.
type JointType int

const (
	JointFree JointType = iota
	JointBall
	JointSlide
	JointHinge
)

// JointTypes lists every joint kind.
var JointTypes = []JointType{JointFree, JointBall, JointSlide, JointHinge}

func jointTypeFromCode(code int32) (JointType, bool) {
	switch t := JointType(code); t {
	case JointFree, JointBall, JointSlide, JointHinge:
		return t, true
	default:
		return 0, false
	}
}

func (t JointType) String() string {
	switch t {
	case JointFree:
		return "free"
	case JointBall:
		return "ball"
	case JointSlide:
		return "slide"
	case JointHinge:
		return "hinge"
	default:
		return fmt.Sprintf("JointType(%d)", int(t))
	}
}

// PositionCount is the number of generalized coordinates of a joint kind:
// a position plus unit quaternion for free, a quaternion for ball.
func (t JointType) PositionCount() int {
	switch t {
	case JointFree:
		return 7
	case JointBall:
		return 4
	case JointSlide, JointHinge:
		return 1
	default:
		panic(fmt.Sprintf("mujoco: no position count for %v", t))
	}
}

// VelocityCount is the number of degrees of freedom of a joint kind.
func (t JointType) VelocityCount() int {
	switch t {
	case JointFree:
		return 6
	case JointBall:
		return 3
	case JointSlide, JointHinge:
		return 1
	default:
		panic(fmt.Sprintf("mujoco: no velocity count for %v", t))
	}
}

// JointView is one joint's slice of a Data instance's state. Every slice
// aliases the Data buffers: writes go straight to the simulation state, and
// the view is valid only while the Data is open.
type JointView struct {
	ID   int
	Name string
	Type JointType

	Qpos []float64

	Qvel           []float64
	Qacc           []float64
	QaccWarmstart  []float64
	QaccSmooth     []float64
	QfrcApplied    []float64
	QfrcBias       []float64
	QfrcPassive    []float64
	QfrcActuator   []float64
	QfrcSmooth     []float64
	QfrcConstraint []float64
	QfrcInverse    []float64
	QLDiagInv      []float64

	// 6 spatial components per degree of freedom.
	Cdof    []float64
	CdofDot []float64

	Xanchor []float64
	Xaxis   []float64
}

// Joint returns the view of joint id. It reports false when id is out of
// range or the model's tables for that joint are corrupt.
func (d *Data) Joint(id int) (JointView, bool) {
	if d.closed() {
		return JointView{}, false
	}
	m := d.model
	desc, ok := m.Joint(id)
	if !ok {
		return JointView{}, false
	}
	nameBytes, ok := m.nameBytes(desc.NameAdr)
	if !ok {
		return JointView{}, false
	}

	nq := desc.Type.PositionCount()
	nv := desc.Type.VelocityCount()
	q0, v0 := desc.QposAdr, desc.DofAdr

	view := JointView{
		ID:   id,
		Name: unsafe.String(unsafe.SliceData(nameBytes), len(nameBytes)),
		Type: desc.Type,

		Qpos: d.window(Qpos, q0, nq, &ok),

		Qvel:           d.window(Qvel, v0, nv, &ok),
		Qacc:           d.window(Qacc, v0, nv, &ok),
		QaccWarmstart:  d.window(QaccWarmstart, v0, nv, &ok),
		QaccSmooth:     d.window(QaccSmooth, v0, nv, &ok),
		QfrcApplied:    d.window(QfrcApplied, v0, nv, &ok),
		QfrcBias:       d.window(QfrcBias, v0, nv, &ok),
		QfrcPassive:    d.window(QfrcPassive, v0, nv, &ok),
		QfrcActuator:   d.window(QfrcActuator, v0, nv, &ok),
		QfrcSmooth:     d.window(QfrcSmooth, v0, nv, &ok),
		QfrcConstraint: d.window(QfrcConstraint, v0, nv, &ok),
		QfrcInverse:    d.window(QfrcInverse, v0, nv, &ok),
		QLDiagInv:      d.window(QLDiagInv, v0, nv, &ok),

		Cdof:    d.window(Cdof, 6*v0, 6*nv, &ok),
		CdofDot: d.window(CdofDot, 6*v0, 6*nv, &ok),

		Xanchor: d.window(Xanchor, 3*id, 3, &ok),
		Xaxis:   d.window(Xaxis, 3*id, 3, &ok),
	}
	if !ok {
		return JointView{}, false
	}
	return view, true
}

// JointByName returns the view of the joint called name.
func (d *Data) JointByName(name string) (JointView, bool) {
	if d.closed() {
		return JointView{}, false
	}
	id, ok := d.model.JointID(name)
	if !ok {
		return JointView{}, false
	}
	return d.Joint(id)
}

// Joints yields the view of every joint whose tables decode, in id order.
func (d *Data) Joints() iter.Seq[JointView] {
	return func(yield func(JointView) bool) {
		for id := 0; id < d.model.NumJoints(); id++ {
			view, ok := d.Joint(id)
			if !ok {
				continue
			}
			if !yield(view) {
				return
			}
		}
	}
}

// window returns buffer f at [off, off+n) with its capacity clipped to n.
// A range outside the buffer clears ok.
func (d *Data) window(f FloatField, off, n int, ok *bool) []float64 {
	buf := d.buf[f]
	if off < 0 || n < 0 || off+n > len(buf) {
		*ok = false
		return nil
	}
	return buf[off : off+n : off+n]
}
