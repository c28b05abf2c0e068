package mjtest

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/mjsim/internal/mujoco"
)

const defaultTimestep = 0.002

type xmlScene struct {
	XMLName   xml.Name  `xml:"mujoco"`
	Model     string    `xml:"model,attr"`
	Option    xmlOption `xml:"option"`
	Worldbody struct {
		Bodies []xmlBody `xml:"body"`
	} `xml:"worldbody"`
	Actuator struct {
		Motors []xmlMotor `xml:"motor"`
	} `xml:"actuator"`
}

type xmlOption struct {
	Timestep string `xml:"timestep,attr"`
}

type xmlBody struct {
	Name       string     `xml:"name,attr"`
	Pos        string     `xml:"pos,attr"`
	Joints     []xmlJoint `xml:"joint"`
	FreeJoints []xmlJoint `xml:"freejoint"`
	Bodies     []xmlBody  `xml:"body"`
}

type xmlJoint struct {
	Name      string `xml:"name,attr"`
	Type      string `xml:"type,attr"`
	Axis      string `xml:"axis,attr"`
	Pos       string `xml:"pos,attr"`
	Stiffness string `xml:"stiffness,attr"`
	Damping   string `xml:"damping,attr"`
}

type xmlMotor struct {
	Name  string `xml:"name,attr"`
	Joint string `xml:"joint,attr"`
	Gear  string `xml:"gear,attr"`
}

// scene is a parsed but uncompiled description.
type scene struct {
	name      string
	timestep  float64
	bodies    []body
	actuators []actuator

	// err is the last compile error, read back through SpecError.
	err string
}

type body struct {
	name   string
	pos    [3]float64 // world frame
	joints []joint
}

type joint struct {
	name      string
	typ       mujoco.JointType
	axis      [3]float64
	anchor    [3]float64 // world frame
	stiffness float64
	damping   float64
}

type actuator struct {
	name  string
	joint string
	gear  float64
}

func parseScene(text string) (*scene, error) {
	var doc xmlScene
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}

	s := &scene{name: doc.Model, timestep: defaultTimestep}
	if doc.Option.Timestep != "" {
		ts, err := strconv.ParseFloat(doc.Option.Timestep, 64)
		if err != nil || ts <= 0 {
			return nil, fmt.Errorf("invalid timestep '%s'", doc.Option.Timestep)
		}
		s.timestep = ts
	}

	for _, b := range doc.Worldbody.Bodies {
		if err := s.addBody(b, [3]float64{}); err != nil {
			return nil, err
		}
	}

	for _, m := range doc.Actuator.Motors {
		gear := 1.0
		if fields := strings.Fields(m.Gear); len(fields) > 0 {
			g, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid gear '%s' in motor '%s'", m.Gear, m.Name)
			}
			gear = g
		}
		s.actuators = append(s.actuators, actuator{name: m.Name, joint: m.Joint, gear: gear})
	}
	return s, nil
}

func (s *scene) addBody(xb xmlBody, parent [3]float64) error {
	local, err := parseVec(xb.Pos, [3]float64{})
	if err != nil {
		return fmt.Errorf("body '%s': %w", xb.Name, err)
	}
	b := body{name: xb.Name, pos: add(parent, local)}

	for _, fj := range xb.FreeJoints {
		b.joints = append(b.joints, joint{name: fj.Name, typ: mujoco.JointFree, axis: [3]float64{0, 0, 1}, anchor: b.pos})
	}
	for _, xj := range xb.Joints {
		j, err := parseJoint(xj, b.pos)
		if err != nil {
			return err
		}
		b.joints = append(b.joints, j)
	}
	s.bodies = append(s.bodies, b)

	for _, child := range xb.Bodies {
		if err := s.addBody(child, b.pos); err != nil {
			return err
		}
	}
	return nil
}

func parseJoint(xj xmlJoint, bodyPos [3]float64) (joint, error) {
	j := joint{name: xj.Name}

	switch xj.Type {
	case "", "hinge":
		j.typ = mujoco.JointHinge
	case "slide":
		j.typ = mujoco.JointSlide
	case "ball":
		j.typ = mujoco.JointBall
	case "free":
		j.typ = mujoco.JointFree
	default:
		return joint{}, fmt.Errorf("unrecognized joint type '%s' in joint '%s'", xj.Type, xj.Name)
	}

	axis, err := parseVec(xj.Axis, [3]float64{0, 0, 1})
	if err != nil {
		return joint{}, fmt.Errorf("joint '%s': %w", xj.Name, err)
	}
	n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if n == 0 {
		return joint{}, fmt.Errorf("joint '%s': axis cannot be zero", xj.Name)
	}
	j.axis = [3]float64{axis[0] / n, axis[1] / n, axis[2] / n}

	pos, err := parseVec(xj.Pos, [3]float64{})
	if err != nil {
		return joint{}, fmt.Errorf("joint '%s': %w", xj.Name, err)
	}
	j.anchor = add(bodyPos, pos)

	if j.stiffness, err = parseScalar(xj.Stiffness); err != nil {
		return joint{}, fmt.Errorf("joint '%s': %w", xj.Name, err)
	}
	if j.damping, err = parseScalar(xj.Damping); err != nil {
		return joint{}, fmt.Errorf("joint '%s': %w", xj.Name, err)
	}
	return j, nil
}

func parseVec(attr string, def [3]float64) ([3]float64, error) {
	if attr == "" {
		return def, nil
	}
	fields := strings.Fields(attr)
	if len(fields) != 3 {
		return def, fmt.Errorf("expected 3 numbers, got '%s'", attr)
	}
	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return def, fmt.Errorf("invalid number '%s'", f)
		}
		v[i] = x
	}
	return v, nil
}

func parseScalar(attr string) (float64, error) {
	if attr == "" {
		return 0, nil
	}
	x, err := strconv.ParseFloat(attr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number '%s'", attr)
	}
	return x, nil
}

func add(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}
