package mujoco

import "unsafe"

// Engine is the fixed set of native entry points the handles call into.
// Pointers are opaque to this package; a nil pointer is the engine's failure
// signal. Slices returned by ModelInts, ModelNames and DataFloats must alias
// native memory and stay valid until the owning pointer is deleted.
type Engine interface {
	Name() string
	Available() bool

	ParseXMLString(xml string, errBuf []byte) unsafe.Pointer
	ParseXML(path string, errBuf []byte) unsafe.Pointer
	Compile(spec unsafe.Pointer) unsafe.Pointer
	SpecError(spec unsafe.Pointer) string
	DeleteSpec(spec unsafe.Pointer)

	LoadXML(path string, errBuf []byte) unsafe.Pointer
	CopyModel(m unsafe.Pointer) unsafe.Pointer
	DeleteModel(m unsafe.Pointer)
	ModelSizes(m unsafe.Pointer) Sizes
	ModelInts(m unsafe.Pointer, f IntField) []int32
	ModelNames(m unsafe.Pointer) []byte
	Timestep(m unsafe.Pointer) float64

	MakeData(m unsafe.Pointer) unsafe.Pointer
	CopyData(m, d unsafe.Pointer) unsafe.Pointer
	DeleteData(d unsafe.Pointer)
	DataFloats(m, d unsafe.Pointer, f FloatField) []float64
	DataTime(d unsafe.Pointer) float64
	ResetData(m, d unsafe.Pointer)
	Forward(m, d unsafe.Pointer)
	Step(m, d unsafe.Pointer)
}

// Sizes are the entity counts of a compiled model.
type Sizes struct {
	Nq     int // generalized coordinates
	Nv     int // degrees of freedom
	Nu     int // actuators
	Njnt   int
	Nbody  int
	Nnames int // bytes in the name table
}

// IntField names an integer addressing table of a model.
type IntField int

const (
	JntType IntField = iota
	JntQposAdr
	JntDofAdr
	NameJntAdr
	NameActuatorAdr
	numIntFields
)

var intFieldNames = [numIntFields]string{
	JntType:         "jnt_type",
	JntQposAdr:      "jnt_qposadr",
	JntDofAdr:       "jnt_dofadr",
	NameJntAdr:      "name_jntadr",
	NameActuatorAdr: "name_actuatoradr",
}

func (f IntField) String() string {
	if f < 0 || f >= numIntFields {
		return "unknown"
	}
	return intFieldNames[f]
}

// Len returns the number of entries the table holds for a model of size s.
func (f IntField) Len(s Sizes) int {
	switch f {
	case JntType, JntQposAdr, JntDofAdr, NameJntAdr:
		return s.Njnt
	case NameActuatorAdr:
		return s.Nu
	default:
		return 0
	}
}

// FloatField names a flat state buffer of a data instance.
type FloatField int

const (
	Qpos FloatField = iota
	Qvel
	Qacc
	QaccWarmstart
	QaccSmooth
	QfrcApplied
	QfrcBias
	QfrcPassive
	QfrcActuator
	QfrcSmooth
	QfrcConstraint
	QfrcInverse
	QLDiagInv
	Cdof
	CdofDot
	Xanchor
	Xaxis
	Ctrl
	numFloatFields
)

var floatFieldNames = [numFloatFields]string{
	Qpos:           "qpos",
	Qvel:           "qvel",
	Qacc:           "qacc",
	QaccWarmstart:  "qacc_warmstart",
	QaccSmooth:     "qacc_smooth",
	QfrcApplied:    "qfrc_applied",
	QfrcBias:       "qfrc_bias",
	QfrcPassive:    "qfrc_passive",
	QfrcActuator:   "qfrc_actuator",
	QfrcSmooth:     "qfrc_smooth",
	QfrcConstraint: "qfrc_constraint",
	QfrcInverse:    "qfrc_inverse",
	QLDiagInv:      "qLDiagInv",
	Cdof:           "cdof",
	CdofDot:        "cdof_dot",
	Xanchor:        "xanchor",
	Xaxis:          "xaxis",
	Ctrl:           "ctrl",
}

func (f FloatField) String() string {
	if f < 0 || f >= numFloatFields {
		return "unknown"
	}
	return floatFieldNames[f]
}

// Len returns the buffer length for a model of size s.
func (f FloatField) Len(s Sizes) int {
	switch f {
	case Qpos:
		return s.Nq
	case Qvel, Qacc, QaccWarmstart, QaccSmooth,
		QfrcApplied, QfrcBias, QfrcPassive, QfrcActuator,
		QfrcSmooth, QfrcConstraint, QfrcInverse, QLDiagInv:
		return s.Nv
	case Cdof, CdofDot:
		return 6 * s.Nv
	case Xanchor, Xaxis:
		return 3 * s.Njnt
	case Ctrl:
		return s.Nu
	default:
		return 0
	}
}

// FloatFields lists every state buffer in declaration order.
func FloatFields() []FloatField {
	fields := make([]FloatField, numFloatFields)
	for i := range fields {
		fields[i] = FloatField(i)
	}
	return fields
}

var activeEngine Engine

func init() {
	activeEngine = AutoSelectEngine()
}

// SetEngine installs e as the engine used by ParseXML, ParseFile and
// LoadFile, returning the previously active engine. Handles created earlier
// keep the engine they were created with.
func SetEngine(e Engine) Engine {
	prev := activeEngine
	activeEngine = e
	return prev
}

func GetEngine() Engine {
	return activeEngine
}

// AutoSelectEngine returns the native engine when the binary was built with
// the mujoco tag, otherwise an engine that reports itself unavailable.
func AutoSelectEngine() Engine {
	return newNativeEngine()
}
