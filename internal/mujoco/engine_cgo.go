//go:build mujoco

package mujoco

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmujoco
#include <stdlib.h>
#include <mujoco/mujoco.h>
*/
import "C"
import "unsafe"

type nativeEngine struct{}

func newNativeEngine() Engine {
	return nativeEngine{}
}

func (nativeEngine) Name() string {
	return "mujoco " + C.GoString(C.mj_versionString())
}

func (nativeEngine) Available() bool { return true }

func errPtr(buf []byte) (*C.char, C.int) {
	if len(buf) == 0 {
		return nil, 0
	}
	return (*C.char)(unsafe.Pointer(&buf[0])), C.int(len(buf))
}

func (nativeEngine) ParseXMLString(xml string, errBuf []byte) unsafe.Pointer {
	cxml := C.CString(xml)
	defer C.free(unsafe.Pointer(cxml))
	ebuf, esz := errPtr(errBuf)
	return unsafe.Pointer(C.mj_parseXMLString(cxml, nil, ebuf, esz))
}

func (nativeEngine) ParseXML(path string, errBuf []byte) unsafe.Pointer {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	ebuf, esz := errPtr(errBuf)
	return unsafe.Pointer(C.mj_parseXML(cpath, nil, ebuf, esz))
}

func (nativeEngine) Compile(spec unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(C.mj_compile((*C.mjSpec)(spec), nil))
}

func (nativeEngine) SpecError(spec unsafe.Pointer) string {
	return C.GoString(C.mjs_getError((*C.mjSpec)(spec)))
}

func (nativeEngine) DeleteSpec(spec unsafe.Pointer) {
	C.mj_deleteSpec((*C.mjSpec)(spec))
}

func (nativeEngine) LoadXML(path string, errBuf []byte) unsafe.Pointer {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	ebuf, esz := errPtr(errBuf)
	return unsafe.Pointer(C.mj_loadXML(cpath, nil, ebuf, esz))
}

func (nativeEngine) CopyModel(m unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(C.mj_copyModel(nil, (*C.mjModel)(m)))
}

func (nativeEngine) DeleteModel(m unsafe.Pointer) {
	C.mj_deleteModel((*C.mjModel)(m))
}

func (nativeEngine) ModelSizes(m unsafe.Pointer) Sizes {
	cm := (*C.mjModel)(m)
	return Sizes{
		Nq:     int(cm.nq),
		Nv:     int(cm.nv),
		Nu:     int(cm.nu),
		Njnt:   int(cm.njnt),
		Nbody:  int(cm.nbody),
		Nnames: int(cm.nnames),
	}
}

func intSlice(p *C.int, n int) []int32 {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(p)), n)
}

func (e nativeEngine) ModelInts(m unsafe.Pointer, f IntField) []int32 {
	cm := (*C.mjModel)(m)
	n := f.Len(e.ModelSizes(m))
	switch f {
	case JntType:
		return intSlice(cm.jnt_type, n)
	case JntQposAdr:
		return intSlice(cm.jnt_qposadr, n)
	case JntDofAdr:
		return intSlice(cm.jnt_dofadr, n)
	case NameJntAdr:
		return intSlice(cm.name_jntadr, n)
	case NameActuatorAdr:
		return intSlice(cm.name_actuatoradr, n)
	default:
		return nil
	}
}

func (nativeEngine) ModelNames(m unsafe.Pointer) []byte {
	cm := (*C.mjModel)(m)
	if cm.names == nil || cm.nnames == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(cm.names)), int(cm.nnames))
}

func (nativeEngine) Timestep(m unsafe.Pointer) float64 {
	return float64((*C.mjModel)(m).opt.timestep)
}

func (nativeEngine) MakeData(m unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(C.mj_makeData((*C.mjModel)(m)))
}

func (nativeEngine) CopyData(m, d unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(C.mj_copyData(nil, (*C.mjModel)(m), (*C.mjData)(d)))
}

func (nativeEngine) DeleteData(d unsafe.Pointer) {
	C.mj_deleteData((*C.mjData)(d))
}

func numSlice(p *C.mjtNum, n int) []float64 {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(p)), n)
}

func (e nativeEngine) DataFloats(m, d unsafe.Pointer, f FloatField) []float64 {
	cd := (*C.mjData)(d)
	n := f.Len(e.ModelSizes(m))
	switch f {
	case Qpos:
		return numSlice(cd.qpos, n)
	case Qvel:
		return numSlice(cd.qvel, n)
	case Qacc:
		return numSlice(cd.qacc, n)
	case QaccWarmstart:
		return numSlice(cd.qacc_warmstart, n)
	case QaccSmooth:
		return numSlice(cd.qacc_smooth, n)
	case QfrcApplied:
		return numSlice(cd.qfrc_applied, n)
	case QfrcBias:
		return numSlice(cd.qfrc_bias, n)
	case QfrcPassive:
		return numSlice(cd.qfrc_passive, n)
	case QfrcActuator:
		return numSlice(cd.qfrc_actuator, n)
	case QfrcSmooth:
		return numSlice(cd.qfrc_smooth, n)
	case QfrcConstraint:
		return numSlice(cd.qfrc_constraint, n)
	case QfrcInverse:
		return numSlice(cd.qfrc_inverse, n)
	case QLDiagInv:
		return numSlice(cd.qLDiagInv, n)
	case Cdof:
		return numSlice(cd.cdof, n)
	case CdofDot:
		return numSlice(cd.cdof_dot, n)
	case Xanchor:
		return numSlice(cd.xanchor, n)
	case Xaxis:
		return numSlice(cd.xaxis, n)
	case Ctrl:
		return numSlice(cd.ctrl, n)
	default:
		return nil
	}
}

func (nativeEngine) DataTime(d unsafe.Pointer) float64 {
	return float64((*C.mjData)(d).time)
}

func (nativeEngine) ResetData(m, d unsafe.Pointer) {
	C.mj_resetData((*C.mjModel)(m), (*C.mjData)(d))
}

func (nativeEngine) Forward(m, d unsafe.Pointer) {
	C.mj_forward((*C.mjModel)(m), (*C.mjData)(d))
}

func (nativeEngine) Step(m, d unsafe.Pointer) {
	C.mj_step((*C.mjModel)(m), (*C.mjData)(d))
}
