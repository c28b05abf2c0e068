package mujoco

import (
	"runtime"
	"unsafe"
)

// Data owns the mutable simulation state of one instance of a Model. The
// Model must stay open for as long as the Data is; Model.Close refuses
// otherwise.
//
// Data is not safe for concurrent use. Callers serialize every step and
// every buffer write on a given instance.
type Data struct {
	model *Model
	h     *handle
	buf   [numFloatFields][]float64
}

// NewData allocates simulation state sized for model.
func NewData(model *Model) (*Data, error) {
	mptr := model.ptr()
	if mptr == nil {
		return nil, ErrClosed
	}
	if err := model.acquireData(); err != nil {
		return nil, err
	}
	ptr := model.eng.MakeData(mptr)
	runtime.KeepAlive(model)
	if ptr == nil {
		model.releaseData()
		return nil, ErrAllocationFailed
	}
	return newData(model, ptr), nil
}

func newData(model *Model, ptr unsafe.Pointer) *Data {
	d := &Data{model: model}
	mptr := model.ptr()
	for f := FloatField(0); f < numFloatFields; f++ {
		d.buf[f] = model.eng.DataFloats(mptr, ptr, f)
	}
	eng := model.eng
	d.h = track(d, KindData, ptr, func(p unsafe.Pointer) {
		eng.DeleteData(p)
		model.releaseData()
	})
	return d
}

// Clone deep-copies the state through the engine. The copy is bound to the
// same Model and independent of d afterwards.
func (d *Data) Clone() (*Data, error) {
	ptr := d.h.get()
	if ptr == nil {
		return nil, ErrClosed
	}
	m := d.model
	if err := m.acquireData(); err != nil {
		return nil, err
	}
	cp := m.eng.CopyData(d.modelPtr(), ptr)
	runtime.KeepAlive(d)
	if cp == nil {
		m.releaseData()
		return nil, ErrAllocationFailed
	}
	return newData(m, cp), nil
}

// Close releases the state. Closing twice is a no-op.
func (d *Data) Close() error {
	d.buf = [numFloatFields][]float64{}
	d.h.close()
	runtime.KeepAlive(d)
	return nil
}

func (d *Data) closed() bool {
	return d.h.get() == nil
}

// modelPtr returns the bound model's native pointer. The model cannot be
// closed while d is open, so a nil result is a broken invariant.
func (d *Data) modelPtr() unsafe.Pointer {
	p := d.model.ptr()
	if p == nil {
		panic("mujoco: data outlived its model")
	}
	return p
}

func (d *Data) Model() *Model { return d.model }

// Time is the simulation time in seconds.
func (d *Data) Time() float64 {
	ptr := d.h.get()
	if ptr == nil {
		return 0
	}
	t := d.model.eng.DataTime(ptr)
	runtime.KeepAlive(d)
	return t
}

// Forward computes derived quantities without advancing time.
func (d *Data) Forward() error {
	return d.call(d.model.eng.Forward)
}

// Step advances the simulation by one model timestep.
func (d *Data) Step() error {
	return d.call(d.model.eng.Step)
}

// Reset restores the model's default state.
func (d *Data) Reset() error {
	return d.call(d.model.eng.ResetData)
}

func (d *Data) call(fn func(m, d unsafe.Pointer)) error {
	ptr := d.h.get()
	if ptr == nil {
		return ErrClosed
	}
	fn(d.modelPtr(), ptr)
	runtime.KeepAlive(d)
	return nil
}

// Buffer returns the whole state buffer f, aliasing native memory. It is nil
// once d is closed.
func (d *Data) Buffer(f FloatField) []float64 {
	if f < 0 || f >= numFloatFields {
		return nil
	}
	return d.buf[f]
}

func (d *Data) Qpos() []float64           { return d.buf[Qpos] }
func (d *Data) Qvel() []float64           { return d.buf[Qvel] }
func (d *Data) Qacc() []float64           { return d.buf[Qacc] }
func (d *Data) QaccWarmstart() []float64  { return d.buf[QaccWarmstart] }
func (d *Data) QaccSmooth() []float64     { return d.buf[QaccSmooth] }
func (d *Data) QfrcApplied() []float64    { return d.buf[QfrcApplied] }
func (d *Data) QfrcBias() []float64       { return d.buf[QfrcBias] }
func (d *Data) QfrcPassive() []float64    { return d.buf[QfrcPassive] }
func (d *Data) QfrcActuator() []float64   { return d.buf[QfrcActuator] }
func (d *Data) QfrcSmooth() []float64     { return d.buf[QfrcSmooth] }
func (d *Data) QfrcConstraint() []float64 { return d.buf[QfrcConstraint] }
func (d *Data) QfrcInverse() []float64    { return d.buf[QfrcInverse] }
func (d *Data) QLDiagInv() []float64      { return d.buf[QLDiagInv] }
func (d *Data) Cdof() []float64           { return d.buf[Cdof] }
func (d *Data) CdofDot() []float64        { return d.buf[CdofDot] }
func (d *Data) Xanchor() []float64        { return d.buf[Xanchor] }
func (d *Data) Xaxis() []float64          { return d.buf[Xaxis] }
func (d *Data) Ctrl() []float64           { return d.buf[Ctrl] }
