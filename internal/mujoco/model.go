package mujoco

import (
	"bytes"
	"runtime"
	"sync"
	"unicode/utf8"
	"unsafe"
)

// Model owns a compiled, immutable model. Its read accessors are safe for
// concurrent use; Close must not race with them.
type Model struct {
	eng      Engine
	h        *handle
	sizes    Sizes
	ints     [numIntFields][]int32
	names    []byte
	timestep float64

	mu       sync.Mutex
	liveData int
	closed   bool
}

// JointDescriptor is a joint's kind and its addresses into the state buffers
// and the name table.
type JointDescriptor struct {
	ID      int
	Type    JointType
	QposAdr int
	DofAdr  int
	NameAdr int
}

// LoadFile parses and compiles the scene description at path in one step.
func LoadFile(path string) (*Model, error) {
	eng := GetEngine()
	if !eng.Available() {
		return nil, ErrEngineUnavailable
	}
	if err := checkPath(path); err != nil {
		return nil, err
	}

	errBuf := newErrorBuf()
	ptr := eng.LoadXML(path, errBuf)
	if ptr == nil {
		return nil, &LoadError{
			Path: path,
			Err:  &ParseError{Source: path, Message: decodeErrorBuf(errBuf)},
		}
	}
	return newModel(eng, ptr), nil
}

func newModel(eng Engine, ptr unsafe.Pointer) *Model {
	m := &Model{
		eng:      eng,
		sizes:    eng.ModelSizes(ptr),
		names:    eng.ModelNames(ptr),
		timestep: eng.Timestep(ptr),
	}
	for f := IntField(0); f < numIntFields; f++ {
		m.ints[f] = eng.ModelInts(ptr, f)
	}
	m.h = track(m, KindModel, ptr, eng.DeleteModel)
	return m
}

// Clone deep-copies the model through the engine. The copy shares no
// storage with m.
func (m *Model) Clone() (*Model, error) {
	ptr := m.h.get()
	if ptr == nil {
		return nil, ErrClosed
	}
	cp := m.eng.CopyModel(ptr)
	runtime.KeepAlive(m)
	if cp == nil {
		return nil, ErrAllocationFailed
	}
	return newModel(m.eng, cp), nil
}

// Close releases the model. It fails with ErrModelInUse while any Data
// created from it is still open. Closing twice is a no-op.
func (m *Model) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	if m.liveData > 0 {
		m.mu.Unlock()
		return ErrModelInUse
	}
	m.closed = true
	m.mu.Unlock()

	m.sizes = Sizes{}
	m.ints = [numIntFields][]int32{}
	m.names = nil
	m.h.close()
	runtime.KeepAlive(m)
	return nil
}

func (m *Model) acquireData() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.liveData++
	return nil
}

func (m *Model) releaseData() {
	m.mu.Lock()
	m.liveData--
	m.mu.Unlock()
}

// OpenData reports how many Data instances bound to m are still open.
func (m *Model) OpenData() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveData
}

func (m *Model) ptr() unsafe.Pointer { return m.h.get() }

func (m *Model) Engine() Engine    { return m.eng }
func (m *Model) Sizes() Sizes      { return m.sizes }
func (m *Model) Nq() int           { return m.sizes.Nq }
func (m *Model) Nv() int           { return m.sizes.Nv }
func (m *Model) Nu() int           { return m.sizes.Nu }
func (m *Model) NumJoints() int    { return m.sizes.Njnt }
func (m *Model) NumBodies() int    { return m.sizes.Nbody }
func (m *Model) Timestep() float64 { return m.timestep }
func (m *Model) Names() []byte     { return m.names }

func (m *Model) Ints(f IntField) []int32 {
	if f < 0 || f >= numIntFields {
		return nil
	}
	return m.ints[f]
}

// JointType returns the kind of joint id. It reports false when id is out of
// range or the engine's type code is not a known kind.
func (m *Model) JointType(id int) (JointType, bool) {
	if id < 0 || id >= m.sizes.Njnt || id >= len(m.ints[JntType]) {
		return 0, false
	}
	return jointTypeFromCode(m.ints[JntType][id])
}

// Joint returns the addressing metadata for joint id.
func (m *Model) Joint(id int) (JointDescriptor, bool) {
	typ, ok := m.JointType(id)
	if !ok {
		return JointDescriptor{}, false
	}
	qposAdr, dofAdr, nameAdr := m.ints[JntQposAdr], m.ints[JntDofAdr], m.ints[NameJntAdr]
	if id >= len(qposAdr) || id >= len(dofAdr) || id >= len(nameAdr) {
		return JointDescriptor{}, false
	}
	return JointDescriptor{
		ID:      id,
		Type:    typ,
		QposAdr: int(qposAdr[id]),
		DofAdr:  int(dofAdr[id]),
		NameAdr: int(nameAdr[id]),
	}, true
}

// JointName returns a copy of joint id's name.
func (m *Model) JointName(id int) (string, bool) {
	if id < 0 || id >= m.sizes.Njnt || id >= len(m.ints[NameJntAdr]) {
		return "", false
	}
	b, ok := m.nameBytes(int(m.ints[NameJntAdr][id]))
	if !ok {
		return "", false
	}
	return string(b), true
}

// JointID returns the id of the joint called name.
func (m *Model) JointID(name string) (int, bool) {
	for id := 0; id < m.sizes.Njnt; id++ {
		if n, ok := m.JointName(id); ok && n == name {
			return id, true
		}
	}
	return -1, false
}

// ActuatorName returns a copy of actuator id's name.
func (m *Model) ActuatorName(id int) (string, bool) {
	if id < 0 || id >= m.sizes.Nu || id >= len(m.ints[NameActuatorAdr]) {
		return "", false
	}
	b, ok := m.nameBytes(int(m.ints[NameActuatorAdr][id]))
	if !ok {
		return "", false
	}
	return string(b), true
}

// JointNames lists every joint name in id order; undecodable names are empty.
func (m *Model) JointNames() []string {
	names := make([]string, m.sizes.Njnt)
	for id := range names {
		names[id], _ = m.JointName(id)
	}
	return names
}

// nameBytes returns the NUL-terminated entry starting at off, without the
// terminator. It reports false for out-of-range offsets, a missing
// terminator, or bytes that are not valid UTF-8.
func (m *Model) nameBytes(off int) ([]byte, bool) {
	if off < 0 || off >= len(m.names) {
		return nil, false
	}
	rest := m.names[off:]
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		return nil, false
	}
	b := rest[:n]
	if !utf8.Valid(b) {
		return nil, false
	}
	return b, true
}
