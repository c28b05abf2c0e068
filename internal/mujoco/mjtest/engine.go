// Package mjtest provides a fake mujoco.Engine for tests.
//
// The fake parses a small MJCF subset (worldbody, nested bodies, joint,
// freejoint, motor actuators, option timestep), lays out models and state
// buffers with the native engine's addressing conventions, and runs a toy
// deterministic forward/step so derived quantities respond to state changes.
// It accounts for every handle and panics on double frees and on use of a
// released handle.
package mjtest

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/san-kum/mjsim/internal/mujoco"
)

// Engine is a fake mujoco.Engine. Failure switches may be flipped between
// calls; they are read under the engine's lock.
type Engine struct {
	mu       sync.Mutex
	live     map[unsafe.Pointer]mujoco.HandleKind
	acquired map[mujoco.HandleKind]int
	released map[mujoco.HandleKind]int

	// FailCompile makes Compile fail with CompileMessage.
	FailCompile    bool
	CompileMessage string
	// FailMakeData, FailCopyData and FailCopyModel make the matching
	// allocation return nil.
	FailMakeData  bool
	FailCopyData  bool
	FailCopyModel bool
	// CorruptNames replaces the first byte of every joint name with 0xff at
	// compile time.
	CorruptNames bool
}

var _ mujoco.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{
		live:     make(map[unsafe.Pointer]mujoco.HandleKind),
		acquired: make(map[mujoco.HandleKind]int),
		released: make(map[mujoco.HandleKind]int),
	}
}

// Install makes e the active engine and returns a func restoring the previous one.
func Install(e *Engine) (restore func()) {
	prev := mujoco.SetEngine(e)
	return func() { mujoco.SetEngine(prev) }
}

func (e *Engine) Name() string    { return "mjtest" }
func (e *Engine) Available() bool { return true }

// Live reports how many handles of kind are currently allocated.
func (e *Engine) Live(kind mujoco.HandleKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acquired[kind] - e.released[kind]
}

// Acquired reports how many handles of kind were ever allocated.
func (e *Engine) Acquired(kind mujoco.HandleKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acquired[kind]
}

// Released reports how many handles of kind were freed.
func (e *Engine) Released(kind mujoco.HandleKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released[kind]
}

func (e *Engine) alloc(p unsafe.Pointer, kind mujoco.HandleKind) unsafe.Pointer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.live[p] = kind
	e.acquired[kind]++
	return p
}

func (e *Engine) free(p unsafe.Pointer, kind mujoco.HandleKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if got, ok := e.live[p]; !ok || got != kind {
		panic(fmt.Sprintf("mjtest: free of %s %p that is not live", kind, p))
	}
	delete(e.live, p)
	e.released[kind]++
}

func (e *Engine) check(p unsafe.Pointer, kind mujoco.HandleKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if got, ok := e.live[p]; !ok || got != kind {
		panic(fmt.Sprintf("mjtest: use of %s %p that is not live", kind, p))
	}
}

func (e *Engine) failing(flag *bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *flag
}

// writeError copies msg into buf as a NUL-terminated, truncated C string.
func writeError(buf []byte, msg string) {
	if len(buf) == 0 {
		return
	}
	n := copy(buf[:len(buf)-1], msg)
	buf[n] = 0
}

type specHandle struct {
	scene *scene
}

func (e *Engine) ParseXMLString(text string, errBuf []byte) unsafe.Pointer {
	sc, err := parseScene(text)
	if err != nil {
		writeError(errBuf, "XML Error: "+err.Error())
		return nil
	}
	return e.alloc(unsafe.Pointer(&specHandle{scene: sc}), mujoco.KindSpec)
}

func (e *Engine) ParseXML(path string, errBuf []byte) unsafe.Pointer {
	text, err := os.ReadFile(path)
	if err != nil {
		writeError(errBuf, "resource not found via provider or OS filesystem: '"+path+"'")
		return nil
	}
	return e.ParseXMLString(string(text), errBuf)
}

func (e *Engine) Compile(spec unsafe.Pointer) unsafe.Pointer {
	e.check(spec, mujoco.KindSpec)
	sh := (*specHandle)(spec)
	if e.failing(&e.FailCompile) {
		sh.scene.err = e.CompileMessage
		return nil
	}
	m, err := compileScene(sh.scene, e.failing(&e.CorruptNames))
	if err != nil {
		sh.scene.err = "Error: " + err.Error()
		return nil
	}
	return e.alloc(unsafe.Pointer(m), mujoco.KindModel)
}

func (e *Engine) SpecError(spec unsafe.Pointer) string {
	e.check(spec, mujoco.KindSpec)
	return (*specHandle)(spec).scene.err
}

func (e *Engine) DeleteSpec(spec unsafe.Pointer) {
	e.free(spec, mujoco.KindSpec)
}

func (e *Engine) LoadXML(path string, errBuf []byte) unsafe.Pointer {
	text, err := os.ReadFile(path)
	if err != nil {
		writeError(errBuf, "resource not found via provider or OS filesystem: '"+path+"'")
		return nil
	}
	sc, err := parseScene(string(text))
	if err != nil {
		writeError(errBuf, "XML Error: "+err.Error())
		return nil
	}
	m, err := compileScene(sc, e.failing(&e.CorruptNames))
	if err != nil {
		writeError(errBuf, "Error: "+err.Error())
		return nil
	}
	return e.alloc(unsafe.Pointer(m), mujoco.KindModel)
}

func (e *Engine) CopyModel(mp unsafe.Pointer) unsafe.Pointer {
	e.check(mp, mujoco.KindModel)
	if e.failing(&e.FailCopyModel) {
		return nil
	}
	return e.alloc(unsafe.Pointer((*model)(mp).clone()), mujoco.KindModel)
}

func (e *Engine) DeleteModel(mp unsafe.Pointer) {
	e.free(mp, mujoco.KindModel)
}

func (e *Engine) ModelSizes(mp unsafe.Pointer) mujoco.Sizes {
	e.check(mp, mujoco.KindModel)
	return (*model)(mp).sizes
}

func (e *Engine) ModelInts(mp unsafe.Pointer, f mujoco.IntField) []int32 {
	e.check(mp, mujoco.KindModel)
	return (*model)(mp).ints[f]
}

func (e *Engine) ModelNames(mp unsafe.Pointer) []byte {
	e.check(mp, mujoco.KindModel)
	return (*model)(mp).names
}

func (e *Engine) Timestep(mp unsafe.Pointer) float64 {
	e.check(mp, mujoco.KindModel)
	return (*model)(mp).timestep
}

func (e *Engine) MakeData(mp unsafe.Pointer) unsafe.Pointer {
	e.check(mp, mujoco.KindModel)
	if e.failing(&e.FailMakeData) {
		return nil
	}
	return e.alloc(unsafe.Pointer(newData((*model)(mp))), mujoco.KindData)
}

func (e *Engine) CopyData(mp, dp unsafe.Pointer) unsafe.Pointer {
	e.check(mp, mujoco.KindModel)
	e.check(dp, mujoco.KindData)
	if e.failing(&e.FailCopyData) {
		return nil
	}
	return e.alloc(unsafe.Pointer((*data)(dp).clone()), mujoco.KindData)
}

func (e *Engine) DeleteData(dp unsafe.Pointer) {
	e.free(dp, mujoco.KindData)
}

func (e *Engine) DataFloats(mp, dp unsafe.Pointer, f mujoco.FloatField) []float64 {
	e.check(mp, mujoco.KindModel)
	e.check(dp, mujoco.KindData)
	return (*data)(dp).buf[f]
}

func (e *Engine) DataTime(dp unsafe.Pointer) float64 {
	e.check(dp, mujoco.KindData)
	return (*data)(dp).time
}

func (e *Engine) ResetData(mp, dp unsafe.Pointer) {
	e.check(mp, mujoco.KindModel)
	e.check(dp, mujoco.KindData)
	(*data)(dp).reset((*model)(mp))
}

func (e *Engine) Forward(mp, dp unsafe.Pointer) {
	e.check(mp, mujoco.KindModel)
	e.check(dp, mujoco.KindData)
	forward((*model)(mp), (*data)(dp))
}

func (e *Engine) Step(mp, dp unsafe.Pointer) {
	e.check(mp, mujoco.KindModel)
	e.check(dp, mujoco.KindData)
	step((*model)(mp), (*data)(dp))
}
