package mujoco

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/san-kum/mjsim/internal/logger"
)

// HandleKind names the native resource a handle owns.
type HandleKind string

const (
	KindSpec  HandleKind = "spec"
	KindModel HandleKind = "model"
	KindData  HandleKind = "data"
)

// HandleObserver is notified each time a native resource is acquired or
// released. Implementations must be safe for concurrent use.
type HandleObserver interface {
	HandleAcquired(kind HandleKind)
	HandleReleased(kind HandleKind)
}

type nopObserver struct{}

func (nopObserver) HandleAcquired(HandleKind) {}
func (nopObserver) HandleReleased(HandleKind) {}

type observerBox struct{ o HandleObserver }

var activeObserver atomic.Value

func init() {
	activeObserver.Store(observerBox{nopObserver{}})
}

// SetObserver installs o for all subsequent acquisitions and releases.
// A nil observer disables notifications.
func SetObserver(o HandleObserver) {
	if o == nil {
		o = nopObserver{}
	}
	activeObserver.Store(observerBox{o})
}

func currentObserver() HandleObserver {
	return activeObserver.Load().(observerBox).o
}

// handle owns one native pointer and releases it exactly once, either on an
// explicit close or, as a backstop, when its owner becomes unreachable.
type handle struct {
	kind    HandleKind
	mu      sync.Mutex
	ptr     unsafe.Pointer
	release func(unsafe.Pointer)
	cleanup runtime.Cleanup
}

// track binds ptr to owner. release must not reference owner.
func track[T any](owner *T, kind HandleKind, ptr unsafe.Pointer, release func(unsafe.Pointer)) *handle {
	h := &handle{kind: kind, ptr: ptr, release: release}
	h.cleanup = runtime.AddCleanup(owner, collected, h)
	currentObserver().HandleAcquired(kind)
	return h
}

// collected runs once owner is unreachable. A queued cleanup can still race an
// explicit close, so whichever side takes the pointer first releases it.
func collected(h *handle) {
	p := h.take()
	if p == nil {
		return
	}
	logger.Warn("native handle released by garbage collector without Close",
		zap.String("kind", string(h.kind)))
	h.release(p)
	currentObserver().HandleReleased(h.kind)
}

func (h *handle) take() unsafe.Pointer {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.ptr
	h.ptr = nil
	return p
}

// get returns the native pointer, or nil once released.
func (h *handle) get() unsafe.Pointer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ptr
}

// close releases the native pointer. It reports false if it was already released.
func (h *handle) close() bool {
	p := h.take()
	if p == nil {
		return false
	}
	h.cleanup.Stop()
	h.release(p)
	currentObserver().HandleReleased(h.kind)
	logger.Debug("native handle released", zap.String("kind", string(h.kind)))
	return true
}
