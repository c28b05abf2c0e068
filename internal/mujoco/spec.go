package mujoco

import (
	"runtime"
	"strings"
	"unsafe"
)

// Spec owns a parsed, uncompiled scene description. It is consumed by
// Compile; Close releases it without compiling.
type Spec struct {
	eng Engine
	h   *handle
}

// ParseXML parses scene description text.
func ParseXML(text string) (*Spec, error) {
	eng := GetEngine()
	if !eng.Available() {
		return nil, ErrEngineUnavailable
	}
	if strings.IndexByte(text, 0) >= 0 {
		return nil, &ParseError{Source: "<string>", Message: "text contains a NUL byte"}
	}

	errBuf := newErrorBuf()
	ptr := eng.ParseXMLString(text, errBuf)
	if ptr == nil {
		return nil, &ParseError{Source: "<string>", Message: decodeErrorBuf(errBuf)}
	}
	return newSpec(eng, ptr), nil
}

// ParseFile parses the scene description at path.
func ParseFile(path string) (*Spec, error) {
	eng := GetEngine()
	if !eng.Available() {
		return nil, ErrEngineUnavailable
	}
	if err := checkPath(path); err != nil {
		return nil, err
	}

	errBuf := newErrorBuf()
	ptr := eng.ParseXML(path, errBuf)
	if ptr == nil {
		return nil, &ParseError{Source: path, Message: decodeErrorBuf(errBuf)}
	}
	return newSpec(eng, ptr), nil
}

func newSpec(eng Engine, ptr unsafe.Pointer) *Spec {
	s := &Spec{eng: eng}
	s.h = track(s, KindSpec, ptr, eng.DeleteSpec)
	return s
}

// Compile turns the specification into a model. The specification is
// released whether or not compilation succeeds and cannot be used again.
func (s *Spec) Compile() (*Model, error) {
	ptr := s.h.get()
	if ptr == nil {
		return nil, ErrClosed
	}
	defer s.h.close()

	mptr := s.eng.Compile(ptr)
	if mptr == nil {
		msg := s.eng.SpecError(ptr)
		runtime.KeepAlive(s)
		return nil, &CompileError{Message: strings.TrimSpace(msg)}
	}
	runtime.KeepAlive(s)
	return newModel(s.eng, mptr), nil
}

// Close releases the specification. Closing twice is a no-op.
func (s *Spec) Close() error {
	s.h.close()
	runtime.KeepAlive(s)
	return nil
}
