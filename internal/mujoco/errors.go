package mujoco

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// errorBufSize bounds the diagnostic buffer handed to the engine.
const errorBufSize = 1024

var (
	// ErrAllocationFailed indicates the engine returned a null resource.
	ErrAllocationFailed = errors.New("mujoco: native allocation failed")

	// ErrClosed indicates an operation on a released handle.
	ErrClosed = errors.New("mujoco: handle already closed")

	// ErrModelInUse indicates a model was closed while data bound to it is open.
	ErrModelInUse = errors.New("mujoco: model still has open data")

	// ErrEngineUnavailable indicates the binary was built without the native engine.
	ErrEngineUnavailable = errors.New("mujoco: engine not available (build with -tags mujoco)")

	// ErrInvalidPath indicates a path that cannot be passed to the engine.
	ErrInvalidPath = errors.New("mujoco: path is not a valid native string")
)

// ParseError carries the engine diagnostic for malformed scene input.
type ParseError struct {
	Source  string // file path, or "<string>" for in-memory text
	Message string
}

func (e *ParseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mujoco: parse %s failed", e.Source)
	}
	return fmt.Sprintf("mujoco: parse %s: %s", e.Source, e.Message)
}

// LoadError reports a path that could not be handed to, or loaded by, the engine.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("mujoco: load %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// CompileError reports a specification the engine refused to compile.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string {
	if e.Message == "" {
		return "mujoco: compile failed"
	}
	return "mujoco: compile: " + e.Message
}

func newErrorBuf() []byte {
	return make([]byte, errorBufSize)
}

// decodeErrorBuf reads a NUL-terminated diagnostic, replacing invalid UTF-8.
func decodeErrorBuf(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	msg := string(buf)
	if !utf8.ValidString(msg) {
		msg = strings.ToValidUTF8(msg, "�")
	}
	return strings.TrimSpace(msg)
}

// checkPath rejects paths the engine cannot receive and files that cannot be read.
func checkPath(path string) error {
	if path == "" || strings.IndexByte(path, 0) >= 0 || !utf8.ValidString(path) {
		return &LoadError{Path: path, Err: ErrInvalidPath}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &LoadError{Path: path, Err: errors.New("is a directory")}
	}
	return nil
}
