// Package mujoco wraps the MuJoCo physics engine's
// specification → model → data pipeline with single-owner handles.
//
// The chain of native resources is:
//
//   - [Spec]: a parsed, uncompiled scene description, consumed by Compile
//   - [Model]: the compiled, immutable structure (counts and addressing tables)
//   - [Data]: the mutable state of one simulation instance, bound to a Model
//   - [JointView]: zero-copy slices of one joint's share of the Data buffers
//
// # Example
//
//	spec, err := mujoco.ParseXML(xml)
//	if err != nil {
//		return err
//	}
//	model, err := spec.Compile()
//	if err != nil {
//		return err
//	}
//	defer model.Close()
//
//	data, err := mujoco.NewData(model)
//	if err != nil {
//		return err
//	}
//	defer data.Close()
//
//	_ = data.Step()
//	joint, ok := data.Joint(0)
//
// # Ownership
//
// Every handle releases its native resource exactly once: on Close, or when
// the garbage collector finds the handle unreachable. Clones always go
// through the engine's deep copy. A Data keeps its Model reachable, and
// Model.Close returns [ErrModelInUse] while any Data bound to it is open.
//
// Slices returned by Data accessors and JointView alias native memory. They
// are valid only while the Data is open and still referenced.
//
// # Engines
//
// The native engine is linked with the mujoco build tag:
//
//	go build -tags mujoco ./...
//
// Without it, [GetEngine] returns an engine that reports itself unavailable
// and every constructor fails with [ErrEngineUnavailable]. Tests install the
// fake engine from package mjtest with [SetEngine].
//
// # Thread Safety
//
// A Model is safe for concurrent reads. A Data is not; callers serialize
// steps and buffer writes on each instance.
package mujoco
