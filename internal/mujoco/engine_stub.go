//go:build !mujoco

package mujoco

import "unsafe"

// stubEngine stands in when the binary is built without the mujoco tag.
// Every constructor fails, so no handle can ever reach the accessors below.
type stubEngine struct{}

func newNativeEngine() Engine {
	return stubEngine{}
}

func (stubEngine) Name() string    { return "mujoco (not available)" }
func (stubEngine) Available() bool { return false }

func (stubEngine) ParseXMLString(string, []byte) unsafe.Pointer { return nil }
func (stubEngine) ParseXML(string, []byte) unsafe.Pointer       { return nil }
func (stubEngine) Compile(unsafe.Pointer) unsafe.Pointer        { return nil }
func (stubEngine) SpecError(unsafe.Pointer) string              { return "" }
func (stubEngine) DeleteSpec(unsafe.Pointer)                    {}

func (stubEngine) LoadXML(string, []byte) unsafe.Pointer       { return nil }
func (stubEngine) CopyModel(unsafe.Pointer) unsafe.Pointer     { return nil }
func (stubEngine) DeleteModel(unsafe.Pointer)                  {}
func (stubEngine) ModelSizes(unsafe.Pointer) Sizes             { return Sizes{} }
func (stubEngine) ModelInts(unsafe.Pointer, IntField) []int32  { return nil }
func (stubEngine) ModelNames(unsafe.Pointer) []byte            { return nil }
func (stubEngine) Timestep(unsafe.Pointer) float64             { return 0 }
func (stubEngine) MakeData(unsafe.Pointer) unsafe.Pointer      { return nil }
func (stubEngine) CopyData(_, _ unsafe.Pointer) unsafe.Pointer { return nil }
func (stubEngine) DeleteData(unsafe.Pointer)                   {}
func (stubEngine) DataTime(unsafe.Pointer) float64             { return 0 }
func (stubEngine) ResetData(_, _ unsafe.Pointer)               {}
func (stubEngine) Forward(_, _ unsafe.Pointer)                 {}
func (stubEngine) Step(_, _ unsafe.Pointer)                    {}

func (stubEngine) DataFloats(_, _ unsafe.Pointer, _ FloatField) []float64 {
	return nil
}
