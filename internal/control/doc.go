// Package control provides feedback controllers that drive actuators from
// joint views.
//
// A [PID] holds one hinge or slide joint at a target position by writing
// the control of one actuator before every step. It implements
// [sim.Observer]:
//
//	pid := control.NewPID("shoulder", "shoulder_motor", 2, 0.1, 0.5, 0.3)
//	if err := pid.Bind(data.Model()); err != nil {
//	    return err
//	}
//	s := sim.New(data)
//	s.AddObserver(pid)
package control
