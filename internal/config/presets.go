package config

import "sort"

type Preset struct {
	Name        string
	Description string
	XML         string
}

var Presets = map[string]*Preset{
	"rrr": {
		Name:        "rrr",
		Description: "three-link planar arm, one motor per hinge",
		XML: `<mujoco model="rrr">
  <option timestep="0.002"/>
  <worldbody>
    <body name="link1" pos="0 0 1">
      <joint name="shoulder" type="hinge" axis="0 1 0" damping="0.5"/>
      <geom type="capsule" fromto="0 0 0 0 0 -0.5" size="0.04"/>
      <body name="link2" pos="0 0 -0.5">
        <joint name="elbow" type="hinge" axis="0 1 0" damping="0.5"/>
        <geom type="capsule" fromto="0 0 0 0 0 -0.5" size="0.04"/>
        <body name="link3" pos="0 0 -0.5">
          <joint name="wrist" type="hinge" axis="0 1 0" damping="0.5"/>
          <geom type="capsule" fromto="0 0 0 0 0 -0.3" size="0.03"/>
        </body>
      </body>
    </body>
  </worldbody>
  <actuator>
    <motor name="shoulder_motor" joint="shoulder" gear="10"/>
    <motor name="elbow_motor" joint="elbow" gear="5"/>
    <motor name="wrist_motor" joint="wrist" gear="2"/>
  </actuator>
</mujoco>`,
	},
	"joints": {
		Name:        "joints",
		Description: "one joint of every kind: free, ball, slide, hinge",
		XML: `<mujoco model="joints">
  <option timestep="0.002"/>
  <worldbody>
    <body name="floating" pos="0 0 2">
      <freejoint name="root"/>
      <geom type="box" size="0.1 0.1 0.1"/>
    </body>
    <body name="pendulum" pos="1 0 1">
      <joint name="socket" type="ball" stiffness="2" damping="0.1"/>
      <geom type="capsule" fromto="0 0 0 0 0 -0.4" size="0.03"/>
    </body>
    <body name="cart" pos="2 0 0.5">
      <joint name="rail" type="slide" axis="1 0 0" stiffness="5" damping="0.2"/>
      <geom type="box" size="0.2 0.1 0.05"/>
    </body>
    <body name="door" pos="3 0 0.5">
      <joint name="hinge" type="hinge" axis="0 0 1" damping="0.3"/>
      <geom type="box" size="0.3 0.02 0.4" pos="0.3 0 0"/>
    </body>
  </worldbody>
</mujoco>`,
	},
}

func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
