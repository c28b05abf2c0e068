package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/mjsim/internal/mujoco"
	"github.com/san-kum/mjsim/internal/mujoco/mjtest"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Preset != "rrr" {
		t.Errorf("expected preset rrr, got %s", cfg.Model.Preset)
	}
	if cfg.Sim.Steps <= 0 {
		t.Error("steps should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"no model", func(c *Config) { c.Model.Preset = "" }, ErrNoModel},
		{"both", func(c *Config) { c.Model.Path = "scene.xml" }, ErrAmbiguousModel},
		{"unknown preset", func(c *Config) { c.Model.Preset = "humanoid" }, nil},
		{"zero steps", func(c *Config) { c.Sim.Steps = 0 }, nil},
		{"zero record", func(c *Config) { c.Sim.RecordEvery = 0 }, nil},
		{"negative runs", func(c *Config) { c.Sim.EnsembleRuns = -1 }, nil},
		{"negative perturbation", func(c *Config) { c.Sim.Perturbation = -0.1 }, nil},
		{"zero threshold", func(c *Config) { c.Metrics.StabilityThreshold = 0 }, nil},
		{"control without actuator", func(c *Config) { c.Control = []PIDConfig{{Joint: "shoulder"}} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")

	cfg := DefaultConfig()
	cfg.Model.Preset = "joints"
	cfg.Sim.Steps = 250
	cfg.Data.Qpos = map[string][]float64{"hinge": {0.3}}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Model.Preset != "joints" || loaded.Sim.Steps != 250 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if got := loaded.Data.Qpos["hinge"]; len(got) != 1 || got[0] != 0.3 {
		t.Errorf("qpos override = %v", got)
	}
}

func TestLoadPathOverridesDefaultPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	body := "model:\n  path: arm.xml\nsim:\n  steps: 10\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Preset != "" {
		t.Errorf("preset = %q, want empty", cfg.Model.Preset)
	}
	if cfg.Sim.RecordEvery != DefaultRecordEvery {
		t.Errorf("record_every = %d, want default", cfg.Sim.RecordEvery)
	}
	xml, src := cfg.Source()
	if xml != "" || src != "arm.xml" {
		t.Errorf("Source() = %q, %q", xml, src)
	}
	if cfg.SourceName() != "arm.xml" {
		t.Errorf("SourceName() = %q", cfg.SourceName())
	}
}

func TestLoadControl(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	body := `control:
  - joint: shoulder
    actuator: shoulder_motor
    target: 0.4
    kp: 20
    kd: 1
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := PIDConfig{Joint: "shoulder", Actuator: "shoulder_motor", Target: 0.4, Kp: 20, Kd: 1}
	if len(cfg.Control) != 1 || cfg.Control[0] != want {
		t.Errorf("control = %+v", cfg.Control)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sim: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("expected parse error, got %v", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	p := GetPreset("rrr")
	if p == nil {
		t.Fatal("expected preset, got nil")
	}
	if !strings.Contains(p.XML, `<motor name="wrist_motor"`) {
		t.Error("rrr preset should actuate the wrist")
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	if names[0] != "joints" || names[1] != "rrr" {
		t.Errorf("presets not sorted: %v", names)
	}
	for _, name := range names {
		if Presets[name].Name != name {
			t.Errorf("preset %s has name %s", name, Presets[name].Name)
		}
	}
}

func TestPresetsCompile(t *testing.T) {
	t.Cleanup(mjtest.Install(mjtest.New()))

	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			spec, err := mujoco.ParseXML(GetPreset(name).XML)
			if err != nil {
				t.Fatal(err)
			}
			model, err := spec.Compile()
			if err != nil {
				t.Fatal(err)
			}
			defer model.Close()
			if model.NumJoints() == 0 || model.Timestep() != 0.002 {
				t.Errorf("joints=%d timestep=%v", model.NumJoints(), model.Timestep())
			}
		})
	}
}
