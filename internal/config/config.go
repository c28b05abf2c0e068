package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPreset             = "rrr"
	DefaultSteps              = 1000
	DefaultRecordEvery        = 10
	DefaultEnsembleRuns       = 8
	DefaultPerturbation       = 0.05
	DefaultStabilityThreshold = 50.0
	DefaultLogLevel           = "info"
)

type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Sim     SimConfig     `yaml:"sim"`
	Data    DataConfig    `yaml:"data"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Control []PIDConfig   `yaml:"control"`
}

// ModelConfig selects the scene: a built-in preset or a file on disk.
type ModelConfig struct {
	Preset string `yaml:"preset"`
	Path   string `yaml:"path"`
}

type SimConfig struct {
	Steps         int     `yaml:"steps"`
	RecordEvery   int     `yaml:"record_every"`
	ValidateState bool    `yaml:"validate_state"`
	Seed          int64   `yaml:"seed"`
	EnsembleRuns  int     `yaml:"ensemble_runs"`
	Perturbation  float64 `yaml:"perturbation"`
}

// DataConfig is the initial state written into a fresh Data, keyed by joint
// name for positions and velocities and by actuator index for controls.
type DataConfig struct {
	Qpos map[string][]float64 `yaml:"qpos"`
	Qvel map[string][]float64 `yaml:"qvel"`
	Ctrl []float64            `yaml:"ctrl"`
}

// PIDConfig holds one joint at a target through one actuator.
type PIDConfig struct {
	Joint    string  `yaml:"joint"`
	Actuator string  `yaml:"actuator"`
	Target   float64 `yaml:"target"`
	Kp       float64 `yaml:"kp"`
	Ki       float64 `yaml:"ki"`
	Kd       float64 `yaml:"kd"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	StabilityThreshold float64 `yaml:"stability_threshold"`
	// Textfile, when set, receives a Prometheus exposition dump after a run.
	Textfile string `yaml:"textfile"`
}

func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{Preset: DefaultPreset},
		Sim: SimConfig{
			Steps:         DefaultSteps,
			RecordEvery:   DefaultRecordEvery,
			ValidateState: true,
			EnsembleRuns:  DefaultEnsembleRuns,
			Perturbation:  DefaultPerturbation,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
		Metrics: MetricsConfig{StabilityThreshold: DefaultStabilityThreshold},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Model.Path != "" && cfg.Model.Preset == DefaultPreset {
		cfg.Model.Preset = ""
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var (
	ErrNoModel        = errors.New("config: one of model.preset or model.path is required")
	ErrAmbiguousModel = errors.New("config: model.preset and model.path are mutually exclusive")
)

func (c *Config) Validate() error {
	switch {
	case c.Model.Preset == "" && c.Model.Path == "":
		return ErrNoModel
	case c.Model.Preset != "" && c.Model.Path != "":
		return ErrAmbiguousModel
	}
	if c.Model.Preset != "" && GetPreset(c.Model.Preset) == nil {
		return fmt.Errorf("config: unknown preset %q", c.Model.Preset)
	}
	if c.Sim.Steps <= 0 {
		return fmt.Errorf("config: sim.steps must be positive, got %d", c.Sim.Steps)
	}
	if c.Sim.RecordEvery <= 0 {
		return fmt.Errorf("config: sim.record_every must be positive, got %d", c.Sim.RecordEvery)
	}
	if c.Sim.EnsembleRuns < 0 {
		return fmt.Errorf("config: sim.ensemble_runs must not be negative, got %d", c.Sim.EnsembleRuns)
	}
	if c.Sim.Perturbation < 0 {
		return fmt.Errorf("config: sim.perturbation must not be negative, got %f", c.Sim.Perturbation)
	}
	for i, pc := range c.Control {
		if pc.Joint == "" || pc.Actuator == "" {
			return fmt.Errorf("config: control[%d] needs both joint and actuator", i)
		}
	}
	if c.Metrics.StabilityThreshold <= 0 {
		return fmt.Errorf("config: metrics.stability_threshold must be positive, got %f", c.Metrics.StabilityThreshold)
	}
	return nil
}

// Source returns the scene text for a preset, or "" with the file path
// for a file-backed model.
func (c *Config) Source() (xml, path string) {
	if p := GetPreset(c.Model.Preset); p != nil {
		return p.XML, ""
	}
	return "", c.Model.Path
}

// SourceName is a short label for the configured scene.
func (c *Config) SourceName() string {
	if c.Model.Path != "" {
		return c.Model.Path
	}
	return "preset:" + c.Model.Preset
}
