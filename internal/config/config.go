package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 0.05 // 20 steps per simulated second
	DefaultTimeScale = 1.0
	DefaultDuration  = 10.0
	DefaultFPS       = 60.0
)

// Config is the full run configuration: stepping parameters, the frame
// pattern driving the stepper, and scene content knobs.
type Config struct {
	Scene     string  `yaml:"scene"`
	Dt        float64 `yaml:"dt"`
	TimeScale float64 `yaml:"time_scale"`
	Duration  float64 `yaml:"duration"`
	FPS       float64 `yaml:"fps"`
	Seed      int64   `yaml:"seed"`
	Workers   int     `yaml:"workers"`

	Frames FramesConfig `yaml:"frames"`
	Params SceneConfig  `yaml:"scene_params"`
}

// FramesConfig describes the synthetic frame-time sequence used by
// headless runs and benchmarks. Pattern is one of "uniform", "jitter",
// or "stall".
type FramesConfig struct {
	Pattern    string  `yaml:"pattern"`
	Jitter     float64 `yaml:"jitter"`      // fraction of the nominal frame, jitter pattern
	StallEvery int     `yaml:"stall_every"` // frames between stalls, stall pattern
	StallLen   float64 `yaml:"stall_len"`   // seconds per stall spike
}

// SceneConfig carries per-scene content parameters. Scenes read only
// the fields they care about.
type SceneConfig struct {
	Bodies      int     `yaml:"bodies"`
	Gravity     float64 `yaml:"gravity"`
	Restitution float64 `yaml:"restitution"`
	Mu          float64 `yaml:"mu"`
	SpawnEvery  int     `yaml:"spawn_every"`
	MaxBodies   int     `yaml:"max_bodies"`
	CullSpeed   float64 `yaml:"cull_speed"`
}

func DefaultConfig() *Config {
	return &Config{
		Scene:     "bounce",
		Dt:        DefaultDt,
		TimeScale: DefaultTimeScale,
		Duration:  DefaultDuration,
		FPS:       DefaultFPS,
		Frames: FramesConfig{
			Pattern:    "uniform",
			Jitter:     0.5,
			StallEvery: 120,
			StallLen:   0.5,
		},
		Params: SceneConfig{
			Bodies:      8,
			Gravity:     9.81,
			Restitution: 0.7,
			Mu:          20,
			SpawnEvery:  3,
			MaxBodies:   64,
			CullSpeed:   0.2,
		},
	}
}

// Validate fails fast on configurations that would break the drain
// loop. A non-positive dt is the one fatal misconfiguration; everything
// else (zero time scale, huge frame times) is well-defined input.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %f", c.Duration)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("config: fps must be positive, got %f", c.FPS)
	}
	switch c.Frames.Pattern {
	case "uniform", "jitter", "stall":
	default:
		return fmt.Errorf("config: unknown frame pattern %q", c.Frames.Pattern)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
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
