package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/grapple/internal/control"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/grab"
	"github.com/san-kum/grapple/internal/integrators"
	"github.com/san-kum/grapple/internal/logging"
	"github.com/san-kum/grapple/internal/slot"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt         = 1.0 / 60
	DefaultDuration   = 10.0
	DefaultIterations = 8
	DefaultGravity    = -9.81
)

type Config struct {
	Scenario   string     `yaml:"scenario"`
	Integrator string     `yaml:"integrator"`
	Dt         float64    `yaml:"dt"`
	Duration   float64    `yaml:"duration"`
	Seed       int64      `yaml:"seed"`
	Gravity    [3]float64 `yaml:"gravity,flow"`
	Iterations int        `yaml:"iterations"`
	// SampleEvery records trace channels every n ticks.
	SampleEvery int `yaml:"sample_every"`
	// History keeps the last n grab anchors per character. Zero disables it.
	History int `yaml:"history"`

	Grab      grab.Config     `yaml:"grab"`
	Slot      slot.Config     `yaml:"slot"`
	Muscle    control.Spring  `yaml:"muscle"`
	Breakable BreakableConfig `yaml:"breakable"`
	Attach    AttachConfig    `yaml:"attach"`
	Log       logging.Config  `yaml:"log"`
}

type BreakableConfig struct {
	ImpulseThreshold float64 `yaml:"impulse_threshold"`
	TorqueThreshold  float64 `yaml:"torque_threshold"`
	GracePeriod      float64 `yaml:"grace_period"`
}

type AttachConfig struct {
	Strength  float64 `yaml:"strength"`
	DampRatio float64 `yaml:"damp_ratio"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario:    "deposit",
		Integrator:  integrators.Default,
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		Gravity:     [3]float64{0, DefaultGravity, 0},
		Iterations:  DefaultIterations,
		SampleEvery: 1,
		Grab:        grab.DefaultConfig(),
		Slot:        slot.DefaultConfig(),
		Muscle:      control.Spring{Strength: 20, DampRatio: 1},
		Breakable: BreakableConfig{
			ImpulseThreshold: 5,
			TorqueThreshold:  5,
			GracePeriod:      0.5,
		},
		Attach: AttachConfig{Strength: 10, DampRatio: 0.7},
		Log:    logging.DefaultConfig(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
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

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", dynamo.ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}

// Validate reports every out-of-range field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Dt <= 0 {
		errs = append(errs, invalid("dt", "must be positive, got %g", c.Dt))
	}
	if c.Duration <= 0 {
		errs = append(errs, invalid("duration", "must be positive, got %g", c.Duration))
	}
	if _, err := integrators.New(c.Integrator); err != nil {
		errs = append(errs, invalid("integrator", "%v", err))
	}
	if c.Iterations < 1 {
		errs = append(errs, invalid("iterations", "must be at least 1, got %d", c.Iterations))
	}
	if c.SampleEvery < 0 {
		errs = append(errs, invalid("sample_every", "must not be negative"))
	}
	if c.History < 0 {
		errs = append(errs, invalid("history", "must not be negative"))
	}
	if c.Grab.MotorStiffness < 0 || c.Grab.MotorDamping < 0 || c.Grab.MaxTorque < 0 {
		errs = append(errs, invalid("grab", "gains must not be negative"))
	}
	if c.Slot.Stiffness < 0 || c.Slot.Damping < 0 || c.Slot.MaxForce < 0 {
		errs = append(errs, invalid("slot", "gains must not be negative"))
	}
	if c.Slot.GracePeriod < 0 {
		errs = append(errs, invalid("slot.grace_period", "must not be negative"))
	}
	if c.Slot.Spring.Strength < 0 || c.Slot.Spring.DampRatio < 0 {
		errs = append(errs, invalid("slot.spring", "must not be negative"))
	}
	if c.Muscle.Strength < 0 || c.Muscle.DampRatio < 0 {
		errs = append(errs, invalid("muscle", "must not be negative"))
	}
	if c.Breakable.ImpulseThreshold < 0 || c.Breakable.TorqueThreshold < 0 || c.Breakable.GracePeriod < 0 {
		errs = append(errs, invalid("breakable", "must not be negative"))
	}
	if c.Attach.Strength < 0 || c.Attach.DampRatio < 0 {
		errs = append(errs, invalid("attach", "must not be negative"))
	}
	return errors.Join(errs...)
}
