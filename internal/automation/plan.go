// Package automation runs batches of scenarios described in yaml and sweeps
// one config parameter across a range.
package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/san-kum/grapple/internal/config"
	"github.com/san-kum/grapple/internal/logging"
	"github.com/san-kum/grapple/internal/scenario"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/storage"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Plan is a named list of jobs run in order.
type Plan struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Jobs        []Job  `yaml:"jobs"`
}

// Job runs one scenario for each listed seed. Zero fields keep the preset's
// values; Params are applied last.
type Job struct {
	Scenario string             `yaml:"scenario"`
	Preset   string             `yaml:"preset"`
	Duration float64            `yaml:"duration"`
	Dt       float64            `yaml:"dt"`
	Seeds    []int64            `yaml:"seeds"`
	Params   map[string]float64 `yaml:"params"`
}

func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(plan.Jobs) == 0 {
		return nil, fmt.Errorf("%s: plan has no jobs", path)
	}
	return &plan, nil
}

// Config resolves the job's config for one seed.
func (j Job) Config(seed int64) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if j.Preset != "" {
		if cfg = config.GetPreset(j.Scenario, j.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset %s for %s", j.Preset, j.Scenario)
		}
	}
	cfg.Scenario = j.Scenario
	cfg.Seed = seed
	if j.Duration > 0 {
		cfg.Duration = j.Duration
	}
	if j.Dt > 0 {
		cfg.Dt = j.Dt
	}
	for name, v := range j.Params {
		if err := SetParam(cfg, name, v); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Runner executes plans against a registry. Runs are saved when Store is
// set.
type Runner struct {
	Registry *scenario.Registry
	Store    *storage.Store
	Log      *zap.Logger
}

// Run executes every job of plan and returns the metadata of each run in
// order. It stops at the first failing run.
func (r *Runner) Run(ctx context.Context, plan *Plan) ([]storage.RunMetadata, error) {
	log := logging.OrNop(r.Log)
	var out []storage.RunMetadata

	for i, job := range plan.Jobs {
		seeds := job.Seeds
		if len(seeds) == 0 {
			seeds = []int64{0}
		}
		for _, seed := range seeds {
			cfg, err := job.Config(seed)
			if err != nil {
				return out, fmt.Errorf("job %d: %w", i+1, err)
			}
			s, err := r.Registry.Build(cfg, log)
			if err != nil {
				return out, fmt.Errorf("job %d: %w", i+1, err)
			}
			res, err := s.Run(ctx, sim.Config{Duration: cfg.Duration, SampleEvery: cfg.SampleEvery})
			if err != nil {
				return out, fmt.Errorf("job %d seed %d: %w", i+1, seed, err)
			}

			meta := storage.NewMetadata(cfg, job.Preset, res)
			if r.Store != nil {
				if err := r.Store.Save(meta, res); err != nil {
					return out, err
				}
			}
			log.Info("job finished",
				zap.String("plan", plan.Name),
				zap.Int("job", i+1),
				zap.String("scenario", cfg.Scenario),
				zap.Int64("seed", seed),
				zap.String("run", meta.ID),
			)
			out = append(out, meta)
		}
	}
	return out, nil
}
