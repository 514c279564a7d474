// Package config loads run parameters for the optimizer CLI and server.
package config

import (
	"fmt"
	"os"

	"github.com/cwbudde/greywolf/internal/bench"
	"github.com/cwbudde/greywolf/internal/gwo"
	"gopkg.in/yaml.v3"
)

// RunConfig describes one optimisation run. Zero-valued bounds fall back to
// the objective's conventional box.
type RunConfig struct {
	Variant      string  `yaml:"variant" json:"variant"`
	Objective    string  `yaml:"objective" json:"objective"`
	Dim          int     `yaml:"dim" json:"dim"`
	PopSize      int     `yaml:"popSize" json:"popSize"`
	Iters        int     `yaml:"iters" json:"iters"`
	Lower        float64 `yaml:"lower" json:"lower"`
	Upper        float64 `yaml:"upper" json:"upper"`
	Clamp        bool    `yaml:"clamp" json:"clamp,omitempty"`
	LeaderPolicy string  `yaml:"leaderPolicy" json:"leaderPolicy,omitempty"`
	Seed         int64   `yaml:"seed" json:"seed"`

	// ReportEvery controls how often progress lines are printed.
	ReportEvery int `yaml:"reportEvery" json:"reportEvery,omitempty"`

	// StallPatience stops the run after this many iterations without a
	// relative improvement of StallThreshold. Zero disables it; a zero
	// threshold means 0.1%.
	StallPatience  int     `yaml:"stallPatience" json:"stallPatience,omitempty"`
	StallThreshold float64 `yaml:"stallThreshold" json:"stallThreshold,omitempty"`
}

// Default mirrors the classic setup: 30 wolves, 100 iterations,
// 10 dimensions, bounds [-10, 10] on the sphere function.
func Default() RunConfig {
	return RunConfig{
		Variant:      string(gwo.Continuous),
		Objective:    "sphere",
		Dim:          10,
		PopSize:      30,
		Iters:        100,
		Lower:        -10,
		Upper:        10,
		LeaderPolicy: string(gwo.PolicyRank),
		Seed:         42,
		ReportEvery:  20,
	}
}

// Load reads a YAML file on top of Default.
func Load(path string) (RunConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg RunConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the fields that cannot be repaired by defaults.
func (c RunConfig) Validate() error {
	if _, err := gwo.ParseVariant(c.Variant); err != nil {
		return err
	}
	if _, err := bench.Lookup(c.Objective); err != nil {
		return err
	}
	cfg, err := c.EngineConfig()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// ObjectiveFunc resolves the configured benchmark function.
func (c RunConfig) ObjectiveFunc() (bench.Func, error) {
	return bench.Lookup(c.Objective)
}

// Bounds returns the configured box, or the objective's own box when none
// is set.
func (c RunConfig) Bounds() (float64, float64) {
	if c.Lower != 0 || c.Upper != 0 {
		return c.Lower, c.Upper
	}
	if fn, err := bench.Lookup(c.Objective); err == nil {
		return fn.Bounds()
	}
	return c.Lower, c.Upper
}

// EngineConfig converts to the optimizer's configuration.
func (c RunConfig) EngineConfig() (gwo.Config, error) {
	v, err := gwo.ParseVariant(c.Variant)
	if err != nil {
		return gwo.Config{}, err
	}
	lower, upper := c.Bounds()
	return gwo.Config{
		Variant:      v,
		Dim:          c.Dim,
		PopSize:      c.PopSize,
		MaxIter:      c.Iters,
		Lower:        lower,
		Upper:        upper,
		Clamp:        c.Clamp,
		LeaderPolicy: gwo.LeaderPolicy(c.LeaderPolicy),
		Seed:         c.Seed,
	}, nil
}
