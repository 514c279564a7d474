package main

import (
	"github.com/cwbudde/greywolf/internal/config"
	"github.com/spf13/cobra"
)

// configFlags maps flag names to the RunConfig field they set, so a config
// file can be loaded first and explicitly passed flags applied on top.
var configFlags = map[string]func(dst *config.RunConfig, src config.RunConfig){
	"variant":         func(d *config.RunConfig, s config.RunConfig) { d.Variant = s.Variant },
	"objective":       func(d *config.RunConfig, s config.RunConfig) { d.Objective = s.Objective },
	"dim":             func(d *config.RunConfig, s config.RunConfig) { d.Dim = s.Dim },
	"pop":             func(d *config.RunConfig, s config.RunConfig) { d.PopSize = s.PopSize },
	"iters":           func(d *config.RunConfig, s config.RunConfig) { d.Iters = s.Iters },
	"lower":           func(d *config.RunConfig, s config.RunConfig) { d.Lower = s.Lower },
	"upper":           func(d *config.RunConfig, s config.RunConfig) { d.Upper = s.Upper },
	"clamp":           func(d *config.RunConfig, s config.RunConfig) { d.Clamp = s.Clamp },
	"policy":          func(d *config.RunConfig, s config.RunConfig) { d.LeaderPolicy = s.LeaderPolicy },
	"seed":            func(d *config.RunConfig, s config.RunConfig) { d.Seed = s.Seed },
	"report-every":    func(d *config.RunConfig, s config.RunConfig) { d.ReportEvery = s.ReportEvery },
	"stall-patience":  func(d *config.RunConfig, s config.RunConfig) { d.StallPatience = s.StallPatience },
	"stall-threshold": func(d *config.RunConfig, s config.RunConfig) { d.StallThreshold = s.StallThreshold },
}

// addConfigFlags registers the run parameters on cmd, bound to cfg.
// withVariant is false for commands that iterate over variants themselves.
func addConfigFlags(cmd *cobra.Command, cfg *config.RunConfig, configPath *string, withVariant bool) {
	f := cmd.Flags()
	f.StringVar(configPath, "config", "", "YAML run configuration; explicit flags override it")
	if withVariant {
		f.StringVar(&cfg.Variant, "variant", cfg.Variant, "GWO variant (continuous, binary, chaotic, hybrid)")
	}
	f.StringVar(&cfg.Objective, "objective", cfg.Objective, "Objective function (sphere, rastrigin, ackley, rosenbrock, griewank, onemax)")
	f.IntVar(&cfg.Dim, "dim", cfg.Dim, "Problem dimension (D)")
	f.IntVar(&cfg.PopSize, "pop", cfg.PopSize, "Number of wolves (N)")
	f.IntVar(&cfg.Iters, "iters", cfg.Iters, "Number of iterations (T)")
	f.Float64Var(&cfg.Lower, "lower", cfg.Lower, "Lower bound of the search box")
	f.Float64Var(&cfg.Upper, "upper", cfg.Upper, "Upper bound of the search box")
	f.BoolVar(&cfg.Clamp, "clamp", cfg.Clamp, "Clamp continuous and chaotic positions to the box")
	f.StringVar(&cfg.LeaderPolicy, "policy", cfg.LeaderPolicy, "Leader update policy (rank, cascade)")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	f.IntVar(&cfg.ReportEvery, "report-every", cfg.ReportEvery, "Print progress every N iterations")
	f.IntVar(&cfg.StallPatience, "stall-patience", cfg.StallPatience, "Stop after N iterations without improvement (0 = never)")
	f.Float64Var(&cfg.StallThreshold, "stall-threshold", cfg.StallThreshold, "Relative improvement that resets the stall counter (0 = 0.001)")
}

// resolveConfig returns the flag-bound config, or the config file with the
// explicitly set flags applied on top.
func resolveConfig(cmd *cobra.Command, flagged config.RunConfig, configPath string) (config.RunConfig, error) {
	if configPath == "" {
		return flagged, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	overlayChanged(&cfg, flagged, cmd.Flags().Changed)
	return cfg, nil
}

func overlayChanged(dst *config.RunConfig, src config.RunConfig, changed func(string) bool) {
	for name, apply := range configFlags {
		if changed(name) {
			apply(dst, src)
		}
	}
}
