// Package config loads the YAML toggle set that gates each stage of
// internal/pipeline's Optimize control flow (spec.md §2, §5 concurrency
// knob), parsed with gopkg.in/yaml.v3 the way the teacher's
// NewOptimizationPipeline wires a fixed pass list — here the list is
// data rather than a hard-coded AddPass sequence.
package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config gates every stage of a single function's optimization pass, plus
// the dominance fixed-point cap and the cross-function concurrency degree.
type Config struct {
	ConstProp                  bool `yaml:"const_prop"`
	CSE                        bool `yaml:"cse"`
	CopyProp                   bool `yaml:"copy_prop"`
	LiveDCE                    bool `yaml:"live_dce"`
	LoopOpt                    bool `yaml:"loop_opt"`
	InductionStrengthReduction bool `yaml:"induction_strength_reduction"`
	Peephole                   bool `yaml:"peephole"`

	// MaxDominanceIterations overrides dominance.MaxIterations when
	// positive (spec.md §4.7's cap is a default, not a hard constant).
	MaxDominanceIterations int `yaml:"max_dominance_iterations"`

	// Parallelism bounds OptimizeConcurrent's errgroup.SetLimit; <= 0
	// sets no limit, so OptimizeConcurrent starts one goroutine per
	// function at once. OptimizeProgram ignores it.
	Parallelism int `yaml:"parallelism"`
}

// Default returns every stage enabled, sequential execution, and the
// dominance analysis's own default cap (0 meaning "use
// dominance.MaxIterations").
func Default() Config {
	return Config{
		ConstProp:                  true,
		CSE:                        true,
		CopyProp:                   true,
		LiveDCE:                    true,
		LoopOpt:                    true,
		InductionStrengthReduction: true,
		Peephole:                   true,
	}
}

// Parse decodes a YAML document into a Config seeded with Default's
// values, so an input document only needs to mention the stages it wants
// to disable.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: parse")
	}
	return cfg, nil
}
