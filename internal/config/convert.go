package config

import (
	"time"

	"github.com/flowforge/flowforge/runtime/step"
)

// StepConfig converts StepDefaults to the runtime's step.Config, using
// DefaultConfig for any zero-valued tunable (viper guarantees defaults are
// populated, but this keeps the conversion safe for hand-built values too).
func (d StepDefaults) StepConfig() (step.Config, error) {
	cfg := step.DefaultConfig()

	if d.RetryLimit > 0 {
		cfg.RetryLimit = d.RetryLimit
	}
	if d.RetryWaitMS > 0 {
		cfg.RetryWait = time.Duration(d.RetryWaitMS) * time.Millisecond
	}
	if d.MaxBackoff > 0 {
		cfg.MaxBackoff = d.MaxBackoff
	}
	cfg.Jitter = d.Jitter
	cfg.RecoverOnFailure = d.RecoverOnFailure
	if d.BackpressureBufferCapacity > 0 {
		cfg.BackpressureBufferCapacity = d.BackpressureBufferCapacity
	}

	strategy, err := step.ParseBackpressureStrategy(d.BackpressureStrategy)
	if err != nil {
		return step.Config{}, err
	}
	cfg.BackpressureStrategy = strategy

	return cfg, nil
}

// ConfigFor returns the effective step.Config for a fully-qualified step
// name: profile defaults with any per-step override from pipeline.step."FQN"
// layered on top, implementing the precedence chain of §10.3/§6.
func (c *PipelineConfig) ConfigFor(fqn string) (step.Config, error) {
	base, err := c.Defaults.StepConfig()
	if err != nil {
		return step.Config{}, err
	}
	override, ok := c.Step[fqn]
	if !ok {
		return base, nil
	}
	overrideCfg, err := override.StepConfig()
	if err != nil {
		return step.Config{}, err
	}
	return mergeStepConfig(base, override, overrideCfg), nil
}

// mergeStepConfig layers non-zero fields from an override's raw config
// values onto the base, since a per-step override block in YAML typically
// sets only the tunables it cares about and leaves the rest at the zero
// value (which StepDefaults.StepConfig would otherwise have already
// defaulted, masking which fields the override actually specified).
func mergeStepConfig(base step.Config, raw StepDefaults, overrideCfg step.Config) step.Config {
	merged := base
	if raw.RetryLimit > 0 {
		merged.RetryLimit = overrideCfg.RetryLimit
	}
	if raw.RetryWaitMS > 0 {
		merged.RetryWait = overrideCfg.RetryWait
	}
	if raw.MaxBackoff > 0 {
		merged.MaxBackoff = overrideCfg.MaxBackoff
	}
	if raw.Jitter {
		merged.Jitter = true
	}
	if raw.RecoverOnFailure {
		merged.RecoverOnFailure = true
	}
	if raw.BackpressureBufferCapacity > 0 {
		merged.BackpressureBufferCapacity = overrideCfg.BackpressureBufferCapacity
	}
	if raw.BackpressureStrategy != "" {
		merged.BackpressureStrategy = overrideCfg.BackpressureStrategy
	}
	return merged
}

// ParsedPolicy returns the parsed global parallelism policy.
func (c *PipelineConfig) ParsedPolicy() (step.Policy, error) {
	return step.ParsePolicy(c.Parallelism)
}
