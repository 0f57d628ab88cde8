// Package config loads the `pipeline.*` runtime configuration surface
// (§6) via spf13/viper, with gopkg.in/yaml.v3 as the decode path for YAML
// config files, the way the teacher's tools/arena CLI and the sibling
// jmylchreest-tvarr repo load configuration. Precedence: defaults < config
// file < environment variables < per-step overrides < explicit
// programmatic overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StepDefaults mirrors step.Config's tunables in config-surface form.
type StepDefaults struct {
	RetryLimit                 int           `mapstructure:"retry-limit"`
	RetryWaitMS                int           `mapstructure:"retry-wait-ms"`
	MaxBackoff                 time.Duration `mapstructure:"max-backoff"`
	Jitter                     bool          `mapstructure:"jitter"`
	RecoverOnFailure           bool          `mapstructure:"recover-on-failure"`
	BackpressureBufferCapacity int           `mapstructure:"backpressure-buffer-capacity"`
	BackpressureStrategy       string        `mapstructure:"backpressure-strategy"`
}

// HealthConfig holds the §4.6 startup-readiness window.
type HealthConfig struct {
	StartupTimeout time.Duration `mapstructure:"startup-timeout"`
}

// CacheConfig holds the §4.5 cache backend selection.
type CacheConfig struct {
	Provider string        `mapstructure:"provider"`
	Policy   string        `mapstructure:"policy"`
	TTL      time.Duration `mapstructure:"ttl"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

// RedisConfig is the provider-specific subtree for cache.provider=redis.
type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

// RetryAmplificationConfig holds the §4.7 kill-switch guard tunables.
type RetryAmplificationConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Window              time.Duration `mapstructure:"window"`
	InflightSlopeThresh float64       `mapstructure:"inflight-slope-threshold"`
	RetryRateThreshold  float64       `mapstructure:"retry-rate-threshold"`
	Mode                string        `mapstructure:"mode"`
}

// KillSwitchConfig is the kill-switch.* subtree.
type KillSwitchConfig struct {
	RetryAmplification RetryAmplificationConfig `mapstructure:"retry-amplification"`
}

// TracingConfig is the telemetry.tracing.* subtree.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	PerItem bool `mapstructure:"per-item"`
}

// MetricsConfig is the telemetry.metrics.* subtree.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TelemetryConfig is the telemetry.* subtree.
type TelemetryConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// PipelineConfig is the full `pipeline.*` configuration surface of §6.
type PipelineConfig struct {
	Defaults       StepDefaults            `mapstructure:"defaults"`
	Parallelism    string                  `mapstructure:"parallelism"`
	MaxConcurrency int                     `mapstructure:"max-concurrency"`
	Step           map[string]StepDefaults `mapstructure:"step"`
	Health         HealthConfig            `mapstructure:"health"`
	Cache          CacheConfig             `mapstructure:"cache"`
	KillSwitch     KillSwitchConfig        `mapstructure:"kill-switch"`
	Telemetry      TelemetryConfig         `mapstructure:"telemetry"`
}

// Load reads pipeline.* configuration from an optional YAML file plus
// environment variables (prefixed PIPELINE_, dots replaced with
// underscores), layered over spec defaults. A missing config file is not an
// error — defaults and environment variables still apply.
func Load(configPath string) (*PipelineConfig, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pipeline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/flowforge")
	}

	v.SetEnvPrefix("PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg PipelineConfig
	if err := v.UnmarshalKey("pipeline", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling pipeline config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults configures spec-default values for the pipeline.* surface.
// Exported so callers building their own *viper.Viper (e.g. composing it
// with other config sections) can reuse the same defaults.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.defaults.retry-limit", 3)
	v.SetDefault("pipeline.defaults.retry-wait-ms", 2000)
	v.SetDefault("pipeline.defaults.max-backoff", 30*time.Second)
	v.SetDefault("pipeline.defaults.jitter", false)
	v.SetDefault("pipeline.defaults.recover-on-failure", false)
	v.SetDefault("pipeline.defaults.backpressure-buffer-capacity", 128)
	v.SetDefault("pipeline.defaults.backpressure-strategy", "BUFFER")

	v.SetDefault("pipeline.parallelism", "AUTO")
	v.SetDefault("pipeline.max-concurrency", 128)

	v.SetDefault("pipeline.health.startup-timeout", 5*time.Minute)

	v.SetDefault("pipeline.cache.provider", "none")
	v.SetDefault("pipeline.cache.policy", "PREFER_CACHE")
	v.SetDefault("pipeline.cache.ttl", time.Hour)

	v.SetDefault("pipeline.kill-switch.retry-amplification.enabled", false)
	v.SetDefault("pipeline.kill-switch.retry-amplification.window", 30*time.Second)
	v.SetDefault("pipeline.kill-switch.retry-amplification.inflight-slope-threshold", 0.0)
	v.SetDefault("pipeline.kill-switch.retry-amplification.retry-rate-threshold", 0.0)
	v.SetDefault("pipeline.kill-switch.retry-amplification.mode", "log-only")

	v.SetDefault("pipeline.telemetry.enabled", false)
	v.SetDefault("pipeline.telemetry.metrics.enabled", false)
	v.SetDefault("pipeline.telemetry.tracing.enabled", false)
	v.SetDefault("pipeline.telemetry.tracing.per-item", false)
}
