package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/travigo/feedcheck/pkg/checker"
	"github.com/travigo/feedcheck/pkg/linkcache"
	"github.com/travigo/feedcheck/pkg/orchestrator"
	"github.com/travigo/feedcheck/pkg/probe"
	"gopkg.in/yaml.v3"
)

// Config is the validation policy. Durations are written as Go duration
// strings ("10s", "2m").
type Config struct {
	Concurrency int           `yaml:"concurrency" validate:"gte=0,lte=256"`
	Deadline    time.Duration `yaml:"deadline" validate:"gte=0"`

	Probe          ProbeConfig          `yaml:"probe"`
	Static         StaticConfig         `yaml:"static"`
	ReferenceCache ReferenceCacheConfig `yaml:"reference_cache"`
}

type ProbeConfig struct {
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	ArchiveTimeout time.Duration `yaml:"archive_timeout" validate:"gte=0"`

	MaxAttempts   int           `yaml:"max_attempts" validate:"gte=0,lte=10"`
	BackoffBase   time.Duration `yaml:"backoff_base" validate:"gte=0"`
	BackoffMax    time.Duration `yaml:"backoff_max" validate:"gte=0"`
	MaxRetryAfter time.Duration `yaml:"max_retry_after" validate:"gte=0"`
	RetryOnStatus []int         `yaml:"retry_on_status" validate:"dive,gte=400,lte=599"`

	MaxBodyBytes  int64   `yaml:"max_body_bytes" validate:"gte=0"`
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`
	RateBurst     int     `yaml:"rate_burst" validate:"gte=0"`

	UserAgent string                       `yaml:"user_agent"`
	Headers   map[string]map[string]string `yaml:"headers" validate:"dive,keys,hostname_rfc1123,endkeys"`
}

type StaticConfig struct {
	RequiredTables []string `yaml:"required_tables" validate:"dive,required"`
}

type ReferenceCacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

func Default() Config {
	policy := probe.DefaultPolicy()

	return Config{
		Concurrency: orchestrator.DefaultConcurrencyLimit,
		Probe: ProbeConfig{
			Timeout:        policy.Timeout,
			ArchiveTimeout: policy.ArchiveTimeout,
			MaxAttempts:    policy.MaxAttempts,
			BackoffBase:    policy.BackoffBase,
			BackoffMax:     policy.BackoffMax,
			MaxRetryAfter:  policy.MaxRetryAfter,
			RetryOnStatus:  policy.RetryOnStatus,
			MaxBodyBytes:   policy.MaxBodyBytes,
			RatePerSecond:  policy.RatePerSecond,
			RateBurst:      policy.RateBurst,
		},
		Static: StaticConfig{
			RequiredTables: append([]string(nil), checker.DefaultRequiredTables...),
		},
		ReferenceCache: ReferenceCacheConfig{
			TTL: linkcache.DefaultTTL,
		},
	}
}

// Load reads the YAML policy file at path. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes data over the defaults, so keys left out keep their default value
func Parse(data []byte) (Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fieldError := validationErrors[0]
		return fmt.Errorf("invalid config: %s failed %s validation", fieldError.Namespace(), fieldError.Tag())
	}

	return fmt.Errorf("invalid config: %w", err)
}

// ProbePolicy builds the probe policy. version is appended to the default user agent.
func (c Config) ProbePolicy(version string) probe.Policy {
	userAgent := c.Probe.UserAgent
	if userAgent == "" {
		userAgent = "feedcheck/" + version
	}

	return probe.Policy{
		Timeout:        c.Probe.Timeout,
		ArchiveTimeout: c.Probe.ArchiveTimeout,
		MaxAttempts:    c.Probe.MaxAttempts,
		BackoffBase:    c.Probe.BackoffBase,
		BackoffMax:     c.Probe.BackoffMax,
		MaxRetryAfter:  c.Probe.MaxRetryAfter,
		RetryOnStatus:  c.Probe.RetryOnStatus,
		MaxBodyBytes:   c.Probe.MaxBodyBytes,
		RatePerSecond:  c.Probe.RatePerSecond,
		RateBurst:      c.Probe.RateBurst,
		UserAgent:      userAgent,
		Headers:        c.Probe.Headers,
	}
}

// OrchestratorOptions builds the run options. references may be nil.
func (c Config) OrchestratorOptions(references checker.ReferenceCache) orchestrator.Options {
	return orchestrator.Options{
		ConcurrencyLimit: c.Concurrency,
		Deadline:         c.Deadline,
		RequiredTables:   c.Static.RequiredTables,
		References:       references,
	}
}
