package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable holding the model API key. Credentials are never
// read from config files.
const APIKeyEnv = "SKILLRANK_API_KEY"

// Config is the full engine configuration. Everything that influences
// scoring (models, trial count, pricing) lives here, never hard-coded in
// the scoring logic.
type Config struct {
	Models  ModelsConfig  `yaml:"models"`
	Trials  TrialsConfig  `yaml:"trials"`
	Limits  LimitsConfig  `yaml:"limits"`
	Retry   RetryConfig   `yaml:"retry"`
	Pricing PricingConfig `yaml:"pricing"`
	Paths   PathsConfig   `yaml:"paths"`
}

// ModelsConfig identifies the models used for each call kind.
type ModelsConfig struct {
	BaseURL    string `yaml:"base_url,omitempty"`
	Execution  string `yaml:"execution"`
	Generation string `yaml:"generation"`
	Judge      string `yaml:"judge"`

	// JudgeContext pins the judge preamble revision. Empty selects the
	// current revision.
	JudgeContext string `yaml:"judge_context,omitempty"`
}

// TrialsConfig controls the paired-comparison trials.
type TrialsConfig struct {
	// PromptCount is the number of prompts generated per skill.
	PromptCount int `yaml:"prompt_count"`

	// MinCompletedFraction is the fraction of trials that must complete
	// for a skill to be scored; below it the run is marked partial.
	MinCompletedFraction float64 `yaml:"min_completed_fraction"`

	// Seed for the per-trial position randomization. Negative means a
	// fresh random seed per run; tests set it for exact distributions.
	Seed int64 `yaml:"seed,omitempty"`

	// MaxContentBytes bounds accepted skill content size.
	MaxContentBytes int `yaml:"max_content_bytes"`
}

// LimitsConfig bounds concurrency and request rate for model calls.
type LimitsConfig struct {
	MaxConcurrentSkills int `yaml:"max_concurrent_skills"`
	MaxConcurrentCalls  int `yaml:"max_concurrent_calls"`
	CallsPerMinute      int `yaml:"calls_per_minute"`
}

// RetryConfig controls retry and timeout behavior for model calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms"`
	MaxBackoffMS     int `yaml:"max_backoff_ms"`
	TimeoutSec       int `yaml:"timeout_seconds"`
}

// PricingConfig holds the per-token pricing constants for the execution
// model. Both trial sides run on the same model, so one constant set
// covers both and cost deltas compare directly.
type PricingConfig struct {
	InputPerToken  float64 `yaml:"input_per_token"`
	OutputPerToken float64 `yaml:"output_per_token"`

	// CostPrecision is the number of decimal places costs round to.
	CostPrecision int `yaml:"cost_precision"`
}

// PathsConfig locates the evidence store and skill inputs.
type PathsConfig struct {
	SkillsDir   string `yaml:"skills_dir"`
	EvidenceDir string `yaml:"evidence_dir"`
	Leaderboard string `yaml:"leaderboard"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Models: ModelsConfig{
			Execution:  "gpt-4o-mini",
			Generation: "gpt-4o",
			Judge:      "gpt-4o",
		},
		Trials: TrialsConfig{
			PromptCount:          10,
			MinCompletedFraction: 0.7,
			Seed:                 -1,
			MaxContentBytes:      256 * 1024,
		},
		Limits: LimitsConfig{
			MaxConcurrentSkills: 2,
			MaxConcurrentCalls:  4,
			CallsPerMinute:      60,
		},
		Retry: RetryConfig{
			MaxAttempts:      4,
			InitialBackoffMS: 1000,
			MaxBackoffMS:     30000,
			TimeoutSec:       120,
		},
		Pricing: PricingConfig{
			InputPerToken:  0.25 / 1_000_000,
			OutputPerToken: 1.25 / 1_000_000,
			CostPrecision:  6,
		},
		Paths: PathsConfig{
			SkillsDir:   "data/skills",
			EvidenceDir: "data/evaluations",
			Leaderboard: "data/leaderboard.json",
		},
	}
}

// Load reads a YAML config file layered over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Trials.PromptCount < 1 {
		return fmt.Errorf("prompt_count must be at least 1, got %d", c.Trials.PromptCount)
	}
	if c.Trials.MinCompletedFraction <= 0 || c.Trials.MinCompletedFraction > 1 {
		return fmt.Errorf("min_completed_fraction must be in (0, 1], got %v", c.Trials.MinCompletedFraction)
	}
	if c.Limits.MaxConcurrentCalls < 1 {
		return fmt.Errorf("max_concurrent_calls must be at least 1, got %d", c.Limits.MaxConcurrentCalls)
	}
	if c.Limits.MaxConcurrentSkills < 1 {
		return fmt.Errorf("max_concurrent_skills must be at least 1, got %d", c.Limits.MaxConcurrentSkills)
	}
	if c.Limits.CallsPerMinute < 1 {
		return fmt.Errorf("calls_per_minute must be at least 1, got %d", c.Limits.CallsPerMinute)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.TimeoutSec < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", c.Retry.TimeoutSec)
	}
	if c.Pricing.OutputPerToken <= 0 || c.Pricing.InputPerToken <= 0 {
		return fmt.Errorf("pricing constants must be positive")
	}
	for name, id := range map[string]string{
		"execution":  c.Models.Execution,
		"generation": c.Models.Generation,
		"judge":      c.Models.Judge,
	} {
		if id == "" {
			return fmt.Errorf("models.%s must be set", name)
		}
	}
	return nil
}

// APIKey returns the model API key from the environment.
func APIKey() (string, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s is not set", APIKeyEnv)
	}
	return key, nil
}

// InitialBackoff returns the initial retry backoff as a duration.
func (r RetryConfig) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff returns the backoff ceiling as a duration.
func (r RetryConfig) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMS) * time.Millisecond
}

// Timeout returns the per-call deadline as a duration.
func (r RetryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSec) * time.Second
}
