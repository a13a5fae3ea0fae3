// Package config builds the explicit configuration value object passed into
// each component. Settings merge in order: defaults, optional YAML file,
// environment variables. Nothing is read at package init time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend holds the settings for one vision-LLM backend.
type Backend struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
}

// Thresholds are the probability cutoffs for removal filtering.
type Thresholds struct {
	Solo   float64 `yaml:"solo"`
	Gender float64 `yaml:"gender"`
}

// Config is the application configuration. Construct it once with Load and
// pass it by value into components.
type Config struct {
	Workers         int
	SubmissionRate  float64 // caption submissions per second
	ThrottleRetries int
	BackoffFactor   float64
	LogLevel        string
	TriggerToken    string
	Thresholds      Thresholds
	Backend         Backend

	backendOverrides map[string]backendFile
}

type backendFile struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type configFile struct {
	Workers         int                    `yaml:"workers"`
	SubmissionRate  float64                `yaml:"submission_rate"`
	ThrottleRetries int                    `yaml:"throttle_retries"`
	BackoffFactor   float64                `yaml:"backoff_factor"`
	LogLevel        string                 `yaml:"log_level"`
	TriggerToken    string                 `yaml:"trigger_token"`
	Thresholds      *Thresholds            `yaml:"removal_thresholds"`
	Backends        map[string]backendFile `yaml:"backends"`
}

// defaultModels and defaultBaseURLs per backend family.
var (
	defaultModels = map[string]string{
		"openai":   "gpt-4o-mini",
		"grok":     "grok-2-vision-1212",
		"lmstudio": "local-model",
		"ollama":   "llava",
	}
	defaultBaseURLs = map[string]string{
		"openai":   "https://api.openai.com/v1",
		"grok":     "https://api.x.ai/v1",
		"lmstudio": "http://localhost:1234/v1",
		"ollama":   "http://localhost:11434",
	}
)

// ValidBackends lists the supported backend names.
func ValidBackends() []string {
	return []string{"openai", "grok", "lmstudio", "ollama"}
}

// RequiresAPIKey reports whether a backend is a cloud provider that needs a
// key; local servers do not.
func RequiresAPIKey(backend string) bool {
	switch strings.ToLower(backend) {
	case "lmstudio", "ollama":
		return false
	default:
		return true
	}
}

// Load builds the configuration. path may be empty; a missing file at an
// explicit path is an error, otherwise the YAML layer is skipped.
func Load(path string) (Config, error) {
	cfg := Config{
		Workers:         10,
		SubmissionRate:  1.0,
		ThrottleRetries: 10,
		BackoffFactor:   2.0,
		LogLevel:        "info",
		TriggerToken:    "[trigger]",
		Thresholds:      Thresholds{Solo: 0.9, Gender: 0.9},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		var file configFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.applyFile(file)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(file configFile) {
	if file.Workers > 0 {
		c.Workers = file.Workers
	}
	if file.SubmissionRate > 0 {
		c.SubmissionRate = file.SubmissionRate
	}
	if file.ThrottleRetries > 0 {
		c.ThrottleRetries = file.ThrottleRetries
	}
	if file.BackoffFactor > 0 {
		c.BackoffFactor = file.BackoffFactor
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if file.TriggerToken != "" {
		c.TriggerToken = file.TriggerToken
	}
	if file.Thresholds != nil {
		c.Thresholds = *file.Thresholds
	}
	c.backendOverrides = file.Backends
}

func (c *Config) applyEnv() {
	if v, ok := envInt("TRAINSET_WORKERS"); ok {
		c.Workers = v
	}
	if v, ok := envFloat("TRAINSET_SUBMISSION_RATE"); ok {
		c.SubmissionRate = v
	}
	if v, ok := envInt("TRAINSET_THROTTLE_RETRIES"); ok {
		c.ThrottleRetries = v
	}
	if v, ok := envFloat("TRAINSET_BACKOFF_FACTOR"); ok {
		c.BackoffFactor = v
	}
	if v := os.Getenv("TRAINSET_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("TRAINSET_TRIGGER_TOKEN"); ok {
		c.TriggerToken = v
	}
}

// SelectBackend resolves the settings for the named backend: built-in
// defaults, then YAML overrides, then BACKEND_MODEL / BACKEND_BASE_URL /
// BACKEND_API_KEY environment variables.
func (c *Config) SelectBackend(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := defaultModels[name]; !ok {
		return fmt.Errorf("unknown backend %q (choose from: %s)",
			name, strings.Join(ValidBackends(), ", "))
	}

	b := Backend{
		Name:    name,
		Model:   defaultModels[name],
		BaseURL: defaultBaseURLs[name],
	}

	if override, ok := c.backendOverrides[name]; ok {
		if override.Model != "" {
			b.Model = override.Model
		}
		if override.BaseURL != "" {
			b.BaseURL = override.BaseURL
		}
	}

	prefix := strings.ToUpper(name)
	if v := os.Getenv(prefix + "_MODEL"); v != "" {
		b.Model = v
	}
	if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
		b.BaseURL = v
	}
	b.APIKey = os.Getenv(prefix + "_API_KEY")

	if RequiresAPIKey(name) && b.APIKey == "" {
		return fmt.Errorf("%s_API_KEY is not set in the environment", prefix)
	}

	c.Backend = b
	return nil
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
