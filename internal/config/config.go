// Package config loads the optional bridge YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/service"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/resiliency"
)

// Default values used when the configuration omits a setting.
const (
	DefaultOutputCap     = 256 << 10 // 256 KiB per run
	DefaultRunRetention  = time.Hour
	DefaultRetryAttempts = 5
	DefaultRetryDelay    = 200 * time.Millisecond
	DefaultBuildCommand  = "go build ./..."
	DefaultTestCommand   = "go test -json ./..."
)

// Config holds the parsed bridge configuration. All fields are optional;
// zero values mean defaults.
type Config struct {
	ProjectName string `yaml:"projectName"`
	WorkDir     string `yaml:"workDir"`

	BuildCommand string `yaml:"buildCommand"`
	TestCommand  string `yaml:"testCommand"`

	RunConfigs []RunConfig `yaml:"runConfigurations"`

	Timeouts TimeoutConfig `yaml:"timeouts"`
	Retry    RetryConfig   `yaml:"resultRetry"`

	RawOutputCap    int    `yaml:"outputBufferBytes"`
	RawRunRetention string `yaml:"runRetention"` // e.g. "1h", "30m"

	DebugAdapterAddr string `yaml:"debugAdapterAddr"` // host:port of a DAP server, optional
}

// RunConfig is one named launchable process configuration.
type RunConfig struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
	Dir     string   `yaml:"dir"`
	Env     []string `yaml:"env"`
}

// TimeoutConfig carries raw duration strings for the per-concern budgets.
type TimeoutConfig struct {
	Build        string `yaml:"build"`
	Test         string `yaml:"test"`
	Debug        string `yaml:"debug"`
	LockAcquire  string `yaml:"lockAcquire"`
	ExternalWait string `yaml:"externalWait"`
	ExternalPoll string `yaml:"externalPoll"`
}

// RetryConfig controls the result extraction retry.
type RetryConfig struct {
	Attempts uint64 `yaml:"attempts"`
	RawDelay string `yaml:"delay"`
}

// OutputCap returns the per-run output buffer capacity in bytes.
func (c *Config) OutputCap() int {
	if c.RawOutputCap > 0 {
		return c.RawOutputCap
	}
	return DefaultOutputCap
}

// RunRetention returns how long terminated runs are kept before pruning.
func (c *Config) RunRetention() time.Duration {
	return durationOr(c.RawRunRetention, DefaultRunRetention)
}

// ServiceTimeouts materializes the timeout budgets, falling back to the
// service defaults per field.
func (c *Config) ServiceTimeouts() service.Timeouts {
	def := service.DefaultTimeouts()
	return service.Timeouts{
		Build:        durationOr(c.Timeouts.Build, def.Build),
		Test:         durationOr(c.Timeouts.Test, def.Test),
		Debug:        durationOr(c.Timeouts.Debug, def.Debug),
		LockAcquire:  durationOr(c.Timeouts.LockAcquire, def.LockAcquire),
		ExternalWait: durationOr(c.Timeouts.ExternalWait, def.ExternalWait),
		ExternalPoll: durationOr(c.Timeouts.ExternalPoll, def.ExternalPoll),
	}
}

// RetryPolicy materializes the result extraction retry policy.
func (c *Config) RetryPolicy() resiliency.FixedRetryPolicy {
	p := resiliency.FixedRetryPolicy{
		MaxAttempts: DefaultRetryAttempts,
		Delay:       DefaultRetryDelay,
	}
	if c.Retry.Attempts > 0 {
		p.MaxAttempts = c.Retry.Attempts
	}
	p.Delay = durationOr(c.Retry.RawDelay, p.Delay)
	return p
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	if raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// Load reads the configuration from path. A missing file yields an empty
// (all-defaults) Config; a malformed file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.RunConfigs))
	for _, rc := range c.RunConfigs {
		if rc.Name == "" {
			return fmt.Errorf("run configuration with empty name")
		}
		if len(rc.Command) == 0 {
			return fmt.Errorf("run configuration %q has no command", rc.Name)
		}
		if _, dup := seen[rc.Name]; dup {
			return fmt.Errorf("duplicate run configuration %q", rc.Name)
		}
		seen[rc.Name] = struct{}{}
	}
	return nil
}
