package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config carries the run parameters consumed at checker construction. The
// zero value is not usable; start from Default and override.
type Config struct {
	// Number of worker goroutines expanding states.
	Threads int `yaml:"threads"`

	// Total number of states the seen set is sized for up front.
	SetCapacity int `yaml:"set-capacity"`

	// Per-shard load-factor percentage that triggers shard growth.
	SetExpandThreshold int `yaml:"set-expand-threshold"`

	// Upper bound on distinct states before the run aborts as exhausted.
	// Zero means unbounded.
	SetMaxCapacity uint64 `yaml:"set-max-capacity"`

	// A progress line is reported every ProgressInterval-th distinct
	// state.
	ProgressInterval uint64 `yaml:"progress-interval"`

	// Verbose lifts logging from warn to debug.
	Verbose bool `yaml:"verbose"`
}

// Default returns the standard configuration: one worker per CPU, a seen set
// sized for a million states growing at 75% load, progress every 10,000th
// state.
func Default() Config {
	return Config{
		Threads:            runtime.GOMAXPROCS(0),
		SetCapacity:        1 << 20,
		SetExpandThreshold: 75,
		ProgressInterval:   10000,
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects parameter combinations the checker cannot run with.
func (c Config) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("config: threads must be at least 1, got %d", c.Threads)
	}
	if c.SetCapacity < 1 {
		return fmt.Errorf("config: set-capacity must be positive, got %d", c.SetCapacity)
	}
	if c.SetExpandThreshold < 1 || c.SetExpandThreshold > 100 {
		return fmt.Errorf("config: set-expand-threshold must be in [1,100], got %d", c.SetExpandThreshold)
	}
	if c.ProgressInterval == 0 {
		return fmt.Errorf("config: progress-interval must be positive")
	}
	return nil
}
