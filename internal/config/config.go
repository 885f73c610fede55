// Package config loads the YAML-driven run configuration for a simulator
// invocation, following the coordinator's load-then-overlay-defaults
// pattern.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/walb-linux/walbsim/internal/constants"
)

// Config is the top-level configuration for one simulator run.
type Config struct {
	// Mode selects "fast" or "slow" write-visibility semantics.
	Mode string `yaml:"mode"`
	// NPlug is the lookahead window width, in plugs.
	NPlug int `yaml:"n_plug"`
	// Shuffle selects random candidate choice over first-candidate choice.
	Shuffle bool `yaml:"shuffle"`
	// CrashPctPerTick is the percent chance of injecting a crash before
	// each tick.
	CrashPctPerTick int `yaml:"crash_pct_per_tick"`
	// NLoop is the total number of runs in a cross-loop divergence check:
	// one reference run plus NLoop-1 shuffled runs compared against it.
	NLoop int `yaml:"n_loop"`
	// Seed is a random seed for shuffled runs. cmd/walbsim does not read
	// it; its seed comes from the --seed flag.
	Seed int64 `yaml:"seed"`
	// LogLevel is the structured logger's minimum level: "debug", "info",
	// "warn", or "error".
	LogLevel string `yaml:"log_level"`
	// Workload names the built-in demo workload to run when invoked
	// without a scripted request file.
	Workload string `yaml:"workload"`
}

// LoadConfig reads path as YAML, overlaying it onto DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfig returns the configuration a simulator run uses absent an
// explicit config file.
func DefaultConfig() *Config {
	return &Config{
		Mode:            "fast",
		NPlug:           constants.DefaultNPlug,
		Shuffle:         constants.DefaultShuffle,
		CrashPctPerTick: constants.DefaultCrashPctPerTick,
		NLoop:           constants.DefaultNLoop,
		Seed:            0,
		LogLevel:        "info",
		Workload:        "interleaved",
	}
}

// Validate reports whether cfg's fields are in range, mirroring the
// construction-error reporting used elsewhere in the simulator: a bad
// config is a caller error, not a panic.
func (c *Config) Validate() error {
	if c.Mode != "fast" && c.Mode != "slow" {
		return fmt.Errorf("config: mode must be \"fast\" or \"slow\", got %q", c.Mode)
	}
	if c.NPlug < constants.MinNPlug {
		return fmt.Errorf("config: n_plug must be >= %d, got %d", constants.MinNPlug, c.NPlug)
	}
	if c.CrashPctPerTick < 0 || c.CrashPctPerTick > 100 {
		return fmt.Errorf("config: crash_pct_per_tick must be in [0, 100], got %d", c.CrashPctPerTick)
	}
	if c.NLoop < 1 {
		return fmt.Errorf("config: n_loop must be >= 1, got %d", c.NLoop)
	}
	return nil
}
