package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/CoWork-OS/warden/internal/gate"
	"github.com/CoWork-OS/warden/internal/risk"
	"github.com/CoWork-OS/warden/internal/risk/signals"
)

// Risk is the server-wide risk calibration file. Everything in it extends
// or re-weights the built-in signal catalog; projects adjust further
// through their stored review policy.
type Risk struct {
	// DefaultPolicy applies to projects without a stored review policy.
	// Empty means balanced.
	DefaultPolicy string `yaml:"default_policy"`

	// Signals re-weights or disables built-in signals by name.
	Signals map[string]SignalSetting `yaml:"signals"`

	// Keywords extends the catalog's keyword tables.
	Keywords Keywords `yaml:"keywords"`
}

// SignalSetting adjusts one signal server-wide. Nil fields keep the
// built-in behavior.
type SignalSetting struct {
	Enabled *bool `yaml:"enabled"`
	Weight  *int  `yaml:"weight"`
}

// Keywords extends the built-in detection tables. Entries add to the
// defaults; they never replace them.
type Keywords struct {
	CommandRunners []string `yaml:"command_runners"`
	MutatingVerbs  []string `yaml:"mutating_verbs"`
	TestKeywords   []string `yaml:"test_keywords"`
	TestCommands   []string `yaml:"test_commands"`
}

// Default returns the calibration used when no file is configured.
func Default() *Risk {
	return &Risk{DefaultPolicy: string(gate.DefaultPolicy)}
}

// Load reads and validates a calibration file.
func Load(path string) (*Risk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("Load: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates calibration YAML. Invalid calibration is
// rejected here, at startup, so scoring never sees a bad table.
func Parse(data []byte) (*Risk, error) {
	var cfg Risk
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("Parse: %w", err)
	}
	if cfg.DefaultPolicy == "" {
		cfg.DefaultPolicy = string(gate.DefaultPolicy)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the calibration against the known signal catalog and
// policy set.
func (c *Risk) Validate() error {
	if _, err := gate.ParsePolicy(c.DefaultPolicy); err != nil {
		return fmt.Errorf("Validate: default_policy: %w", err)
	}
	known := make(map[risk.Signal]bool, len(risk.KnownSignals()))
	for _, sig := range risk.KnownSignals() {
		known[sig] = true
	}
	for name, setting := range c.Signals {
		if !known[risk.Signal(name)] {
			return fmt.Errorf("Validate: unknown signal %q", name)
		}
		if setting.Weight != nil && *setting.Weight < 0 {
			return fmt.Errorf("Validate: signal %q: weight must not be negative", name)
		}
	}
	return nil
}

// Policy returns the validated default review policy.
func (c *Risk) Policy() gate.Policy {
	p, err := gate.ParsePolicy(c.DefaultPolicy)
	if err != nil {
		return gate.DefaultPolicy
	}
	return p
}

// Detectors builds the signal catalog with the configured keyword
// extensions, dropping signals disabled server-wide.
func (c *Risk) Detectors() []risk.Detector {
	all := signals.Catalog(signals.Config{
		ExtraCommandRunners: c.Keywords.CommandRunners,
		ExtraMutatingVerbs:  c.Keywords.MutatingVerbs,
		ExtraTestKeywords:   c.Keywords.TestKeywords,
		ExtraTestCommands:   c.Keywords.TestCommands,
	})
	kept := make([]risk.Detector, 0, len(all))
	for _, d := range all {
		if s, ok := c.Signals[string(d.Name())]; ok && s.Enabled != nil && !*s.Enabled {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// Weights returns the built-in weight table with the configured
// re-weighting applied.
func (c *Risk) Weights() map[risk.Signal]int {
	weights := risk.DefaultWeights()
	for name, setting := range c.Signals {
		if setting.Weight != nil {
			weights[risk.Signal(name)] = *setting.Weight
		}
	}
	return weights
}
