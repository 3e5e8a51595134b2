// Package config holds the tool configuration: the ordered ESU product key
// set, the activation identifier table, and slmgr invocation timing. The
// compiled-in defaults are the configuration of record; a YAML file and a
// handful of environment variables can override them per deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gw37/ej-esu/internal/esu"
)

// Config holds detect/remediate configuration.
type Config struct {
	// Keys is the ordered year→key set. Order is remediation priority:
	// earlier years are tried first.
	Keys esu.KeySet `yaml:"keys"`

	// ActivationIDs maps year labels to ESU activation GUIDs. File entries
	// override individual years; unlisted years keep their defaults.
	ActivationIDs map[string]string `yaml:"activation_ids"`

	// Timing
	SettleSeconds       int `yaml:"settle_seconds"`        // sleep after each slmgr call
	SlmgrTimeoutSeconds int `yaml:"slmgr_timeout_seconds"` // per-invocation timeout

	// SlmgrPath overrides the default %SystemRoot%\System32\slmgr.vbs.
	SlmgrPath string `yaml:"slmgr_path"`

	// Verbose raises the log level to debug.
	Verbose bool `yaml:"verbose"`
}

// Default returns the compiled-in configuration: the Windows 10 ESU year
// identifiers and placeholder keys that deployments replace with their
// volume-license MAK keys.
func Default() Config {
	return Config{
		Keys: esu.KeySet{
			{Year: "Year1", Key: "BBBBB-BBBBB-BBBBB-BBBBB-BBBBB"},
			{Year: "Year2", Key: "CCCCC-CCCCC-CCCCC-CCCCC-CCCCC"},
			{Year: "Year3", Key: "DDDDD-DDDDD-DDDDD-DDDDD-DDDDD"},
		},
		ActivationIDs: map[string]string{
			"Year1": "f520e45e-7413-4a34-a497-d2765967d094",
			"Year2": "1043add5-23b1-4afb-9a0f-64343c8f3f8d",
			"Year3": "83d49986-add3-41d7-ba33-87c7bfb5c0fb",
		},
		SettleSeconds:       5,
		SlmgrTimeoutSeconds: 90,
	}
}

// Load builds the effective configuration: defaults, then an optional YAML
// file, then environment overrides. An empty path skips the file layer; a
// non-empty path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("ESU_SETTLE_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse ESU_SETTLE_SECONDS: %w", err)
		}
		cfg.SettleSeconds = n
	}
	if v := os.Getenv("ESU_SLMGR_PATH"); v != "" {
		cfg.SlmgrPath = v
	}
	if v := os.Getenv("ESU_VERBOSE"); v != "" {
		cfg.Verbose = !isFalsy(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Clamp timing to sane ranges
	if cfg.SettleSeconds < 0 {
		cfg.SettleSeconds = 0
	}
	if cfg.SettleSeconds > 300 {
		cfg.SettleSeconds = 300
	}
	if cfg.SlmgrTimeoutSeconds < 10 {
		cfg.SlmgrTimeoutSeconds = 10
	}
	if cfg.SlmgrTimeoutSeconds > 600 {
		cfg.SlmgrTimeoutSeconds = 600
	}

	return &cfg, nil
}

// Validate checks the invariants the remediation flow depends on.
func (c *Config) Validate() error {
	if len(c.Keys) == 0 {
		return fmt.Errorf("at least one product key entry is required")
	}

	seen := make(map[string]bool, len(c.Keys))
	for _, e := range c.Keys {
		if e.Year == "" {
			return fmt.Errorf("key entry with empty year label")
		}
		if seen[e.Year] {
			return fmt.Errorf("duplicate key entry for %s", e.Year)
		}
		seen[e.Year] = true

		if c.ActivationIDs[e.Year] == "" {
			return fmt.Errorf("no activation ID configured for %s", e.Year)
		}
	}

	return nil
}

// ReverseActivationIDs returns the lowercased GUID→year map used to match
// inventory records against the configured years.
func (c *Config) ReverseActivationIDs() map[string]string {
	reverse := make(map[string]string, len(c.ActivationIDs))
	for year, id := range c.ActivationIDs {
		reverse[strings.ToLower(id)] = year
	}
	return reverse
}

// SettleDelay returns the post-invocation sleep as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// SlmgrTimeout returns the per-invocation timeout as a duration.
func (c *Config) SlmgrTimeout() time.Duration {
	return time.Duration(c.SlmgrTimeoutSeconds) * time.Second
}

func isFalsy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "false" || v == "0" || v == "no"
}
