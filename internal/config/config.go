package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for packguard.
type FileConfig struct {
	// Extra terms are appended to the built-in rule sets, never replacing them.
	ExtraKeywords []string `yaml:"extra_keywords,omitempty"`
	ExtraModIDs   []string `yaml:"extra_mod_ids,omitempty"`

	PollInterval  *string `yaml:"poll_interval,omitempty"`
	LogLevel      *string `yaml:"log_level,omitempty"`
	MaxEntryBytes *int64  `yaml:"max_entry_bytes,omitempty"`
	NoCache       *bool   `yaml:"no_cache,omitempty"`
	NoColor       *bool   `yaml:"no_color,omitempty"`
	WatchEvents   *bool   `yaml:"watch_events,omitempty"`

	Audit *AuditConfig `yaml:"audit,omitempty"`
}

// AuditConfig controls the JSONL audit trail.
type AuditConfig struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`
	// Path overrides <game_dir>/anticheat_audit.jsonl.
	Path *string `yaml:"path,omitempty"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LocalNames are the file names LoadLocal looks for, in order.
var LocalNames = []string{".packguard.yml", ".packguard.yaml", "packguard.yml", "packguard.yaml"}

// LoadLocal searches for a config file in the given game directory.
// It supports .packguard.yml/.yaml and packguard.yml/.yaml.
func LoadLocal(gameDir string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range LocalNames {
		p := filepath.Join(gameDir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// GlobalPath returns the global config location under XDG_CONFIG_HOME or
// ~/.config, or "" when neither can be determined.
func GlobalPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return ""
	}
	return filepath.Join(base, "packguard", "config.yml")
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	p := GlobalPath()
	if p == "" {
		return cfg, errors.New("no config dir")
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

// Write marshals cfg as YAML to path.
func Write(path string, cfg FileConfig) error {
	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Interval parses PollInterval, returning 0 when unset.
func (fc FileConfig) Interval() (time.Duration, error) {
	if fc.PollInterval == nil || *fc.PollInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(*fc.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("poll_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("poll_interval must be positive, got %s", d)
	}
	return d, nil
}

// GetAuditConfig returns the audit configuration with defaults applied.
func (fc FileConfig) GetAuditConfig() AuditConfig {
	if fc.Audit == nil {
		enabled := true
		return AuditConfig{Enabled: &enabled}
	}
	cfg := *fc.Audit
	if cfg.Enabled == nil {
		enabled := true
		cfg.Enabled = &enabled
	}
	return cfg
}

// IsEnabled returns true unless auditing was switched off.
func (ac AuditConfig) IsEnabled() bool {
	if ac.Enabled == nil {
		return true
	}
	return *ac.Enabled
}

// GetPath returns the configured audit log path or "" for the default.
func (ac AuditConfig) GetPath() string {
	if ac.Path == nil {
		return ""
	}
	return *ac.Path
}
