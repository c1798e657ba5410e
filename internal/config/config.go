// Package config loads roost.yml settings with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project root.
const FileName = "roost.yml"

// EnvPrefix prefixes environment overrides, e.g. ROOST_SYNC_CONFLICTS=skip.
const EnvPrefix = "ROOST"

// Conflict strategies accepted by sync.conflicts
const (
	ConflictsOverwrite = "overwrite"
	ConflictsSkip      = "skip"
	ConflictsPrompt    = "prompt"
	ConflictsDiff      = "diff"
)

// Config represents roost.yml
type Config struct {
	Project   ProjectConfig   `mapstructure:"project" yaml:"project"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Scratch   ScratchConfig   `mapstructure:"scratch" yaml:"scratch"`
	Sync      SyncConfig      `mapstructure:"sync" yaml:"sync"`
	Finish    FinishConfig    `mapstructure:"finish" yaml:"finish"`
	Report    ReportConfig    `mapstructure:"report" yaml:"report"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// ProjectConfig identifies the target project for telemetry tagging
type ProjectConfig struct {
	Name      string `mapstructure:"name" yaml:"name,omitempty"`
	Type      string `mapstructure:"type" yaml:"type"`
	Framework string `mapstructure:"framework" yaml:"framework"`
}

// TemplatesConfig locates the template catalog
type TemplatesConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ScratchConfig controls where generated output is staged
type ScratchConfig struct {
	// Root is the parent of per-cycle scratch dirs. Empty means os.TempDir()/roost.
	Root string `mapstructure:"root" yaml:"root,omitempty"`
	// Keep skips scratch cleanup after a sync cycle.
	Keep bool `mapstructure:"keep" yaml:"keep"`
}

// SyncConfig controls how output is applied to the project
type SyncConfig struct {
	Conflicts string `mapstructure:"conflicts" yaml:"conflicts"`
	DryRun    bool   `mapstructure:"dry_run" yaml:"dry_run"`
}

// FinishConfig lists commands run after a sync
type FinishConfig struct {
	Commands []CommandConfig `mapstructure:"commands" yaml:"commands,omitempty"`
}

// CommandConfig is one external command, e.g. {name: gofmt, run: [gofmt, -w, .]}
type CommandConfig struct {
	Name string   `mapstructure:"name" yaml:"name"`
	Run  []string `mapstructure:"run" yaml:"run"`
}

// ReportConfig controls summary rendering
type ReportConfig struct {
	HTML          bool `mapstructure:"html" yaml:"html"`
	ConflictDiffs bool `mapstructure:"conflict_diffs" yaml:"conflict_diffs"`
	// Dir keeps sync summaries after the scratch tree is gone. Relative paths
	// resolve against the project root; empty means the user cache directory.
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		Templates: TemplatesConfig{Path: "templates"},
		Sync:      SyncConfig{Conflicts: ConflictsOverwrite},
		Report:    ReportConfig{ConflictDiffs: true},
		Log:       LogConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("project.name", d.Project.Name)
	v.SetDefault("project.type", d.Project.Type)
	v.SetDefault("project.framework", d.Project.Framework)
	v.SetDefault("templates.path", d.Templates.Path)
	v.SetDefault("scratch.root", d.Scratch.Root)
	v.SetDefault("scratch.keep", d.Scratch.Keep)
	v.SetDefault("sync.conflicts", d.Sync.Conflicts)
	v.SetDefault("sync.dry_run", d.Sync.DryRun)
	v.SetDefault("report.html", d.Report.HTML)
	v.SetDefault("report.conflict_diffs", d.Report.ConflictDiffs)
	v.SetDefault("report.dir", d.Report.Dir)
	v.SetDefault("log.level", d.Log.Level)
}

// Load reads configuration. If path is empty, roost.yml in projectDir is used
// when present; a missing default file is not an error. An explicit path must exist.
// overrides are applied last, as "key=value" pairs (e.g. "sync.conflicts=skip").
func Load(projectDir, path string, overrides ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		candidate := filepath.Join(projectDir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			v.SetConfigFile(candidate)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", candidate, err)
			}
		}
	}

	for _, kv := range overrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid override %q, expected key=value", kv)
		}
		v.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.Sync.Conflicts {
	case ConflictsOverwrite, ConflictsSkip, ConflictsPrompt, ConflictsDiff:
	default:
		return fmt.Errorf("invalid sync.conflicts %q (want overwrite, skip, prompt or diff)", c.Sync.Conflicts)
	}

	for i, cmd := range c.Finish.Commands {
		if len(cmd.Run) == 0 {
			return fmt.Errorf("finish.commands[%d] (%s) has an empty run list", i, cmd.Name)
		}
	}

	return nil
}

// ScratchRoot resolves the parent directory for scratch trees
func (c *Config) ScratchRoot() string {
	if c.Scratch.Root != "" {
		return c.Scratch.Root
	}
	return filepath.Join(os.TempDir(), "roost")
}

// ReportDir resolves the directory sync summaries are kept in
func (c *Config) ReportDir(projectRoot string) string {
	if c.Report.Dir != "" {
		if filepath.IsAbs(c.Report.Dir) {
			return c.Report.Dir
		}
		return filepath.Join(projectRoot, c.Report.Dir)
	}
	if cache, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cache, "roost", "reports")
	}
	return filepath.Join(os.TempDir(), "roost-reports")
}

// Save writes configuration to a YAML file, refusing to clobber an existing one
// unless overwrite is set.
func Save(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
