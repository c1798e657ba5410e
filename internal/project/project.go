// Package project detects metadata about the target project: its name, the
// project type and framework it was generated with, and the Go module path
// when one exists. Templates receive this metadata as render data and
// telemetry tags each generation with it.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the per-project configuration file name
const ConfigFile = "roost.yml"

// Info describes a target project
type Info struct {
	Root       string
	Name       string
	Type       string // e.g. "webapi", "desktop"
	Framework  string // e.g. "chi", "mvvm"
	Module     string // go.mod module path, empty when not a Go module
	HasConfig  bool
	ConfigPath string
}

// IsRoostProject checks if a directory contains roost.yml
func IsRoostProject(rootPath string) bool {
	_, err := os.Stat(filepath.Join(rootPath, ConfigFile))
	return err == nil
}

// Detect gathers project metadata from rootPath. A missing roost.yml or
// go.mod is not an error; a malformed one is.
func Detect(rootPath string) (*Info, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}

	info := &Info{Root: abs, Name: filepath.Base(abs)}

	configPath := filepath.Join(abs, ConfigFile)
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		var cfg struct {
			Project struct {
				Name      string `yaml:"name"`
				Type      string `yaml:"type"`
				Framework string `yaml:"framework"`
			} `yaml:"project"`
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", ConfigFile, err)
		}
		info.HasConfig = true
		info.ConfigPath = configPath
		info.Type = cfg.Project.Type
		info.Framework = cfg.Project.Framework
		if cfg.Project.Name != "" {
			info.Name = cfg.Project.Name
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}

	mod, err := DetectModule(abs)
	switch {
	case err == nil:
		info.Module = mod.Path
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	return info, nil
}
