// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/neurograph/internal/errors"
	"github.com/kraklabs/neurograph/pkg/analyzer"
)

const (
	defaultConfigDir  = ".neurograph"
	defaultConfigFile = "project.yaml"
	configVersion     = "1"
)

// Config represents the .neurograph/project.yaml configuration file.
type Config struct {
	Version   string         `yaml:"version"`
	ProjectID string         `yaml:"project_id"`
	Analysis  AnalysisConfig `yaml:"analysis"`
}

// AnalysisConfig contains analyzer settings.
type AnalysisConfig struct {
	// Workers is the extraction worker count for the parallel pass.
	Workers int `yaml:"workers"`
	// IncludeDocstrings controls whether docstrings participate in
	// fingerprints.
	IncludeDocstrings bool `yaml:"include_docstrings"`
	// Ignore are path substrings excluded from discovery.
	Ignore []string `yaml:"ignore"`
}

// DefaultProjectConfig returns a config with sensible defaults.
func DefaultProjectConfig(projectID string) *Config {
	return &Config{
		Version:   configVersion,
		ProjectID: projectID,
		Analysis: AnalysisConfig{
			Workers:           4,
			IncludeDocstrings: true,
			Ignore:            analyzer.DefaultIgnorePatterns(),
		},
	}
}

// LoadConfig loads configuration from the specified path or finds
// .neurograph/project.yaml in the current directory. A missing file yields
// defaults keyed by the directory name rather than an error, so analyze
// works without init.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("NEUROGRAPH_CONFIG_PATH")
	}
	if configPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.NewInternalError(
				"Cannot access current directory",
				"Failed to determine working directory",
				"Check that the working directory still exists and is readable.",
				err,
			)
		}
		configPath = filepath.Join(cwd, defaultConfigDir, defaultConfigFile)
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return DefaultProjectConfig(filepath.Base(cwd)), nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.NewConfigError(
			"Cannot read configuration file",
			fmt.Sprintf("Failed to read %s", configPath),
			"Run 'neurograph init' to create a configuration, or pass --config.",
			err,
		)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewConfigError(
			"Invalid configuration file",
			fmt.Sprintf("Failed to parse %s", configPath),
			"Fix the YAML syntax or regenerate the file with 'neurograph init'.",
			err,
		)
	}

	if cfg.ProjectID == "" {
		cwd, _ := os.Getwd()
		cfg.ProjectID = filepath.Base(cwd)
	}
	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = 4
	}
	if cfg.Analysis.Ignore == nil {
		cfg.Analysis.Ignore = analyzer.DefaultIgnorePatterns()
	}
	return &cfg, nil
}

// SaveConfig writes the configuration file, creating the config directory.
func SaveConfig(cfg *Config, dir string) (string, error) {
	configDir := filepath.Join(dir, defaultConfigDir)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	path := filepath.Join(configDir, defaultConfigFile)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

// cacheDir returns the directory holding the project's fingerprint cache.
func cacheDir(root string) string {
	return filepath.Join(root, defaultConfigDir)
}
