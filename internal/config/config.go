// Copyright 2024 AsyncFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads asyncfs settings from the config directory, with
// embedded defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"asyncfs/internal/artifacts"
)

// Environment variables read by Load.
const (
	EnvConfigDir = "ASYNCFS_CONFIG_DIR"
	EnvBackend   = "ASYNCFS_BACKEND"
	EnvLogLevel  = "ASYNCFS_LOG_LEVEL"
)

// Backend names accepted in settings.
const (
	BackendAuto     = "auto"
	BackendReactor  = "reactor"
	BackendParallel = "parallel"
	BackendBlocking = "blocking"
)

// Worker modes for the parallel backend.
const (
	WorkerModeThread  = "thread"
	WorkerModeProcess = "process"
)

// ConfigDir returns the config directory path.
// Uses ASYNCFS_CONFIG_DIR if set, otherwise defaults to ~/.asyncfs.
// This is computed dynamically to support test isolation.
func ConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".asyncfs")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(ConfigDir(), "settings.yaml")
}

// Settings are the knobs of the default driver.
type Settings struct {
	Backend        string `yaml:"backend"`         // auto, reactor, parallel, blocking (default: auto)
	CacheTTL       string `yaml:"cache_ttl"`       // Go duration; "0" disables the stat cache
	Workers        int    `yaml:"workers"`         // parallel backend pool size, 0 = default
	WorkerMode     string `yaml:"worker_mode"`     // thread or process (default: thread)
	ReactorThreads int64  `yaml:"reactor_threads"` // concurrent native requests per loop
	RetryAttempts  uint   `yaml:"retry_attempts"`  // delivery attempts for stateless tasks
	LogLevel       string `yaml:"log_level"`       // trace, debug, info, warn, off (default: off)
}

// ApplyDefaults fills zero-value fields with their defaults.
func (s *Settings) ApplyDefaults() {
	if s.Backend == "" {
		s.Backend = BackendAuto
	}
	if s.CacheTTL == "" {
		s.CacheTTL = "3s"
	}
	if s.WorkerMode == "" {
		s.WorkerMode = WorkerModeThread
	}
	if s.RetryAttempts == 0 {
		s.RetryAttempts = 3
	}
}

// Validate rejects unknown backends, worker modes and malformed TTLs.
func (s *Settings) Validate() error {
	switch s.Backend {
	case BackendAuto, BackendReactor, BackendParallel, BackendBlocking:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	switch s.WorkerMode {
	case WorkerModeThread, WorkerModeProcess:
	default:
		return fmt.Errorf("unknown worker mode %q", s.WorkerMode)
	}
	if _, err := s.TTL(); err != nil {
		return err
	}
	return nil
}

// TTL parses CacheTTL. A bare "0" is accepted.
func (s *Settings) TTL() (time.Duration, error) {
	if s.CacheTTL == "0" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(s.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache_ttl %q: %w", s.CacheTTL, err)
	}
	return ttl, nil
}

// loadDefaultSettings parses default settings from the embedded artifact.
func loadDefaultSettings() Settings {
	var settings Settings
	if err := yaml.Unmarshal(artifacts.Settings, &settings); err != nil {
		panic("failed to parse embedded settings: " + err.Error())
	}
	return settings
}

// Load reads settings.yaml from the config directory, falling back to the
// embedded defaults when it does not exist, then applies environment
// overrides.
func Load() (*Settings, error) {
	settings := loadDefaultSettings()

	data, err := os.ReadFile(SettingsPath())
	switch {
	case err == nil:
		settings = Settings{}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", SettingsPath(), err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if v := os.Getenv(EnvBackend); v != "" {
		settings.Backend = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		settings.LogLevel = v
	}
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// InitConfigDir creates the config directory and writes the default
// settings file if none exists.
func InitConfigDir() error {
	if err := os.MkdirAll(ConfigDir(), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path := SettingsPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, artifacts.Settings, 0600); err != nil {
			return fmt.Errorf("failed to create default settings: %w", err)
		}
	}
	return nil
}

// Save writes settings to settings.yaml.
func Save(settings *Settings) error {
	if err := os.MkdirAll(ConfigDir(), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	header := []byte("# AsyncFS settings\n# See: asyncfs --help\n\n")
	return os.WriteFile(SettingsPath(), append(header, data...), 0600)
}
