// Package config handles persistent frametap configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bryanchriswhite/FrameTap/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config holds the capture defaults persisted to disk.
type Config struct {
	LogLevel        string `json:"log_level" yaml:"log_level"`
	LogPretty       bool   `json:"log_pretty" yaml:"log_pretty"`
	FrameIntervalMS int    `json:"frame_interval_ms" yaml:"frame_interval_ms"`
	CaptureCursor   bool   `json:"capture_cursor" yaml:"capture_cursor"`
	Display         int    `json:"display" yaml:"display"`
}

// FrameInterval returns the configured snapshot cadence.
func (c Config) FrameInterval() time.Duration {
	if c.FrameIntervalMS <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

// Manager handles configuration loading and persistence.
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager loads configuration from the given file, or from
// ~/.config/frametap/config.yaml when empty. A missing file is created with
// defaults.
func NewManager(configFile string) (*Manager, error) {
	configPath := configFile
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir := filepath.Join(homeDir, ".config", "frametap")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	m := &Manager{configPath: configPath}
	if err := m.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = getDefaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Str("log_level", m.config.LogLevel).
		Msg("Config loaded")
	return m, nil
}

func getDefaults() *Config {
	return &Config{
		LogLevel:        "info",
		LogPretty:       true,
		FrameIntervalMS: 16,
		CaptureCursor:   false,
		Display:         0,
	}
}

// load reads the configuration from disk.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	m.config = &cfg
	return nil
}

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.config
}

// GetConfigPath returns the path the configuration was loaded from.
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// SetLogLevel overrides the configured log level for this run.
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
}

// SetFrameIntervalMS overrides the snapshot cadence for this run.
func (m *Manager) SetFrameIntervalMS(ms int) {
	m.mu.Lock()
	m.config.FrameIntervalMS = ms
	m.mu.Unlock()
}
