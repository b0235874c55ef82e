package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"pparchive/internal/logging"
)

var (
	logger = logging.GetLogger().WithPrefix("config")
)

// ErrExists is returned by Init when the file exists and force is unset.
var ErrExists = errors.New("config file already exists")

// Manager reads and writes a config file
type Manager struct {
	path string
	mu   sync.Mutex
}

// NewManager creates a manager for the config file at path, resolved
// against the working directory.
func NewManager(path string) (*Manager, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	logger.Trace("Current working directory: %s", cwd)

	absPath := path
	if !filepath.IsAbs(path) {
		absPath = filepath.Join(cwd, path)
	}
	logger.Debug("Resolved config path: %s", absPath)
	return &Manager{path: absPath}, nil
}

// DefaultPath is $XDG_CONFIG_HOME/pparchive/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pparchive.yaml"
	}
	return filepath.Join(dir, "pparchive", "config.yaml")
}

// Path returns the resolved file path.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the file over the defaults and applies the environment.
// A missing or empty file yields the defaults.
func (m *Manager) Load() (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := Default()
	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("No config file at %s, using defaults", m.path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	case len(data) == 0:
		logger.Debug("Config file %s is empty, using defaults", m.path)
	default:
		logger.Debug("Parsing config file (%d bytes)", len(data))
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", m.path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Init writes cfg to the file. An existing file is only replaced when
// force is set, after copying it to a timestamped backup.
func (m *Manager) Init(cfg *Config, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.path); err == nil {
		if !force {
			return fmt.Errorf("%w: %s", ErrExists, m.path)
		}
		if err := m.createBackup(); err != nil {
			return fmt.Errorf("failed to back up %s: %w", m.path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	logger.Trace("Writing %d bytes of config", len(data))
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	logger.Info("Wrote config file %s", m.path)
	return nil
}

func (m *Manager) createBackup() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	backupPath := fmt.Sprintf("%s.%s.bak", m.path, time.Now().Format("20060102-150405"))
	logger.Debug("Creating backup: %s", backupPath)
	return os.WriteFile(backupPath, data, 0644)
}
