package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server" mapstructure:"server"`
	Database DatabaseConfig `yaml:"database" json:"database" mapstructure:"database"`
	Library  LibraryConfig  `yaml:"library" json:"library" mapstructure:"library"`
	Log      LogConfig      `yaml:"log" json:"log" mapstructure:"log"`
}

// ServerConfig represents HTTP API configuration
type ServerConfig struct {
	Host      string `yaml:"host" json:"host" mapstructure:"host"`
	Port      int    `yaml:"port" json:"port" mapstructure:"port"`
	DebugLogs bool   `yaml:"debug_logs" json:"debug_logs" mapstructure:"debug_logs"` // Log every HTTP request
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// LibraryConfig represents the image library configuration
type LibraryConfig struct {
	Root         string   `yaml:"root" json:"root" mapstructure:"root"`                               // Default scan root (empty = none)
	Extensions   []string `yaml:"extensions" json:"extensions" mapstructure:"extensions"`             // Accepted suffixes (empty = built-in defaults)
	Watch        *bool    `yaml:"watch" json:"watch" mapstructure:"watch"`                            // Rescan on filesystem changes under Root
	RescanCron   string   `yaml:"rescan_cron" json:"rescan_cron" mapstructure:"rescan_cron"`          // Cron expression for periodic rescans (empty = off)
	HistoryLimit int      `yaml:"history_limit" json:"history_limit" mapstructure:"history_limit"`    // Scan history rows to keep
	ScanOnStart  bool     `yaml:"scan_on_start" json:"scan_on_start" mapstructure:"scan_on_start"`    // Scan Root (or last path) at startup
}

// LogConfig represents logging configuration with rotation support
type LogConfig struct {
	File       string `yaml:"file" json:"file" mapstructure:"file"`                       // Log file path (empty = console only)
	Level      string `yaml:"level" json:"level" mapstructure:"level"`                    // Log level (debug, info, warn, error)
	MaxSize    int    `yaml:"max_size" json:"max_size" mapstructure:"max_size"`           // Max size in MB before rotation
	MaxAge     int    `yaml:"max_age" json:"max_age" mapstructure:"max_age"`              // Max age in days to keep files
	MaxBackups int    `yaml:"max_backups" json:"max_backups" mapstructure:"max_backups"`  // Max number of old files to keep
	Compress   bool   `yaml:"compress" json:"compress" mapstructure:"compress"`           // Compress old log files
}

// DeepCopy returns a deep copy of the configuration
func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}

	copyCfg := *c

	if c.Library.Watch != nil {
		v := *c.Library.Watch
		copyCfg.Library.Watch = &v
	}
	if c.Library.Extensions != nil {
		copyCfg.Library.Extensions = slices.Clone(c.Library.Extensions)
	}

	return &copyCfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.Log.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		if !slices.Contains(validLevels, c.Log.Level) {
			return fmt.Errorf("log.level must be one of: debug, info, warn, error")
		}
	}

	if c.Log.MaxSize < 0 {
		return fmt.Errorf("log.max_size must be non-negative")
	}
	if c.Log.MaxAge < 0 {
		return fmt.Errorf("log.max_age must be non-negative")
	}
	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_backups must be non-negative")
	}

	if c.Library.HistoryLimit < 0 {
		return fmt.Errorf("library history_limit must be non-negative")
	}

	if c.Library.RescanCron != "" {
		if _, err := cron.ParseStandard(c.Library.RescanCron); err != nil {
			return fmt.Errorf("library rescan_cron is not a valid cron expression: %w", err)
		}
	}

	if c.Library.Watch != nil && *c.Library.Watch && c.Library.Root == "" {
		return fmt.Errorf("library watch requires library root to be set")
	}

	return nil
}

// ChangeCallback represents a function called when configuration changes
type ChangeCallback func(oldConfig, newConfig *Config)

// ConfigGetter represents a function that returns the current configuration
type ConfigGetter func() *Config

// Manager manages configuration state and persistence
type Manager struct {
	current    *Config
	configFile string
	mutex      sync.RWMutex
	callbacks  []ChangeCallback
}

// NewManager creates a new configuration manager
func NewManager(config *Config, configFile string) *Manager {
	return &Manager{
		current:    config,
		configFile: configFile,
	}
}

// GetConfig returns the current configuration (thread-safe)
func (m *Manager) GetConfig() *Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// GetConfigGetter returns a function that provides the current configuration
func (m *Manager) GetConfigGetter() ConfigGetter {
	return m.GetConfig
}

// UpdateConfig updates the current configuration (thread-safe)
func (m *Manager) UpdateConfig(config *Config) error {
	m.mutex.Lock()
	// Take a deep copy of the old config so callbacks get an immutable snapshot
	var oldConfig *Config
	if m.current != nil {
		oldConfig = m.current.DeepCopy()
	}
	m.current = config
	callbacks := make([]ChangeCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mutex.Unlock()

	// Notify callbacks after releasing the lock
	for _, callback := range callbacks {
		callback(oldConfig, config)
	}
	return nil
}

// OnConfigChange registers a callback to be called when configuration changes
func (m *Manager) OnConfigChange(callback ChangeCallback) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ValidateConfigUpdate validates configuration updates with additional restrictions
func (m *Manager) ValidateConfigUpdate(newConfig *Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	m.mutex.RLock()
	currentConfig := m.current
	m.mutex.RUnlock()

	if currentConfig != nil {
		// Listener and storage changes need a process restart.
		if newConfig.Server.Port != currentConfig.Server.Port {
			return fmt.Errorf("server port cannot be changed at runtime - requires restart")
		}
		if newConfig.Database.Path != currentConfig.Database.Path {
			return fmt.Errorf("database path cannot be changed at runtime - requires restart")
		}
	}

	return nil
}

// ReloadConfig reloads configuration from file
func (m *Manager) ReloadConfig() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	viper.SetConfigFile(m.configFile)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", m.configFile, err)
	}

	config := DefaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	m.current = config
	return nil
}

// SaveConfig saves the current configuration to file
func (m *Manager) SaveConfig() error {
	m.mutex.RLock()
	config := m.current
	m.mutex.RUnlock()

	if config == nil {
		return fmt.Errorf("no configuration to save")
	}

	return SaveToFile(config, m.configFile)
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	watch := false

	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8422,
			DebugLogs: false,
		},
		Database: DatabaseConfig{
			Path: "sib.db",
		},
		Library: LibraryConfig{
			Root:         "",
			Extensions:   nil, // Built-in image formats
			Watch:        &watch,
			RescanCron:   "",
			HistoryLimit: 100,
			ScanOnStart:  false,
		},
		Log: LogConfig{
			File:       "", // Empty = console only
			Level:      "info",
			MaxSize:    100, // 100MB max size
			MaxAge:     30,  // Keep for 30 days
			MaxBackups: 10,  // Keep 10 old files
			Compress:   true,
		},
	}
}

// SaveToFile saves a configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("no config file path provided")
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadConfig loads configuration from file and merges with defaults
func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		if configFile != "" {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil, fmt.Errorf("no configuration file found. Please create config.yaml or use --config flag")
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// GetConfigFilePath returns the configuration file path used by viper
func GetConfigFilePath() string {
	return viper.ConfigFileUsed()
}
