package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configFile = "config.yaml"
	homeEnv    = "TASKSYNC_HOME"
)

// SyncConfig holds sync engine and trigger timings
type SyncConfig struct {
	DebounceDelay  time.Duration `yaml:"debounce_delay" json:"debounce_delay"`   // Wait after pending count changes
	OnlineDelay    time.Duration `yaml:"online_delay" json:"online_delay"`       // Wait after connectivity returns
	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval"`     // Periodic background sync
	ProbeInterval  time.Duration `yaml:"probe_interval" json:"probe_interval"`   // Connectivity probe period
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"` // Per HTTP request
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`         // Periodic sync retries
}

// Config holds user preferences
type Config struct {
	ServerURL     string `yaml:"server_url" json:"server_url"`         // Remote task API
	DBPath        string `yaml:"db_path" json:"db_path"`               // Local SQLite store
	ConfirmDelete bool   `yaml:"confirm_delete" json:"confirm_delete"` // Require confirmation for delete

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging

	Sync SyncConfig `yaml:"sync" json:"sync"`
}

// Dir returns the tasksync home directory ($TASKSYNC_HOME or ~/.tasksync)
func Dir() (string, error) {
	if dir := os.Getenv(homeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tasksync"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	dir, _ := Dir()
	logPath := ""
	dbPath := "tasks.db"
	if dir != "" {
		logPath = filepath.Join(dir, "logs", "tasksync.log")
		dbPath = filepath.Join(dir, "tasks.db")
	}

	return &Config{
		ServerURL:     getEnv("TASKSYNC_SERVER_URL", "http://localhost:3000"),
		DBPath:        dbPath,
		ConfirmDelete: true,
		LogLevel:      getEnv("TASKSYNC_LOG_LEVEL", "INFO"),
		LogFile:       getEnv("TASKSYNC_LOG_FILE", logPath),
		LogConsole:    getEnv("TASKSYNC_LOG_CONSOLE", "false") == "true",
		Sync: SyncConfig{
			DebounceDelay:  5 * time.Second,
			OnlineDelay:    500 * time.Millisecond,
			PollInterval:   15 * time.Minute,
			ProbeInterval:  10 * time.Second,
			RequestTimeout: 30 * time.Second,
			MaxRetries:     3,
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Path returns the location of config.yaml
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load loads config from config.yaml, falling back to defaults when the file
// does not exist.
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment wins over the file for the server URL
	if v := os.Getenv("TASKSYNC_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}

	return cfg, nil
}

// Save saves config to config.yaml
func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
