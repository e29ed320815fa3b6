package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const defaultServerURL = "http://localhost:8000"

// Config represents application configuration
type Config struct {
	ServerURL             string `json:"server_url"`
	LogLevel              string `json:"log_level"` // debug, info, warn, error, none
	LogPath               string `json:"-"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	DisableAnimations     bool   `json:"disable_animations"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "tienda")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "tienda")
	case "darwin":
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "Library", "Application Support", "tienda")
	default:
		if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
			return filepath.Join(xdg, "tienda")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "tienda")
	}
}

// Dir returns the directory holding the config file, session credentials
// and the default log file.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv("TIENDA_CONFIG_DIR")); dir != "" {
		return dir
	}
	return defaultConfigDir()
}

// Path returns the location of the config file.
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// DefaultLogPath returns the default log file location.
func DefaultLogPath() string {
	return filepath.Join(Dir(), "tienda.log")
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		ServerURL:             defaultServerURL,
		LogLevel:              "info",
		LogPath:               DefaultLogPath(),
		RequestTimeoutSeconds: 30,
	}
}

// Load reads the config file at path. A missing file is not an error; the
// defaults are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if strings.TrimSpace(cfg.ServerURL) == "" {
		cfg.ServerURL = defaultServerURL
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = 30
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogPath()
	}

	return cfg, nil
}

// Save writes the config to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
