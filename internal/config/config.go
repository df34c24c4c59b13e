// Package config loads the llm-wire application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	Port          int    `yaml:"port" json:"port"`
	Host          string `yaml:"host" json:"host"`
	Debug         bool   `yaml:"debug" json:"debug"`
	LoggingToFile bool   `yaml:"logging-to-file" json:"logging-to-file"`
	LogDir        string `yaml:"log-dir,omitempty" json:"log-dir,omitempty"`

	// ProvidersDir holds user provider definitions (*.yaml), hot reloaded.
	ProvidersDir string `yaml:"providers-dir" json:"providers-dir"`

	// ProxyURL routes outbound provider requests; http, https and socks5 are supported.
	ProxyURL string `yaml:"proxy-url,omitempty" json:"proxy-url,omitempty"`

	// RequestTimeoutSecs bounds time to response headers; streaming bodies are not cut.
	RequestTimeoutSecs int `yaml:"request-timeout" json:"request-timeout"`

	// MaxLineSize bounds a single stream line in bytes.
	MaxLineSize int `yaml:"max-line-size" json:"max-line-size"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`
}

// CaptureConfig defines SQLite persistence of raw stream transcripts.
type CaptureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// DBPath is the filesystem path to the SQLite database file.
	DBPath string `yaml:"db-path" json:"db-path"`

	// RetentionDays defines how many days of transcripts to keep. Zero keeps everything.
	RetentionDays int `yaml:"retention-days" json:"retention-days"`
}

// NewDefaultConfig creates a new Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Port:               8420,
		Host:               "127.0.0.1",
		ProvidersDir:       "$XDG_CONFIG_HOME/llm-wire/providers",
		RequestTimeoutSecs: 60,
		MaxLineSize:        8 << 20,
		Capture: CaptureConfig{
			DBPath:        "$XDG_CONFIG_HOME/llm-wire/captures.db",
			RetentionDays: 30,
		},
	}
}

// GenerateDefaultConfigYAML renders NewDefaultConfig as YAML.
func GenerateDefaultConfigYAML() []byte {
	data, err := yaml.Marshal(NewDefaultConfig())
	if err != nil {
		return []byte("port: 8420\nproviders-dir: \"$XDG_CONFIG_HOME/llm-wire/providers\"\n")
	}
	return data
}

// LoadConfig reads a YAML configuration file. Absent keys keep their defaults.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing or empty, it returns a default Config.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && (os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if optional && len(strings.TrimSpace(string(data))) == 0 {
		return NewDefaultConfig(), nil
	}

	cfg := NewDefaultConfig()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port %d out of range", c.Port))
	}
	if c.RequestTimeoutSecs < 0 {
		errs = append(errs, errors.New("config: request-timeout must not be negative"))
	}
	if c.MaxLineSize < 0 {
		errs = append(errs, errors.New("config: max-line-size must not be negative"))
	}
	if c.Capture.RetentionDays < 0 {
		errs = append(errs, errors.New("config: capture.retention-days must not be negative"))
	}
	if c.ProxyURL != "" {
		scheme, _, _ := strings.Cut(c.ProxyURL, "://")
		switch strings.ToLower(scheme) {
		case "http", "https", "socks5", "socks5h":
		default:
			errs = append(errs, fmt.Errorf("config: unsupported proxy scheme in %q", c.ProxyURL))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ResolvedProvidersDir expands $XDG_CONFIG_HOME and ~ in ProvidersDir.
func (c *Config) ResolvedProvidersDir() string { return ExpandPath(c.ProvidersDir) }

// ResolvedCaptureDB expands $XDG_CONFIG_HOME and ~ in Capture.DBPath.
func (c *Config) ResolvedCaptureDB() string { return ExpandPath(c.Capture.DBPath) }

// ExpandPath resolves $XDG_CONFIG_HOME (falling back to ~/.config) and a
// leading ~ in path.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.Contains(path, "$XDG_CONFIG_HOME") {
		path = strings.ReplaceAll(path, "$XDG_CONFIG_HOME", xdgConfigHome())
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(path)
}

func xdgConfigHome() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return "."
}

// ConfigDir returns the llm-wire configuration directory.
func ConfigDir() string {
	return filepath.Join(xdgConfigHome(), "llm-wire")
}

// DefaultConfigPath is ConfigDir()/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
