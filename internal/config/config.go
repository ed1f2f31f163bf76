// Package config handles configuration loading and validation for Bookshelf.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// BOOKSHELF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"bookshelf/internal/audit"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidYAML     ConfigErrorType = "INVALID_YAML"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidYAML:
		return fmt.Sprintf("invalid YAML in configuration file %s: %s", e.Path, e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// ConfigPathEnvVar overrides the config file location when no path is given.
const ConfigPathEnvVar = "BOOKSHELF_CONFIG"

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "BOOKSHELF_"

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"bookshelf.yaml",
	"bookshelf.yml",
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// WatchConfig controls reloading the catalog when the data file changes on disk.
type WatchConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Debounce time.Duration `koanf:"debounce"`
}

// ServerConfig holds HTTP API settings for `bookshelf serve`.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit"` // Write requests per minute per client; 0 disables
	Metrics         bool          `koanf:"metrics"`    // Serve Prometheus metrics at /metrics
}

// Configuration holds all settings for Bookshelf.
type Configuration struct {
	DataFile string       `koanf:"data_file"`
	Verbose  bool         `koanf:"verbose"`
	Log      LogConfig    `koanf:"log"`
	Audit    audit.Config `koanf:"audit"`
	Watch    WatchConfig  `koanf:"watch"`
	Server   ServerConfig `koanf:"server"`
}

// Default returns a Configuration with sensible defaults.
func Default() *Configuration {
	return &Configuration{
		DataFile: "books.json",
		Verbose:  false,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Audit: audit.DefaultConfig(),
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 500 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RateLimit:       60,
			Metrics:         true,
		},
	}
}

// Validate checks the configuration and returns a ConfigError listing
// every error found. Warnings do not fail validation.
func (c *Configuration) Validate() error {
	result := ValidateConfig(c)
	if result.Valid {
		return nil
	}

	messages := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		messages = append(messages, e.Field+": "+e.Message)
	}
	return &ConfigError{
		Type:    ValidationError,
		Message: strings.Join(messages, "; "),
	}
}

// Load builds the configuration from defaults, the YAML file at filePath and
// the environment. An empty filePath falls back to BOOKSHELF_CONFIG and then
// DefaultConfigPaths; in that case a missing file is not an error.
func Load(filePath string) (*Configuration, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path, err := resolvePath(filePath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &ConfigError{
				Type:    InvalidYAML,
				Path:    path,
				Message: err.Error(),
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Configuration{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &ConfigError{
			Type:    ValidationError,
			Path:    path,
			Message: err.Error(),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolvePath returns the config file to read, or "" when there is none.
func resolvePath(filePath string) (string, error) {
	if filePath != "" {
		if _, err := os.Stat(filePath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", &ConfigError{Type: FileNotFound, Path: filePath}
			}
			return "", &ConfigError{Type: FileNotFound, Path: filePath, Message: err.Error()}
		}
		return filePath, nil
	}

	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", nil
}

// envKeys maps environment variable names to koanf paths.
var envKeys = map[string]string{
	"bookshelf_data_file":               "data_file",
	"bookshelf_verbose":                 "verbose",
	"bookshelf_log_level":               "log.level",
	"bookshelf_log_format":              "log.format",
	"bookshelf_audit_enabled":           "audit.enabled",
	"bookshelf_audit_directory":         "audit.directory",
	"bookshelf_audit_rotation_size":     "audit.rotation_size",
	"bookshelf_watch_enabled":           "watch.enabled",
	"bookshelf_watch_debounce":          "watch.debounce",
	"bookshelf_server_addr":             "server.addr",
	"bookshelf_server_read_timeout":     "server.read_timeout",
	"bookshelf_server_write_timeout":    "server.write_timeout",
	"bookshelf_server_shutdown_timeout": "server.shutdown_timeout",
	"bookshelf_server_rate_limit":       "server.rate_limit",
	"bookshelf_server_metrics":          "server.metrics",
	"bookshelf_server_cors_origins":     "server.cors_origins",
}

// sliceConfigPaths are list settings that arrive from the environment as
// comma-separated strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated string values of list settings.
// Values already loaded as lists from YAML are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps BOOKSHELF_LOG_LEVEL to log.level and so on.
// Unknown variables, including BOOKSHELF_CONFIG, are dropped.
func envTransformFunc(key string) string {
	return envKeys[strings.ToLower(key)]
}
