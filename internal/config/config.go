package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
)

// DefaultConfigFile is read from the project directory when --config is not given
const DefaultConfigFile = "xroci.toml"

// DefaultDebounce is the watch debounce interval when none is configured
const DefaultDebounce = 300 * time.Millisecond

var logConfig = logger.New("config:config")

// Config represents the xroci configuration file
type Config struct {
	Package  PackageConfig  `toml:"package" json:"package"`
	Registry RegistryConfig `toml:"registry" json:"registry"`
	Watch    WatchConfig    `toml:"watch" json:"watch"`
}

// PackageConfig holds the packaging settings. Empty values fall back to the
// defaults derived from the project.
type PackageConfig struct {
	Name            string `toml:"name" json:"name,omitempty"`
	Version         string `toml:"version" json:"version,omitempty"`
	SourceDir       string `toml:"source_dir" json:"source_dir,omitempty"`
	ArtifactName    string `toml:"artifact_name" json:"artifact_name,omitempty"`
	ArtifactVersion string `toml:"artifact_version" json:"artifact_version,omitempty"`
	BuildDir        string `toml:"build_dir" json:"build_dir,omitempty"`
	MediaType       string `toml:"media_type" json:"media_type,omitempty"`
	ConfigMediaType string `toml:"config_media_type" json:"config_media_type,omitempty"`
}

// RegistryConfig holds the remote repository used by push and pull
type RegistryConfig struct {
	Repository string `toml:"repository" json:"repository,omitempty"`
	PlainHTTP  bool   `toml:"plain_http" json:"plain_http,omitempty"`
	Username   string `toml:"username" json:"username,omitempty"`
	Password   string `toml:"password" json:"-"`
}

// WatchConfig holds the settings of build --watch
type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms,omitempty"`
}

// Debounce returns the configured debounce interval or DefaultDebounce
func (w WatchConfig) Debounce() time.Duration {
	if w.DebounceMs <= 0 {
		return DefaultDebounce
	}
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// LoadFromFile loads configuration from a TOML file. Variable expressions
// (${VAR}) are expanded before the result is validated against the schema.
func LoadFromFile(path string) (*Config, error) {
	logConfig.Printf("Loading configuration: path=%s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadOptional loads path when it exists and returns an empty configuration
// when it does not
func LoadOptional(path string) (*Config, error) {
	cfg, err := LoadFromFile(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		logConfig.Printf("No configuration file at %s, using defaults", path)
		return &Config{}, nil
	}
	return cfg, err
}

// Parse decodes, expands and validates TOML configuration data
func Parse(data []byte) (*Config, error) {
	expanded, err := ExpandRawVariables(data)
	if err != nil {
		return nil, err
	}

	// The schema is checked against the generic document so that unknown keys
	// are reported with their location
	raw := map[string]interface{}{}
	if _, err := toml.Decode(string(expanded), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert configuration: %w", err)
	}
	if err := validateJSONSchema(rawJSON); err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	logConfig.Printf("Configuration loaded: package=%q, registry=%q", cfg.Package.Name, cfg.Registry.Repository)
	return &cfg, nil
}
