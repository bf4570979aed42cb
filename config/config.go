// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"go/token"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "neris-schemas.yaml"

// Config is the root configuration structure.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Schemas SchemasConfig `yaml:"schemas"`
	Types   TypesConfig   `yaml:"types"`
	Server  ServerConfig  `yaml:"server"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SourceConfig configures where the OpenAPI description is fetched from.
type SourceConfig struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"` // 0 = no timeout
	UserAgent string        `yaml:"user_agent"`
}

// SchemasConfig configures the persisted schema documents.
type SchemasConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"` // prefix of every document $id
	Dialect string `yaml:"dialect"`  // $schema of every document
}

// TypesConfig configures type generation.
type TypesConfig struct {
	Output                 string `yaml:"output"`
	Package                string `yaml:"package"`
	RootName               string `yaml:"root_name"`
	CombinedOutput         string `yaml:"combined_output,omitempty"` // empty = not written
	CombinedID             string `yaml:"combined_id"`
	AdditionalProperties   bool   `yaml:"additional_properties"`
	UnreachableDefinitions *bool  `yaml:"unreachable_definitions"` // default true
	BannerComment          string `yaml:"banner_comment,omitempty"`
}

// EmitUnreachable reports whether every definition is emitted, not only
// those reachable from the root.
func (t TypesConfig) EmitUnreachable() bool {
	return t.UnreachableDefinitions == nil || *t.UnreachableDefinitions
}

// ServerConfig configures the schema HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WatchConfig configures the schema directory watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node exporter textfile path, empty = disabled
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv creates configuration from defaults and environment variables.
//
// Environment variables:
//
//	NERIS_OPENAPI_URL                  - OpenAPI description URL
//	NERIS_SOURCE_TIMEOUT               - fetch timeout, e.g. 30s (default: none)
//	NERIS_SCHEMAS_DIR                  - schema directory (default: schemas/v1)
//	NERIS_SCHEMAS_BASE_URL             - $id prefix (default: https://schemas.neris.fsri.org/v1)
//	NERIS_TYPES_OUTPUT                 - generated types path (default: types/neris/types.go)
//	NERIS_TYPES_PACKAGE                - generated package name (default: neris)
//	NERIS_TYPES_COMBINED_OUTPUT        - combined document path (default: not written)
//	NERIS_TYPES_ADDITIONAL_PROPERTIES  - allow unknown object fields (default: false)
//	NERIS_SERVER_HOST                  - server host (default: 0.0.0.0)
//	NERIS_SERVER_PORT                  - server port (default: 8080)
//	NERIS_WATCH_DEBOUNCE               - watch quiet period (default: 250ms)
//	NERIS_LOG_LEVEL                    - debug, info, warn, error (default: info)
//	NERIS_LOG_FORMAT                   - json or console (default: console)
//	NERIS_METRICS_TEXTFILE             - metrics textfile path (default: disabled)
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadWithFallback loads path when it exists and falls back to defaults
// plus environment variables otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies NERIS_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("NERIS_OPENAPI_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("NERIS_SOURCE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NERIS_SOURCE_TIMEOUT: %w", err)
		}
		cfg.Source.Timeout = d
	}

	if v := os.Getenv("NERIS_SCHEMAS_DIR"); v != "" {
		cfg.Schemas.Dir = v
	}
	if v := os.Getenv("NERIS_SCHEMAS_BASE_URL"); v != "" {
		cfg.Schemas.BaseURL = v
	}

	if v := os.Getenv("NERIS_TYPES_OUTPUT"); v != "" {
		cfg.Types.Output = v
	}
	if v := os.Getenv("NERIS_TYPES_PACKAGE"); v != "" {
		cfg.Types.Package = v
	}
	if v := os.Getenv("NERIS_TYPES_COMBINED_OUTPUT"); v != "" {
		cfg.Types.CombinedOutput = v
	}
	if v := os.Getenv("NERIS_TYPES_ADDITIONAL_PROPERTIES"); v != "" {
		cfg.Types.AdditionalProperties = parseBool(v)
	}

	if v := os.Getenv("NERIS_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("NERIS_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NERIS_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("NERIS_WATCH_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NERIS_WATCH_DEBOUNCE: %w", err)
		}
		cfg.Watch.Debounce = d
	}

	if v := os.Getenv("NERIS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NERIS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("NERIS_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}

	return nil
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Source.URL == "" {
		cfg.Source.URL = "https://api-test.neris.fsri.org/v1/openapi.yaml"
	}

	if cfg.Schemas.Dir == "" {
		cfg.Schemas.Dir = "schemas/v1"
	}
	if cfg.Schemas.BaseURL == "" {
		cfg.Schemas.BaseURL = "https://schemas.neris.fsri.org/v1"
	}
	if cfg.Schemas.Dialect == "" {
		cfg.Schemas.Dialect = "https://json-schema.org/draft/2020-12/schema"
	}

	if cfg.Types.Output == "" {
		cfg.Types.Output = "types/neris/types.go"
	}
	if cfg.Types.Package == "" {
		cfg.Types.Package = "neris"
	}
	if cfg.Types.RootName == "" {
		cfg.Types.RootName = "NERIS"
	}
	if cfg.Types.CombinedID == "" {
		cfg.Types.CombinedID = "https://schemas.neris.fsri.org/v1/all.json"
	}
	if cfg.Types.UnreachableDefinitions == nil {
		emit := true
		cfg.Types.UnreachableDefinitions = &emit
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 250 * time.Millisecond
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.Source.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source.url must be an absolute http(s) URL, got %q", cfg.Source.URL)
	}
	if cfg.Source.Timeout < 0 {
		return fmt.Errorf("source.timeout must not be negative")
	}

	if !token.IsIdentifier(cfg.Types.Package) || token.IsKeyword(cfg.Types.Package) {
		return fmt.Errorf("types.package must be a valid Go package name, got %q", cfg.Types.Package)
	}
	if !token.IsIdentifier(cfg.Types.RootName) {
		return fmt.Errorf("types.root_name must be a valid Go identifier, got %q", cfg.Types.RootName)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
