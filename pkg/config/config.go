// Package config provides configuration file support for minelab.
// It handles loading, validation, and environment variable interpolation
// for minelab.yaml configuration files.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// Config represents the full minelab configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Cluster   ClusterConfig   `mapstructure:"cluster"`
	Mining    MiningConfig    `mapstructure:"mining"`
	Source    SourceConfig    `mapstructure:"source"`
	Cache     CacheConfig     `mapstructure:"cache"`
	History   HistoryConfig   `mapstructure:"history"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	RateLimit    int           `mapstructure:"rate_limit"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// ClusterConfig holds K-Means defaults.
type ClusterConfig struct {
	Dataset          string `mapstructure:"dataset"`
	K                int    `mapstructure:"k"`
	MaxIterations    int    `mapstructure:"max_iterations"`
	Init             string `mapstructure:"init"`
	Seed             int64  `mapstructure:"seed"`
	Workers          int    `mapstructure:"workers"`
	SweepConcurrency int    `mapstructure:"sweep_concurrency"`
}

// MiningConfig holds rule mining defaults.
type MiningConfig struct {
	Dataset          string  `mapstructure:"dataset"`
	MinSupport       float64 `mapstructure:"min_support"`
	MinConfidence    float64 `mapstructure:"min_confidence"`
	CoOccurrence     string  `mapstructure:"cooccurrence"`
	Seed             int64   `mapstructure:"seed"`
	CatalogueFile    string  `mapstructure:"catalogue_file"`
	TransactionsFile string  `mapstructure:"transactions_file"`
}

// SourceConfig holds point source settings.
type SourceConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	Host       string `mapstructure:"host"`
	Index      string `mapstructure:"index"`
	Collection string `mapstructure:"collection"`
	Namespace  string `mapstructure:"namespace"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Limit      int    `mapstructure:"limit"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	MaxSize int           `mapstructure:"max_size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Tracing TracingConfig `mapstructure:"tracing"`
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Exporter   string  `mapstructure:"exporter"`
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
	Insecure   bool    `mapstructure:"insecure"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 10 << 20,
			RateLimit:    120,
			CORSOrigins:  []string{"*"},
		},
		Cluster: ClusterConfig{
			Dataset:       "blobs",
			K:             3,
			MaxIterations: 100,
			Init:          string(types.InitFirstK),
		},
		Mining: MiningConfig{
			Dataset:       "grocery",
			MinSupport:    0.1,
			MinConfidence: 0.6,
			CoOccurrence:  "synthetic",
			Seed:          1,
		},
		Source: SourceConfig{
			Limit: 1000,
		},
		Cache: CacheConfig{
			Enabled: true,
			MaxSize: 1000,
			TTL:     10 * time.Minute,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "./minelab-data",
		},
		Auth: AuthConfig{
			APIKeys: []string{},
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Telemetry: TelemetryConfig{
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "otlp",
				Endpoint:   "localhost:4317",
				SampleRate: 1.0,
				Insecure:   true,
			},
		},
	}
}

// Load reads configuration from the given viper instance and returns
// a validated Config. Environment variables in string values are
// interpolated using ${VAR} syntax.
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	// Interpolate environment variables in string fields
	interpolateConfig(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads a specific config file and returns a validated Config.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	return Load(v)
}

// Validate checks the configuration for errors and returns a descriptive
// error if any field is invalid.
func Validate(cfg *Config) error {
	var errs []string

	// Server validation
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be between 0 and 65535, got %d", cfg.Server.Port))
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout: must be non-negative")
	}
	if cfg.Server.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout: must be non-negative")
	}
	if cfg.Server.MaxBodyBytes < 0 {
		errs = append(errs, "server.max_body_bytes: must be non-negative")
	}
	if cfg.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit: must be non-negative")
	}

	// Cluster validation
	if cfg.Cluster.K < 0 {
		errs = append(errs, fmt.Sprintf("cluster.k: must be non-negative, got %d", cfg.Cluster.K))
	}
	if cfg.Cluster.MaxIterations < 0 {
		errs = append(errs, fmt.Sprintf("cluster.max_iterations: must be non-negative, got %d", cfg.Cluster.MaxIterations))
	}
	if _, ok := types.ParseInitMode(cfg.Cluster.Init); !ok {
		errs = append(errs, fmt.Sprintf("cluster.init: unsupported mode %q (supported: first-k, kmeans++)", cfg.Cluster.Init))
	}
	if cfg.Cluster.Workers < 0 {
		errs = append(errs, "cluster.workers: must be non-negative")
	}
	if cfg.Cluster.SweepConcurrency < 0 {
		errs = append(errs, "cluster.sweep_concurrency: must be non-negative")
	}

	// Mining validation
	if cfg.Mining.MinSupport < 0 || cfg.Mining.MinSupport > 1 {
		errs = append(errs, fmt.Sprintf("mining.min_support: must be between 0 and 1, got %f", cfg.Mining.MinSupport))
	}
	if cfg.Mining.MinConfidence < 0 || cfg.Mining.MinConfidence > 1 {
		errs = append(errs, fmt.Sprintf("mining.min_confidence: must be between 0 and 1, got %f", cfg.Mining.MinConfidence))
	}
	validPolicies := map[string]bool{"synthetic": true, "transactions": true, "": true}
	if !validPolicies[cfg.Mining.CoOccurrence] {
		errs = append(errs, fmt.Sprintf("mining.cooccurrence: unsupported policy %q (supported: synthetic, transactions)", cfg.Mining.CoOccurrence))
	}
	if cfg.Mining.CoOccurrence == "transactions" && cfg.Mining.TransactionsFile == "" {
		errs = append(errs, "mining.transactions_file: required when mining.cooccurrence is transactions")
	}

	// Source validation
	validBackends := map[string]bool{"file": true, "pinecone": true, "qdrant": true, "": true}
	if !validBackends[cfg.Source.Backend] {
		errs = append(errs, fmt.Sprintf("source.backend: unsupported backend %q (supported: file, pinecone, qdrant)", cfg.Source.Backend))
	}
	if cfg.Source.Limit < 0 {
		errs = append(errs, "source.limit: must be non-negative")
	}

	// Cache validation
	if cfg.Cache.MaxSize < 0 {
		errs = append(errs, "cache.max_size: must be non-negative")
	}
	if cfg.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl: must be non-negative")
	}

	// History validation
	if cfg.History.Enabled && cfg.History.Path == "" {
		errs = append(errs, "history.path: required when history is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level: unsupported level %q (supported: debug, info, warn, error)", cfg.Logging.Level))
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		errs = append(errs, "logging: max_size_mb, max_backups and max_age_days must not be negative")
	}

	// Telemetry validation
	validExporters := map[string]bool{"otlp": true, "stdout": true, "none": true, "": true}
	if !validExporters[cfg.Telemetry.Tracing.Exporter] {
		errs = append(errs, fmt.Sprintf("telemetry.tracing.exporter: unsupported exporter %q (supported: otlp, stdout, none)", cfg.Telemetry.Tracing.Exporter))
	}
	if cfg.Telemetry.Tracing.SampleRate < 0 || cfg.Telemetry.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("telemetry.tracing.sample_rate: must be between 0 and 1, got %f", cfg.Telemetry.Tracing.SampleRate))
	}

	if len(errs) > 0 {
		return errors.Newf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnv replaces ${VAR} and ${VAR:-default} patterns in a string
// with the corresponding environment variable values.
func InterpolateEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		if defaultVal != "" {
			return defaultVal
		}
		return match
	})
}

// interpolateConfig applies environment variable interpolation to all
// string fields in the config.
func interpolateConfig(cfg *Config) {
	cfg.Server.Host = InterpolateEnv(cfg.Server.Host)
	for i, origin := range cfg.Server.CORSOrigins {
		cfg.Server.CORSOrigins[i] = InterpolateEnv(origin)
	}

	cfg.Cluster.Dataset = InterpolateEnv(cfg.Cluster.Dataset)
	cfg.Cluster.Init = InterpolateEnv(cfg.Cluster.Init)

	cfg.Mining.Dataset = InterpolateEnv(cfg.Mining.Dataset)
	cfg.Mining.CoOccurrence = InterpolateEnv(cfg.Mining.CoOccurrence)
	cfg.Mining.CatalogueFile = InterpolateEnv(cfg.Mining.CatalogueFile)
	cfg.Mining.TransactionsFile = InterpolateEnv(cfg.Mining.TransactionsFile)

	cfg.Source.Backend = InterpolateEnv(cfg.Source.Backend)
	cfg.Source.Path = InterpolateEnv(cfg.Source.Path)
	cfg.Source.Host = InterpolateEnv(cfg.Source.Host)
	cfg.Source.Index = InterpolateEnv(cfg.Source.Index)
	cfg.Source.Collection = InterpolateEnv(cfg.Source.Collection)
	cfg.Source.Namespace = InterpolateEnv(cfg.Source.Namespace)
	cfg.Source.APIKey = InterpolateEnv(cfg.Source.APIKey)

	cfg.History.Path = InterpolateEnv(cfg.History.Path)

	for i, key := range cfg.Auth.APIKeys {
		cfg.Auth.APIKeys[i] = InterpolateEnv(key)
	}

	cfg.Logging.Level = InterpolateEnv(cfg.Logging.Level)
	cfg.Logging.File = InterpolateEnv(cfg.Logging.File)

	cfg.Telemetry.Tracing.Exporter = InterpolateEnv(cfg.Telemetry.Tracing.Exporter)
	cfg.Telemetry.Tracing.Endpoint = InterpolateEnv(cfg.Telemetry.Tracing.Endpoint)
}

// GenerateTemplate returns a YAML template string with all available
// configuration options and their defaults, suitable for writing to
// a minelab.yaml file.
func GenerateTemplate() string {
	return `# minelab Configuration
# See: https://github.com/Siddhant-K-code/minelab

server:
  port: 8080
  host: 0.0.0.0
  read_timeout: 30s
  write_timeout: 60s
  max_body_bytes: 10485760
  rate_limit: 120        # requests per minute per IP, 0 disables
  cors_origins:
    - "*"

cluster:
  dataset: blobs         # blobs, iris, random, elongated
  k: 3
  max_iterations: 100
  init: first-k          # first-k or kmeans++
  seed: 0                # k-means++ seed, 0 uses the built-in default
  workers: 0             # 0 uses all CPUs
  sweep_concurrency: 0

mining:
  dataset: grocery       # grocery, ecommerce, bookstore, or a catalogue_file entry
  min_support: 0.1
  min_confidence: 0.6
  cooccurrence: synthetic  # synthetic or transactions
  seed: 1
  catalogue_file: ""     # YAML or TOML catalogues merged over the built-ins
  transactions_file: ""  # JSONL baskets, required for cooccurrence: transactions

source:
  backend: ""            # file, pinecone, or qdrant
  path: ""               # JSONL vectors for the file backend
  host: ""               # required for qdrant
  index: ""              # pinecone index
  collection: ""         # qdrant collection
  namespace: ""
  api_key: ""            # e.g. ${PINECONE_API_KEY}
  use_tls: false         # qdrant only
  limit: 1000

cache:
  enabled: true
  max_size: 1000
  ttl: 10m

history:
  enabled: false
  path: ./minelab-data
  ttl: 0s                # 0 keeps runs forever

auth:
  api_keys:
    # - ${MINELAB_API_KEY}

logging:
  level: info            # debug, info, warn, error
  json: false
  file: ""               # also write JSON logs here, rotated
  max_size_mb: 100
  max_backups: 3
  max_age_days: 0        # 0 keeps old files regardless of age

telemetry:
  tracing:
    enabled: false
    exporter: otlp       # otlp, stdout, or none
    endpoint: localhost:4317
    sample_rate: 1.0     # 0.0 to 1.0
    insecure: true
`
}
