// Package config loads the facetnav service configuration from a YAML file
// with FACETNAV_* environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/echoface/facetnav"
	"github.com/echoface/facetnav/analysis"
	"github.com/echoface/facetnav/util"
)

const envPrefix = "FACETNAV_"

type (
	Config struct {
		Server   ServerConfig   `yaml:"server"`
		Engine   EngineConfig   `yaml:"engine"`
		Index    IndexConfig    `yaml:"index"`
		Analysis AnalysisConfig `yaml:"analysis"`
		Log      LogConfig      `yaml:"log"`
	}

	ServerConfig struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		IdleTimeout  time.Duration `yaml:"idleTimeout"`
		MaxBodyBytes int64         `yaml:"maxBodyBytes"`
		// Metrics expose /metrics
		Metrics bool `yaml:"metrics"`
	}

	EngineConfig struct {
		DisableCache        bool `yaml:"disableCache"`
		DocSetCacheSize     int  `yaml:"docSetCacheSize"`
		FacetCountCacheSize int  `yaml:"facetCountCacheSize"`
		DefaultLimit        int  `yaml:"defaultLimit"`
	}

	IndexConfig struct {
		// Snapshot path of an encoded snapshot, preferred over Dataset
		Snapshot string `yaml:"snapshot"`
		// Dataset path of a YAML document dataset
		Dataset string `yaml:"dataset"`
	}

	AnalysisConfig struct {
		// Synonyms word -> alternatives, made symmetric
		Synonyms map[string][]string `yaml:"synonyms"`
	}

	LogConfig struct {
		Level string `yaml:"level"`
	}

	// ConfigError invalid or missing configuration value
	ConfigError struct {
		Field  string
		Reason string
	}
)

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// Default configuration used for unset values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 1 << 20,
			Metrics:      true,
		},
		Engine: EngineConfig{
			DocSetCacheSize:     1000,
			FacetCountCacheSize: 1000,
			DefaultLimit:        facetnav.DefaultLimit,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load read path over the defaults, then apply environment overrides.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config:%s %w", path, err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config:%s %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv override values from FACETNAV_* variables
func (c *Config) ApplyEnv() error {
	var errs []error
	c.Server.Addr = getEnvOrDefault("ADDR", c.Server.Addr)
	c.Server.ReadTimeout = parseDuration("READ_TIMEOUT", c.Server.ReadTimeout, &errs)
	c.Server.WriteTimeout = parseDuration("WRITE_TIMEOUT", c.Server.WriteTimeout, &errs)
	c.Server.IdleTimeout = parseDuration("IDLE_TIMEOUT", c.Server.IdleTimeout, &errs)
	c.Server.MaxBodyBytes = int64(parseInt("MAX_BODY_BYTES", int(c.Server.MaxBodyBytes), &errs))
	c.Server.Metrics = parseBool("METRICS", c.Server.Metrics, &errs)

	c.Engine.DisableCache = parseBool("DISABLE_CACHE", c.Engine.DisableCache, &errs)
	c.Engine.DocSetCacheSize = parseInt("DOCSET_CACHE_SIZE", c.Engine.DocSetCacheSize, &errs)
	c.Engine.FacetCountCacheSize = parseInt("FACETCOUNT_CACHE_SIZE", c.Engine.FacetCountCacheSize, &errs)
	c.Engine.DefaultLimit = parseInt("DEFAULT_LIMIT", c.Engine.DefaultLimit, &errs)

	c.Index.Snapshot = getEnvOrDefault("SNAPSHOT", c.Index.Snapshot)
	c.Index.Dataset = getEnvOrDefault("DATASET", c.Index.Dataset)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	return errors.Join(errs...)
}

// Validate check values that cannot be defaulted
func (c *Config) Validate() error {
	if len(c.Server.Addr) == 0 {
		return &ConfigError{Field: "server.addr", Reason: "empty"}
	}
	if c.Engine.DocSetCacheSize <= 0 {
		return &ConfigError{Field: "engine.docSetCacheSize", Reason: "must be positive"}
	}
	if c.Engine.FacetCountCacheSize <= 0 {
		return &ConfigError{Field: "engine.facetCountCacheSize", Reason: "must be positive"}
	}
	if c.Engine.DefaultLimit <= 0 {
		return &ConfigError{Field: "engine.defaultLimit", Reason: "must be positive"}
	}
	if _, err := util.ParseLogLevel(strings.ToLower(c.Log.Level)); err != nil {
		return &ConfigError{Field: "log.level", Reason: err.Error()}
	}
	return nil
}

// LogLevel parsed log level, info when invalid
func (c *Config) LogLevel() int {
	level, _ := util.ParseLogLevel(strings.ToLower(c.Log.Level))
	return level
}

// EngineOptions engine options described by the configuration
func (c *Config) EngineOptions() []facetnav.Option {
	opts := []facetnav.Option{
		facetnav.WithDocSetCacheSize(c.Engine.DocSetCacheSize),
		facetnav.WithFacetCountCacheSize(c.Engine.FacetCountCacheSize),
		facetnav.WithDefaultLimit(c.Engine.DefaultLimit),
	}
	if c.Engine.DisableCache {
		opts = append(opts, facetnav.WithoutCache())
	}
	if len(c.Analysis.Synonyms) > 0 {
		opts = append(opts, facetnav.WithSynonyms(analysis.NewMapSynonyms(c.Analysis.Synonyms)))
	}
	return opts
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return defaultValue
}

func parseDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	s := os.Getenv(envPrefix + key)
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		*errs = append(*errs, &ConfigError{Field: envPrefix + key, Reason: err.Error()})
		return defaultValue
	}
	return d
}

func parseInt(key string, defaultValue int, errs *[]error) int {
	s := os.Getenv(envPrefix + key)
	if s == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		*errs = append(*errs, &ConfigError{Field: envPrefix + key, Reason: err.Error()})
		return defaultValue
	}
	return v
}

func parseBool(key string, defaultValue bool, errs *[]error) bool {
	s := os.Getenv(envPrefix + key)
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		*errs = append(*errs, &ConfigError{Field: envPrefix + key, Reason: err.Error()})
		return defaultValue
	}
	return v
}
