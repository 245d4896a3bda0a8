// Package config loads bundlebase's process-wide tunables from environment
// variables, with an optional prefix, following the same EnvConfig shape
// used across the wider codebase this package was adapted from.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig loads configuration values from environment variables under an
// optional prefix (e.g. prefix "BUNDLEBASE" + key "INDEX_CACHE_SIZE" reads
// BUNDLEBASE_INDEX_CACHE_SIZE).
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a new environment configuration loader.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

// GetString retrieves a string value from environment with optional default.
func (ec *EnvConfig) GetString(key, defaultValue string) string {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		return value
	}
	return defaultValue
}

// MustGetString retrieves a required string value from environment or panics.
func (ec *EnvConfig) MustGetString(key string) string {
	fullKey := ec.buildKey(key)
	value := os.Getenv(fullKey)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s not set", fullKey))
	}
	return value
}

// GetInt retrieves an integer value from environment with optional default.
func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetBool retrieves a boolean value from environment with optional default.
func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetDuration retrieves a duration value from environment with optional default.
func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// IndexCacheBackend selects the storage tier behind the index cache.
type IndexCacheBackend string

const (
	IndexCacheMemory IndexCacheBackend = "memory"
	IndexCacheRedis  IndexCacheBackend = "redis"
	IndexCacheBbolt  IndexCacheBackend = "bbolt"
)

// IndexCacheConfig configures the column-index and row-id cache tier (§4.7).
type IndexCacheConfig struct {
	Capacity  int
	Backend   IndexCacheBackend
	RedisAddr string
	BboltPath string
}

// LoadIndexCacheConfig loads index-cache settings from the environment.
func LoadIndexCacheConfig(prefix string) IndexCacheConfig {
	env := NewEnvConfig(prefix)
	return IndexCacheConfig{
		Capacity:  env.GetInt("INDEX_CACHE_SIZE", 100),
		Backend:   IndexCacheBackend(env.GetString("INDEX_CACHE_BACKEND", string(IndexCacheMemory))),
		RedisAddr: env.GetString("INDEX_CACHE_REDIS_ADDR", "localhost:6379"),
		BboltPath: env.GetString("INDEX_CACHE_BBOLT_PATH", "bundlebase_index_cache.db"),
	}
}

// ObjectStoreConfig configures the block/manifest backend when it is
// backed by an S3-compatible object store rather than the local filesystem.
type ObjectStoreConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// LoadObjectStoreConfig loads S3 block-backend settings from the environment.
func LoadObjectStoreConfig(prefix string) ObjectStoreConfig {
	env := NewEnvConfig(prefix)
	return ObjectStoreConfig{
		Bucket:          env.GetString("S3_BUCKET", ""),
		Region:          env.GetString("S3_REGION", "us-east-1"),
		Endpoint:        env.GetString("S3_ENDPOINT", ""),
		AccessKeyID:     env.GetString("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetString("S3_SECRET_ACCESS_KEY", ""),
		UsePathStyle:    env.GetBool("S3_USE_PATH_STYLE", false),
	}
}

// CouchConfig configures the CouchDB-backed document adapter.
type CouchConfig struct {
	URL      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// LoadCouchConfig loads CouchDB adapter settings from the environment.
func LoadCouchConfig(prefix string) CouchConfig {
	env := NewEnvConfig(prefix)
	return CouchConfig{
		URL:      env.GetString("COUCH_URL", "http://localhost:5984"),
		Database: env.GetString("COUCH_DATABASE", ""),
		Username: env.GetString("COUCH_USERNAME", ""),
		Password: env.GetString("COUCH_PASSWORD", ""),
		Timeout:  env.GetDuration("COUCH_TIMEOUT", 30*time.Second),
	}
}

// QueryConfig configures the streaming query engine (C10).
type QueryConfig struct {
	BatchSize    int
	MaxScanFanIn int
}

// LoadQueryConfig loads query-engine settings from the environment.
func LoadQueryConfig(prefix string) QueryConfig {
	env := NewEnvConfig(prefix)
	return QueryConfig{
		BatchSize:    env.GetInt("QUERY_BATCH_SIZE", 2048),
		MaxScanFanIn: env.GetInt("QUERY_MAX_SCAN_FAN_IN", 0),
	}
}

// LogConfig configures process-wide logging.
type LogConfig struct {
	Level  string
	Format string
}

// LoadLogConfig loads logging settings from the environment.
func LoadLogConfig(prefix string) LogConfig {
	env := NewEnvConfig(prefix)
	return LogConfig{
		Level:  env.GetString("LOG_LEVEL", "info"),
		Format: env.GetString("LOG_FORMAT", "text"),
	}
}

// Validator accumulates configuration validation errors.
type Validator struct {
	errors []string
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make([]string, 0)}
}

// RequireString validates that a string field is not empty.
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequirePositiveInt validates that an integer field is positive.
func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

// RequireOneOf validates that a value is one of the allowed options.
func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

// IsValid returns true if there are no validation errors.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []string {
	return v.errors
}

// Validate returns an error summarizing all accumulated validation errors.
func (v *Validator) Validate() error {
	if !v.IsValid() {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(v.errors, "; "))
	}
	return nil
}

// Config aggregates every configuration section bundlebase's core and CLI need.
type Config struct {
	IndexCache  IndexCacheConfig
	ObjectStore ObjectStoreConfig
	Couch       CouchConfig
	Query       QueryConfig
	Log         LogConfig
}

// Load loads and validates the full configuration from the environment,
// using "BUNDLEBASE" as the prefix.
func Load() (*Config, error) {
	cfg := &Config{
		IndexCache:  LoadIndexCacheConfig("BUNDLEBASE"),
		ObjectStore: LoadObjectStoreConfig("BUNDLEBASE"),
		Couch:       LoadCouchConfig("BUNDLEBASE"),
		Query:       LoadQueryConfig("BUNDLEBASE"),
		Log:         LoadLogConfig("BUNDLEBASE"),
	}

	validator := NewValidator()
	validator.RequirePositiveInt("IndexCache.Capacity", cfg.IndexCache.Capacity)
	validator.RequireOneOf("IndexCache.Backend", string(cfg.IndexCache.Backend),
		[]string{string(IndexCacheMemory), string(IndexCacheRedis), string(IndexCacheBbolt)})
	validator.RequirePositiveInt("Query.BatchSize", cfg.Query.BatchSize)
	validator.RequireOneOf("Log.Level", cfg.Log.Level, []string{"debug", "info", "warn", "error"})

	if err := validator.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
