package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvConfigGetString(t *testing.T) {
	os.Setenv("BB_TEST_STRING", "value")
	defer os.Unsetenv("BB_TEST_STRING")

	env := NewEnvConfig("BB")
	assert.Equal(t, "value", env.GetString("TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", env.GetString("TEST_MISSING", "fallback"))
}

func TestEnvConfigMustGetStringPanics(t *testing.T) {
	os.Unsetenv("BB_TEST_REQUIRED")
	env := NewEnvConfig("BB")
	assert.Panics(t, func() { env.MustGetString("TEST_REQUIRED") })
}

func TestEnvConfigGetDuration(t *testing.T) {
	os.Setenv("BB_TEST_DURATION", "5s")
	defer os.Unsetenv("BB_TEST_DURATION")

	env := NewEnvConfig("BB")
	assert.Equal(t, 5*time.Second, env.GetDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, env.GetDuration("TEST_DURATION_MISSING", time.Second))
}

func TestLoadIndexCacheConfigDefaults(t *testing.T) {
	os.Unsetenv("BUNDLEBASE_INDEX_CACHE_SIZE")
	os.Unsetenv("BUNDLEBASE_INDEX_CACHE_BACKEND")

	cfg := LoadIndexCacheConfig("BUNDLEBASE")
	assert.Equal(t, 100, cfg.Capacity)
	assert.Equal(t, IndexCacheMemory, cfg.Backend)
}

func TestLoadIndexCacheConfigOverride(t *testing.T) {
	os.Setenv("BUNDLEBASE_INDEX_CACHE_SIZE", "500")
	os.Setenv("BUNDLEBASE_INDEX_CACHE_BACKEND", "redis")
	defer os.Unsetenv("BUNDLEBASE_INDEX_CACHE_SIZE")
	defer os.Unsetenv("BUNDLEBASE_INDEX_CACHE_BACKEND")

	cfg := LoadIndexCacheConfig("BUNDLEBASE")
	assert.Equal(t, 500, cfg.Capacity)
	assert.Equal(t, IndexCacheRedis, cfg.Backend)
}

func TestValidatorAccumulatesErrors(t *testing.T) {
	v := NewValidator()
	v.RequireString("Name", "")
	v.RequirePositiveInt("Capacity", -1)
	v.RequireOneOf("Backend", "bogus", []string{"memory", "redis"})

	assert.False(t, v.IsValid())
	assert.Len(t, v.Errors(), 3)
	assert.Error(t, v.Validate())
}

func TestValidatorValid(t *testing.T) {
	v := NewValidator()
	v.RequireString("Name", "bundle")
	v.RequirePositiveInt("Capacity", 10)

	assert.True(t, v.IsValid())
	assert.NoError(t, v.Validate())
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"BUNDLEBASE_INDEX_CACHE_SIZE", "BUNDLEBASE_INDEX_CACHE_BACKEND", "BUNDLEBASE_LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 100, cfg.IndexCache.Capacity)
	assert.Equal(t, "info", cfg.Log.Level)
}
