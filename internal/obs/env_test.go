package obs

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		expected string
	}{
		{"Empty", "", "<not set>"},
		{"Short", "short", "***"},
		{"Long", "myverylongsecretkey123", "myve...y123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskSecret(tt.secret))
		})
	}
}

func TestGetEnv(t *testing.T) {
	os.Unsetenv("BB_TEST_ENV_KEY")
	assert.Equal(t, "fallback", GetEnv("BB_TEST_ENV_KEY", "fallback"))

	os.Setenv("BB_TEST_ENV_KEY", "set")
	defer os.Unsetenv("BB_TEST_ENV_KEY")
	assert.Equal(t, "set", GetEnv("BB_TEST_ENV_KEY", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("BB_TEST_ENV_INT", "100")
	defer os.Unsetenv("BB_TEST_ENV_INT")
	assert.Equal(t, 100, GetEnvInt("BB_TEST_ENV_INT", 1))

	os.Setenv("BB_TEST_ENV_INT_BAD", "not-a-number")
	defer os.Unsetenv("BB_TEST_ENV_INT_BAD")
	assert.Equal(t, 1, GetEnvInt("BB_TEST_ENV_INT_BAD", 1))

	assert.Equal(t, 5, GetEnvInt("BB_TEST_ENV_INT_MISSING", 5))
}

func TestGetEnvBool(t *testing.T) {
	for _, v := range []string{"true", "1", "yes", "on"} {
		os.Setenv("BB_TEST_ENV_BOOL", v)
		assert.True(t, GetEnvBool("BB_TEST_ENV_BOOL", false), v)
	}
	for _, v := range []string{"false", "0", "no", "off"} {
		os.Setenv("BB_TEST_ENV_BOOL", v)
		assert.False(t, GetEnvBool("BB_TEST_ENV_BOOL", true), v)
	}
	os.Unsetenv("BB_TEST_ENV_BOOL")
	assert.True(t, GetEnvBool("BB_TEST_ENV_BOOL", true))
}

func TestMust(t *testing.T) {
	assert.Equal(t, 42, Must(42, nil))
	assert.Panics(t, func() { Must(0, errors.New("boom")) })
}

func TestMustNoError(t *testing.T) {
	assert.NotPanics(t, func() { MustNoError(nil) })
	assert.Panics(t, func() { MustNoError(errors.New("boom")) })
}

func TestPtrAndPtrValue(t *testing.T) {
	p := Ptr(7)
	assert.Equal(t, 7, *p)
	assert.Equal(t, 7, PtrValue(p))
	assert.Equal(t, 0, PtrValue[int](nil))
}
