package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideatrek/authgate/core/config"
)

type testConfig struct {
	Name    string        `env:"AUTHGATE_TEST_NAME" envDefault:"default"`
	Retries int           `env:"AUTHGATE_TEST_RETRIES" envDefault:"2"`
	Timeout time.Duration `env:"AUTHGATE_TEST_TIMEOUT" envDefault:"15s"`
}

type requiredConfig struct {
	Value string `env:"AUTHGATE_TEST_REQUIRED,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config.Reset()
		t.Cleanup(config.Reset)

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "default", cfg.Name)
		assert.Equal(t, 2, cfg.Retries)
		assert.Equal(t, 15*time.Second, cfg.Timeout)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		config.Reset()
		t.Cleanup(config.Reset)
		t.Setenv("AUTHGATE_TEST_NAME", "custom")
		t.Setenv("AUTHGATE_TEST_TIMEOUT", "3s")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "custom", cfg.Name)
		assert.Equal(t, 3*time.Second, cfg.Timeout)
	})

	t.Run("cached per type", func(t *testing.T) {
		config.Reset()
		t.Cleanup(config.Reset)
		t.Setenv("AUTHGATE_TEST_NAME", "first")

		var first testConfig
		require.NoError(t, config.Load(&first))

		require.NoError(t, os.Setenv("AUTHGATE_TEST_NAME", "second"))
		var second testConfig
		require.NoError(t, config.Load(&second))

		assert.Equal(t, "first", second.Name)
	})

	t.Run("missing required variable", func(t *testing.T) {
		config.Reset()
		t.Cleanup(config.Reset)

		var cfg requiredConfig
		assert.Error(t, config.Load(&cfg))
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})

	t.Run("nil target", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[testConfig](nil), config.ErrNilTarget)
	})
}

func TestLoadFiles(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("AUTHGATE_TEST_REQUIRED=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("AUTHGATE_TEST_REQUIRED") })

	require.NoError(t, config.LoadFiles(path))

	var cfg requiredConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from-file", cfg.Value)
}

func TestEnvironment(t *testing.T) {
	t.Parallel()

	assert.True(t, config.IsProduction("production"))
	assert.True(t, config.IsProduction(" PROD "))
	assert.False(t, config.IsProduction(""))
	assert.False(t, config.IsProduction("staging"))

	assert.True(t, config.IsDevelopment("development"))
	assert.True(t, config.IsDevelopment("local"))
	assert.False(t, config.IsDevelopment(""))
	assert.False(t, config.IsDevelopment("production"))
}
