package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightball/backend/pkg/config"
)

type serverConfig struct {
	Addr    string `env:"TEST_SERVER_ADDR" envDefault:":8080"`
	Workers int    `env:"TEST_SERVER_WORKERS" envDefault:"4"`
}

type requiredConfig struct {
	Token string `env:"TEST_REQUIRED_TOKEN,required"`
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		var cfg serverConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 4, cfg.Workers)
	})

	t.Run("reads environment", func(t *testing.T) {
		t.Setenv("TEST_ENV_ADDR", ":9090")

		type envConfig struct {
			Addr string `env:"TEST_ENV_ADDR"`
		}
		var cfg envConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":9090", cfg.Addr)
	})

	t.Run("caches per type", func(t *testing.T) {
		t.Setenv("TEST_CACHED_VALUE", "first")

		type cachedConfig struct {
			Value string `env:"TEST_CACHED_VALUE"`
		}
		var first cachedConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("TEST_CACHED_VALUE", "second")
		var second cachedConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Value, "later loads return the first parse")
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[serverConfig](nil), config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}
