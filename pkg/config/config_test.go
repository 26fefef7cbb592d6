package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port      int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	LogLevel  string        `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	FlyingTTL time.Duration `env:"TEST_CFG_FLYING_TTL" envDefault:"800ms"`
	Brokers   []string      `env:"TEST_CFG_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 800*time.Millisecond, cfg.FlyingTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_FLYING_TTL", "1s")
	t.Setenv("TEST_CFG_BROKERS", "k1:9092,k2:9092")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.FlyingTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
}

func TestLoad_WithPrefix(t *testing.T) {
	t.Setenv("DTSTORE_TEST_CFG_PORT", "7070")
	t.Setenv("TEST_CFG_PORT", "9999")

	var cfg testConfig
	require.NoError(t, Load(&cfg, WithPrefix("DTSTORE_")))

	assert.Equal(t, 7070, cfg.Port)
}

func TestLoad_WithEnvironment(t *testing.T) {
	t.Setenv("TEST_CFG_LOG_LEVEL", "error")

	var cfg testConfig
	require.NoError(t, Load(&cfg, WithEnvironment(map[string]string{
		"TEST_CFG_PORT": "6060",
	})))

	assert.Equal(t, 6060, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel, "process environment is ignored")
}

type requiredConfig struct {
	Secret string `env:"TEST_CFG_JWT_SECRET,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_RequiredFieldPresent(t *testing.T) {
	t.Setenv("TEST_CFG_JWT_SECRET", "secret-123")

	var cfg requiredConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, "secret-123", cfg.Secret)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
