package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/config"
)

type schedulerConfig struct {
	Interval    time.Duration `env:"NK_SCAN_INTERVAL" envDefault:"1m"`
	BatchSize   int           `env:"NK_SCAN_BATCH" envDefault:"100"`
	ExpirySweep bool          `env:"NK_SCAN_SWEEP" envDefault:"true"`
}

type senderConfig struct {
	Source  string        `env:"NK_WEBHOOK_SOURCE" envDefault:"notifykit"`
	Timeout time.Duration `env:"NK_WEBHOOK_TIMEOUT" envDefault:"10s"`
}

type cachedConfig struct {
	LockKey string `env:"NK_LOCK_KEY" envDefault:"scan"`
}

type dsnConfig struct {
	DSN string `env:"NK_REQUIRED_DSN,required"`
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("NK_WEBHOOK_SOURCE", "billing")
	t.Setenv("NK_WEBHOOK_TIMEOUT", "3s")

	var cfg senderConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "billing", cfg.Source)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("NK_SCAN_INTERVAL")
	os.Unsetenv("NK_SCAN_BATCH")
	os.Unsetenv("NK_SCAN_SWEEP")

	var cfg schedulerConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, schedulerConfig{Interval: time.Minute, BatchSize: 100, ExpirySweep: true}, cfg)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("NK_REQUIRED_DSN")

	var cfg dsnConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_CachedPerType(t *testing.T) {
	t.Setenv("NK_LOCK_KEY", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("NK_LOCK_KEY", "second")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.LockKey, "later loads return the cached value")
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *senderConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

type EnvFileConfig struct {
	Source string   `env:"NOTIFYKIT_TEST_SOURCE"`
	Events []string `env:"NOTIFYKIT_TEST_EVENTS" envSeparator:","`
}

func TestLoadEnv_File(t *testing.T) {
	os.Unsetenv("NOTIFYKIT_TEST_SOURCE")
	os.Unsetenv("NOTIFYKIT_TEST_EVENTS")
	t.Cleanup(func() {
		os.Unsetenv("NOTIFYKIT_TEST_SOURCE")
		os.Unsetenv("NOTIFYKIT_TEST_EVENTS")
		config.ResetCache()
	})
	config.ResetCache()

	require.NoError(t, config.LoadEnv("testdata/.env.test"))

	var cfg EnvFileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "file-source", cfg.Source)
	assert.Equal(t, []string{"a.b", "c.d"}, cfg.Events)
}

func TestLoadEnv_MissingFile(t *testing.T) {
	err := config.LoadEnv("testdata/does-not-exist.env")
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}

func TestMustLoad_Panics(t *testing.T) {
	os.Unsetenv("NK_REQUIRED_DSN")
	assert.Panics(t, func() {
		var cfg dsnConfig
		config.MustLoad(&cfg)
	})
}
