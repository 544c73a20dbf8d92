package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sarchlab/ocular/config"
	"github.com/sarchlab/ocular/router"
)

func TestLoadDefaultsWithoutEnvFile(t *testing.T) {
	cfg, err := config.Load("does-not-exist.env")
	assert.NoError(t, err)
	assert.Equal(t, router.DefaultConfig().MaxPasses, cfg.MaxPasses)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	os.Setenv("OCULAR_MAX_PASSES", "7")
	os.Setenv("OCULAR_HISTORY_FACTOR", "2.5")
	defer os.Unsetenv("OCULAR_MAX_PASSES")
	defer os.Unsetenv("OCULAR_HISTORY_FACTOR")

	cfg, err := config.Load("does-not-exist.env")
	assert.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxPasses)
	assert.Equal(t, 2.5, cfg.HistoryFactor)
}

func TestLoadIgnoresMalformedValue(t *testing.T) {
	os.Setenv("OCULAR_MAX_PASSES", "not-a-number")
	defer os.Unsetenv("OCULAR_MAX_PASSES")

	cfg, err := config.Load("does-not-exist.env")
	assert.NoError(t, err)
	assert.Equal(t, router.DefaultConfig().MaxPasses, cfg.MaxPasses)
}
