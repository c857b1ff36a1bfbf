package config

import (
	"testing"
	"time"

	"trialmetrics/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "OPENAI_API_KEY", "DEFAULT_ALPHA", "REGISTRY_TIMEOUT", "REGISTRY_PAGE_SIZE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, 20, cfg.Registry.PageSize)
	assert.Equal(t, 0.05, cfg.Analysis.Alpha)
	assert.Equal(t, 0.5, cfg.Analysis.EffectSize)
	assert.Equal(t, "median", cfg.Analysis.CostScenario)
	assert.Equal(t, 365, cfg.Analysis.ForecastHorizon)
	assert.False(t, cfg.AI.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REGISTRY_TIMEOUT", "5s")
	t.Setenv("DEFAULT_EFFECT_SIZE", "0.8")
	t.Setenv("MAX_TOKENS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, 5*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, 0.8, cfg.Analysis.EffectSize)
	assert.Equal(t, 500, cfg.AI.MaxTokens, "unparsable values fall back to the default")
}

func TestLoadRejectsInvalidAlpha(t *testing.T) {
	t.Setenv("DEFAULT_ALPHA", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
