package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouterBaseURL)
	assert.Equal(t, "google/gemini-2.0-flash-001", cfg.ChatModel)
	assert.Equal(t, 3, cfg.AIMaxAttempts)
	assert.Equal(t, time.Second, cfg.AIBackoffInitial)
	assert.Equal(t, 10*time.Second, cfg.AIBackoffMax)
}

func TestLoadKeyPool(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEYS", "sk-a, sk-b,sk-c")
	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.OpenRouterAPIKeys, 3)
	// env separator does not trim spaces; the client trims at construction
	assert.Equal(t, "sk-a", cfg.OpenRouterAPIKeys[0])
}

func TestEnvHelpers(t *testing.T) {
	tests := []struct {
		env    string
		isDev  bool
		isProd bool
		isTest bool
	}{
		{"dev", true, false, false},
		{"PROD", false, true, false},
		{"test", false, false, true},
		{"staging", false, false, false},
	}
	for _, tt := range tests {
		c := Config{AppEnv: tt.env}
		assert.Equal(t, tt.isDev, c.IsDev(), tt.env)
		assert.Equal(t, tt.isProd, c.IsProd(), tt.env)
		assert.Equal(t, tt.isTest, c.IsTest(), tt.env)
	}
}

func TestAIBackoffTestMode(t *testing.T) {
	c := Config{AppEnv: "test", AIBackoffInitial: time.Second, AIBackoffMax: 10 * time.Second, AIBackoffMultiplier: 2.0}
	initial, max, mult := c.AIBackoff()
	assert.Less(t, initial, 100*time.Millisecond)
	assert.LessOrEqual(t, max, time.Second)
	assert.Equal(t, 2.0, mult)
}
