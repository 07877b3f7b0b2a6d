package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv(t *testing.T) {
	// Clear every variable the loader reads so the host environment does not leak in.
	clearEnv := func(t *testing.T) {
		t.Helper()
		for _, key := range []string{
			"RECIPE_API_URL", "RECIPE_API_KEY", "RECIPE_FETCH_LIMIT", "STORE_DRIVER",
			"DATABASE_PATH", "DATA_DIR", "SEED_PANTRY", "LOG_MODE", "LLM_PROVIDER",
			"GEMINI_API_KEY", "GROQ_API_KEY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_URL",
			"TELEGRAM_ALLOW_USER_IDS", "PORT",
		} {
			t.Setenv(key, "")
		}
	}

	t.Run("Defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:5000", cfg.RecipeAPIURL)
		assert.Equal(t, 50, cfg.RecipeFetchLimit)
		assert.Equal(t, DriverSQLite, cfg.StoreDriver)
		assert.Equal(t, "data", cfg.DataDir)
		assert.Equal(t, "data/planner.db", cfg.DatabasePath)
		assert.True(t, cfg.SeedPantry)
		assert.Equal(t, "development", cfg.LogMode)
		assert.Empty(t, cfg.LLMProvider)
		assert.Equal(t, "8080", cfg.Port)
		assert.Nil(t, cfg.TelegramAllowedUserIDs)
	})

	t.Run("Overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RECIPE_API_URL", "http://recipes.test/")
		t.Setenv("RECIPE_FETCH_LIMIT", "20")
		t.Setenv("STORE_DRIVER", "file")
		t.Setenv("DATA_DIR", "/tmp/planner")
		t.Setenv("SEED_PANTRY", "false")
		t.Setenv("LLM_PROVIDER", "Groq")
		t.Setenv("GROQ_API_KEY", "groq_key")
		t.Setenv("TELEGRAM_ALLOW_USER_IDS", "42, 7")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "http://recipes.test", cfg.RecipeAPIURL)
		assert.Equal(t, 20, cfg.RecipeFetchLimit)
		assert.Equal(t, DriverFile, cfg.StoreDriver)
		assert.Equal(t, "/tmp/planner/planner.db", cfg.DatabasePath)
		assert.False(t, cfg.SeedPantry)
		assert.Equal(t, ProviderGroq, cfg.LLMProvider)
		assert.Equal(t, []int64{42, 7}, cfg.TelegramAllowedUserIDs)
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "gemini")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Equal(t, "GEMINI_API_KEY environment variable not set", err.Error())
	})

	t.Run("MissingGroqAPIKey", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "groq")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Equal(t, "GROQ_API_KEY environment variable not set", err.Error())
	})

	t.Run("InvalidValues", func(t *testing.T) {
		cases := map[string]string{
			"RECIPE_FETCH_LIMIT":      "0",
			"STORE_DRIVER":            "redis",
			"SEED_PANTRY":             "maybe",
			"LLM_PROVIDER":            "openai",
			"TELEGRAM_ALLOW_USER_IDS": "abc",
		}
		for key, value := range cases {
			t.Run(key, func(t *testing.T) {
				clearEnv(t)
				t.Setenv(key, value)
				_, err := NewFromEnv()
				assert.Error(t, err)
			})
		}
	})
}

func TestRequireTelegram(t *testing.T) {
	cfg := &Config{}
	err := cfg.RequireTelegram()
	require.Error(t, err)
	assert.Equal(t, "TELEGRAM_BOT_TOKEN environment variable not set", err.Error())

	cfg.TelegramBotToken = "token"
	err = cfg.RequireTelegram()
	require.Error(t, err)
	assert.Equal(t, "TELEGRAM_WEBHOOK_URL environment variable not set", err.Error())

	cfg.TelegramWebhookURL = "https://bot.test/webhook"
	assert.NoError(t, cfg.RequireTelegram())
}
