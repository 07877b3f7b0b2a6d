package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultRecipeAPIURL = "http://localhost:5000"
	DefaultFetchLimit   = 50

	DriverSQLite = "sqlite"
	DriverFile   = "file"

	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Config holds the configuration for the application.
type Config struct {
	RecipeAPIURL     string
	RecipeAPIKey     string
	RecipeFetchLimit int

	StoreDriver  string
	DatabasePath string
	DataDir      string
	SeedPantry   bool

	LogMode string

	LLMProvider  string
	GeminiAPIKey string
	GroqAPIKey   string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	Port                   string
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	recipeAPIURL := os.Getenv("RECIPE_API_URL")
	if recipeAPIURL == "" {
		recipeAPIURL = DefaultRecipeAPIURL
	}
	recipeAPIURL = strings.TrimRight(recipeAPIURL, "/")

	fetchLimit := DefaultFetchLimit
	if raw := os.Getenv("RECIPE_FETCH_LIMIT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("RECIPE_FETCH_LIMIT must be a positive integer, got %q", raw)
		}
		fetchLimit = n
	}

	storeDriver := os.Getenv("STORE_DRIVER")
	if storeDriver == "" {
		storeDriver = DriverSQLite
	}
	if storeDriver != DriverSQLite && storeDriver != DriverFile {
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverFile, storeDriver)
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = dataDir + "/planner.db"
	}

	seedPantry := true
	if raw := os.Getenv("SEED_PANTRY"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("SEED_PANTRY must be a boolean, got %q", raw)
		}
		seedPantry = b
	}

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}

	// LLM Config (optional, enables plan suggestions and clipping fallback)
	provider := strings.ToLower(os.Getenv("LLM_PROVIDER"))
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	groqAPIKey := os.Getenv("GROQ_API_KEY")
	switch provider {
	case "":
	case ProviderGemini:
		if geminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if groqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", provider)
	}

	allowed, err := parseUserIDs(os.Getenv("TELEGRAM_ALLOW_USER_IDS"))
	if err != nil {
		return nil, err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return &Config{
		RecipeAPIURL:           recipeAPIURL,
		RecipeAPIKey:           os.Getenv("RECIPE_API_KEY"),
		RecipeFetchLimit:       fetchLimit,
		StoreDriver:            storeDriver,
		DatabasePath:           databasePath,
		DataDir:                dataDir,
		SeedPantry:             seedPantry,
		LogMode:                logMode,
		LLMProvider:            provider,
		GeminiAPIKey:           geminiAPIKey,
		GroqAPIKey:             groqAPIKey,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		Port:                   port,
	}, nil
}

// RequireTelegram checks the settings only the bot binary needs.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

func parseUserIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
