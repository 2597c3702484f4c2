package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// WhatsApp Cloud API
	WhatsAppVerifyToken   string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppBaseURL       string

	// MagicLine scheduling provider
	MagicLineBaseURL            string
	MagicLineAPIKey             string
	MagicLineBookableID         int64
	MagicLineTrialOfferConfigID int64
	MagicLineTimeout            time.Duration

	// LLM providers
	GeminiAPIKey  string
	GeminiModelID string
	OpenAIAPIKey  string
	OpenAIModelID string

	// Customer store backend: "memory", "redis" or "postgres"
	CustomerStore string
	RedisAddr     string
	RedisPassword string
	DatabaseURL   string

	// Conversation behaviour
	HistoryLimit   int
	DedupCacheSize int
	TrialDuration  int // appointment duration in minutes
	StudioTimezone string
	StudioName     string
	StudioAddress  string
	StudioHours    string
	StudioOffer    string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppBaseURL:       getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v19.0"),

		MagicLineBaseURL:            strings.TrimRight(getEnv("MAGICLINE_BASE_URL", ""), "/"),
		MagicLineAPIKey:             getEnv("MAGICLINE_API_KEY", ""),
		MagicLineBookableID:         getEnvAsInt64("MAGICLINE_BOOKABLE_ID", 0),
		MagicLineTrialOfferConfigID: getEnvAsInt64("MAGICLINE_TRIAL_OFFER_CONFIG_ID", 0),
		MagicLineTimeout:            getEnvAsDuration("MAGICLINE_TIMEOUT", 10*time.Second),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModelID: getEnv("OPENAI_MODEL_ID", "gpt-4o-mini"),

		CustomerStore: strings.ToLower(strings.TrimSpace(getEnv("CUSTOMER_STORE", "memory"))),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		HistoryLimit:   getEnvAsInt("HISTORY_LIMIT", 12),
		DedupCacheSize: getEnvAsInt("DEDUP_CACHE_SIZE", 1000),
		TrialDuration:  getEnvAsInt("TRIAL_DURATION_MINUTES", 30),
		StudioTimezone: getEnv("STUDIO_TIMEZONE", "Europe/Berlin"),
		StudioName:     getEnv("STUDIO_NAME", "easyfitness EMS Packhof Braunschweig"),
		StudioAddress:  getEnv("STUDIO_ADDRESS", "Schild 11, 38100 Braunschweig"),
		StudioHours:    getEnv("STUDIO_HOURS", "Mo-Fr 9-21 Uhr, Sa 10-16 Uhr"),
		StudioOffer:    getEnv("STUDIO_OFFER", "4 Wochen EMS für nur 99€"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
