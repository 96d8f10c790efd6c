package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"qqbot-service/internal/gateway"
	"qqbot-service/internal/qqbot"
	"qqbot-service/internal/token"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AppID          string
	ClientSecret   string
	APIBaseURL     string
	TokenURL       string
	Markdown       bool
	Intents        int
	AutoReply      string
	RedisAddr      string
	RedisPassword  string
	MediaCacheSize int
	LogLevel       string
	HTTPTimeout    time.Duration
	GatewayEnabled bool
}

// Load reads configuration from a .env file, if present, and environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		AppID:          getEnv("QQBOT_APP_ID", ""),
		ClientSecret:   getEnv("QQBOT_CLIENT_SECRET", ""),
		APIBaseURL:     getEnv("QQBOT_API_BASE_URL", qqbot.DefaultBaseURL),
		TokenURL:       getEnv("QQBOT_TOKEN_URL", token.DefaultTokenURL),
		Markdown:       getEnvAsBool("QQBOT_MARKDOWN", false),
		Intents:        getEnvAsInt("QQBOT_INTENTS", gateway.DefaultIntents),
		AutoReply:      getEnv("QQBOT_AUTO_REPLY", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		MediaCacheSize: getEnvAsInt("MEDIA_CACHE_SIZE", 1000),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HTTPTimeout:    time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		GatewayEnabled: getEnvAsBool("GATEWAY_ENABLED", true),
	}

	if cfg.AppID == "" {
		return nil, fmt.Errorf("QQBOT_APP_ID environment variable is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("QQBOT_CLIENT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
