package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
	ProviderMock   = "mock"
)

type Config struct {
	AppEnv  string
	AppName string
	AppPort string

	DBDriver    string
	DatabaseURL string
	DBHost      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPort      int
	SQLitePath  string

	RedisURL              string
	IntentCacheTTLSeconds int

	CORSAllowOrigins []string
	RateLimitRPS     float64
	RateLimitBurst   int

	LLMProvider         string
	GeminiAPIKey        string
	GeminiModel         string
	GeminiBaseURL       string
	GeminiSearchEnabled bool
	OpenAIAPIKey        string
	OpenAIModel         string
	OpenAIBaseURL       string
	ArkAPIKey           string
	ArkModel            string
	ArkBaseURL          string
	AITimeoutSeconds    int

	LogLevel  string
	LogFormat string
}

func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		AppEnv:  getEnv("APP_ENV", "local"),
		AppName: getEnv("APP_NAME", "CIPHER BOT"),
		AppPort: getEnv("APP_PORT", "5000"),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "chatbot_db"),
		DBPort:      getEnvInt("DB_PORT", 5432),
		SQLitePath:  getEnv("SQLITE_PATH", "chatbot.db"),

		RedisURL:              getEnv("REDIS_URL", ""),
		IntentCacheTTLSeconds: getEnvInt("INTENT_CACHE_TTL_SECONDS", 60),

		CORSAllowOrigins: getEnvCSV("CORS_ALLOW_ORIGINS", []string{"*"}),
		RateLimitRPS:     getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 10),

		LLMProvider:         strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiSearchEnabled: getEnvBool("GEMINI_SEARCH_ENABLED", true),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ArkAPIKey:           getEnv("ARK_API_KEY", ""),
		ArkModel:            getEnv("ARK_MODEL", ""),
		ArkBaseURL:          getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		AITimeoutSeconds:    getEnvInt("AI_TIMEOUT_SECONDS", 30),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" && strings.TrimSpace(c.DBHost) == "" {
			return errors.New("DATABASE_URL or DB_HOST is required")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q: use postgres or sqlite", c.DBDriver)
	}

	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI, ProviderMock:
	case ProviderArk:
		if strings.TrimSpace(c.ArkModel) == "" {
			return errors.New("ARK_MODEL is required when LLM_PROVIDER=ark")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q: use gemini, openai, ark or mock", c.LLMProvider)
	}

	if c.AITimeoutSeconds <= 0 {
		return errors.New("AI_TIMEOUT_SECONDS must be positive")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	return nil
}

// PostgresURL returns DATABASE_URL when set, otherwise a URL assembled from
// the individual DB_* variables.
func (c Config) PostgresURL() string {
	if raw := strings.TrimSpace(c.DatabaseURL); raw != "" {
		return raw
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:   "/" + c.DBName,
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	} else if c.DBUser != "" {
		u.User = url.User(c.DBUser)
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}
