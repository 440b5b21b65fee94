package config

import (
	"fmt"
	"log"
	"time"

	"bookflow/models"
	"bookflow/services/scheduling"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	Timezone          string `mapstructure:"TIMEZONE"`

	// MongoDB configuration.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr           string        `mapstructure:"REDIS_ADDR"`
	RedisPassword       string        `mapstructure:"REDIS_PASSWORD"`
	RedisContextDB      int           `mapstructure:"REDIS_CONTEXT_DB"`
	RedisHandoffQueueDB int           `mapstructure:"REDIS_HANDOFF_QUEUE_DB"`
	ContextTTL          time.Duration `mapstructure:"CONTEXT_TTL"`
	// ContextBackend selects where session context lives: redis or memory.
	ContextBackend string `mapstructure:"CONTEXT_BACKEND"`

	// Conversation.
	HistoryLimit   int    `mapstructure:"HISTORY_LIMIT"`
	HandoffMessage string `mapstructure:"HANDOFF_MESSAGE"`
	ApologyMessage string `mapstructure:"APOLOGY_MESSAGE"`

	// LLM configuration.
	LLMProvider   string        `mapstructure:"LLM_PROVIDER"`
	LLMTimeout    time.Duration `mapstructure:"LLM_TIMEOUT"`
	GeminiAPIKey  string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel   string        `mapstructure:"GEMINI_MODEL"`
	OpenAIAPIKey  string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel   string        `mapstructure:"OPENAI_MODEL"`

	// Scheduling system.
	SchedulingBackend      string        `mapstructure:"SCHEDULING_BACKEND"`
	ProviderTimeout        time.Duration `mapstructure:"PROVIDER_TIMEOUT"`
	AvailabilityWindowDays int           `mapstructure:"AVAILABILITY_WINDOW_DAYS"`

	// Domain guard.
	GuardConfinedCategory   string `mapstructure:"GUARD_CONFINED_CATEGORY"`
	GuardConfinedLocationID string `mapstructure:"GUARD_CONFINED_LOCATION_ID"`
	GuardDefaultLocationID  string `mapstructure:"GUARD_DEFAULT_LOCATION_ID"`

	// Hand-off notifications.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	HandoffTopic            string `mapstructure:"HANDOFF_TOPIC"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("TIMEZONE", "America/Santiago")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "bookflow")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CONTEXT_DB", 0)
	viper.SetDefault("REDIS_HANDOFF_QUEUE_DB", 1)
	viper.SetDefault("CONTEXT_TTL", "24h")
	viper.SetDefault("CONTEXT_BACKEND", "redis")
	viper.SetDefault("HISTORY_LIMIT", 40)
	viper.SetDefault("HANDOFF_MESSAGE", "")
	viper.SetDefault("APOLOGY_MESSAGE", "")
	viper.SetDefault("LLM_PROVIDER", "gemini")
	viper.SetDefault("LLM_TIMEOUT", "30s")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "models/gemini-1.5-pro")
	viper.SetDefault("OPENAI_API_KEY", "")
	viper.SetDefault("OPENAI_BASE_URL", "")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("SCHEDULING_BACKEND", "mongo")
	viper.SetDefault("PROVIDER_TIMEOUT", "10s")
	viper.SetDefault("AVAILABILITY_WINDOW_DAYS", 14)
	viper.SetDefault("GUARD_CONFINED_CATEGORY", "")
	viper.SetDefault("GUARD_CONFINED_LOCATION_ID", "")
	viper.SetDefault("GUARD_DEFAULT_LOCATION_ID", "")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	viper.SetDefault("HANDOFF_TOPIC", "operators")
}

// LoadFunnel reads the stage table from the "funnel" key. ok is false when
// the configuration does not declare one.
func LoadFunnel() (def models.FunnelDefinition, ok bool, err error) {
	if !viper.IsSet("funnel") {
		return def, false, nil
	}
	if err := viper.UnmarshalKey("funnel", &def); err != nil {
		return def, false, fmt.Errorf("failed to load funnel: %w", err)
	}
	return def, true, nil
}

// LoadSeed reads the catalog the in-memory scheduling backend starts with.
func LoadSeed() (scheduling.Seed, error) {
	var seed scheduling.Seed
	if !viper.IsSet("seed") {
		return seed, nil
	}
	if err := viper.UnmarshalKey("seed", &seed); err != nil {
		return seed, fmt.Errorf("failed to load seed: %w", err)
	}
	return seed, nil
}

// Location returns the configured time zone, falling back to UTC.
func Location() *time.Location {
	loc, err := time.LoadLocation(AppConfig.Timezone)
	if err != nil {
		log.Printf("Unknown TIMEZONE %q, using UTC", AppConfig.Timezone)
		return time.UTC
	}
	return loc
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
