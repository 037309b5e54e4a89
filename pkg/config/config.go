package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	// Storage
	DBDriver    string // "postgres", "mysql" or "sqlite"
	DatabaseURL string

	// Security
	JWTSecret            string
	JWTAccessExpiry      time.Duration
	EncryptionKey        string
	InboundWebhookSecret string

	// AI extraction
	AIProvider            string
	GeminiApiKey          string
	GeminiModel           string
	OllamaBaseURL         string
	OllamaModel           string
	ExtractionTimeout     time.Duration
	ExtractionMaxAttempts int
	AreaKeywordsFile      string

	// Outbound delivery
	WebhookDefaultURL    string
	WebhookRetryAttempts int
	WebhookTimeout       time.Duration
	WebhookBaseDelay     time.Duration
	ExportHTTPTimeout    time.Duration

	// Google Cloud (Pub/Sub import events, FCM push)
	GoogleProjectID     string
	GoogleCredentials   string
	PubSubSubscription  string
	FirebaseCredentials string

	// Chroma vector index
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	// Cloud recording import
	CloudImportEnabled      bool
	CloudImportBaseURL      string
	CloudImportTokenURL     string
	CloudImportClientID     string
	CloudImportClientSecret string
	CloudImportOwnerUserID  string
	CloudImportChannelID    string
	CloudImportInterval     time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		GinMode:   getEnv("GIN_MODE", "release"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL: getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=meetyai port=5432 sslmode=disable"),

		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:      getDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
		EncryptionKey:        getEnv("ENCRYPTION_KEY", ""),
		InboundWebhookSecret: getEnv("INBOUND_WEBHOOK_SECRET", ""),

		AIProvider:            getEnv("AI_PROVIDER", "auto"),
		GeminiApiKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaBaseURL:         getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:           getEnv("OLLAMA_MODEL", "llama3"),
		ExtractionTimeout:     getDuration("EXTRACTION_TIMEOUT", 2*time.Minute),
		ExtractionMaxAttempts: getInt("EXTRACTION_MAX_ATTEMPTS", 3),
		AreaKeywordsFile:      getEnv("AREA_KEYWORDS_FILE", ""),

		WebhookDefaultURL:    getEnv("WEBHOOK_DEFAULT_URL", ""),
		WebhookRetryAttempts: getInt("WEBHOOK_RETRY_ATTEMPTS", 3),
		WebhookTimeout:       getDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookBaseDelay:     getDuration("WEBHOOK_BASE_DELAY", 2*time.Second),
		ExportHTTPTimeout:    getDuration("EXPORT_HTTP_TIMEOUT", 15*time.Second),

		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCredentials:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		PubSubSubscription:  getEnv("PUBSUB_SUBSCRIPTION", "recording-events-sub"),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		CloudImportEnabled:      getBool("CLOUD_IMPORT_ENABLED", false),
		CloudImportBaseURL:      getEnv("CLOUD_IMPORT_BASE_URL", "https://api.zoom.us/v2"),
		CloudImportTokenURL:     getEnv("CLOUD_IMPORT_TOKEN_URL", "https://zoom.us/oauth/token"),
		CloudImportClientID:     getEnv("CLOUD_IMPORT_CLIENT_ID", ""),
		CloudImportClientSecret: getEnv("CLOUD_IMPORT_CLIENT_SECRET", ""),
		CloudImportOwnerUserID:  getEnv("CLOUD_IMPORT_OWNER_USER_ID", ""),
		CloudImportChannelID:    getEnv("CLOUD_IMPORT_CHANNEL_ID", ""),
		CloudImportInterval:     getDuration("CLOUD_IMPORT_INTERVAL", 15*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
