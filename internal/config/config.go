package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"fotozip/internal/logging"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string

	// Storage backend: "local" (filesystem) or "minio".
	StorageBackend string
	DataDir        string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Upload policy for the stateless compress endpoint and the webhook.
	MaxFilesPerRequest int
	MaxFileSize        int64

	WhatsAppVerifyToken string
	WhatsAppAPIToken    string
	GraphAPIBaseURL     string

	// Files older than RetentionMaxAge are swept every RetentionInterval.
	// A zero max age disables the sweeper.
	RetentionMaxAge   time.Duration
	RetentionInterval time.Duration

	DeleteAfterDownload bool
	DevMode             bool
	CORSAllowedOrigins  []string
}

// LoadConfig loads configuration from environment variables with defaults.
// A .env file in the working directory is honored when present.
func LoadConfig() *Config {
	if err := godotenv.Load(); err == nil {
		logging.Debug("loaded environment from .env file")
	}

	return &Config{
		ServerPort:          GetEnv("SERVER_PORT", "3003"),
		StorageBackend:      GetEnv("STORAGE_BACKEND", "local"),
		DataDir:             GetEnv("DATA_DIR", "./data"),
		MinioEndpoint:       GetEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:      GetEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:      GetEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:         GetEnv("MINIO_BUCKET", "fotozip-archivos"),
		MinioUseSSL:         GetEnv("MINIO_USE_SSL", "false") == "true",
		MaxFilesPerRequest:  getEnvInt("MAX_FILES_PER_REQUEST", 10),
		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 25*1024*1024),
		WhatsAppVerifyToken: GetEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAPIToken:    GetEnv("WHATSAPP_API_TOKEN", ""),
		GraphAPIBaseURL:     GetEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com/v19.0"),
		RetentionMaxAge:     getEnvDuration("RETENTION_MAX_AGE", 0),
		RetentionInterval:   getEnvDuration("RETENTION_INTERVAL", 15*time.Minute),
		DeleteAfterDownload: GetEnv("DELETE_AFTER_DOWNLOAD", "false") == "true",
		DevMode:             GetEnv("DEV_MODE", "false") == "true",
		CORSAllowedOrigins:  splitOrigins(GetEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
}

// GetEnv gets an environment variable with a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logging.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func splitOrigins(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
