package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Remote object storage (S3-compatible). The remote backend is selected
	// only when all four credential fields are non-empty; otherwise the local
	// backend is used for the process lifetime.
	R2AccountID     string
	R2AccessKeyID   string
	R2SecretKey     string
	R2Bucket        string
	R2PublicBaseURL string

	// Local storage fallback.
	LocalStorageDir string
	LocalURLPrefix  string

	TempDir        string
	MaxUploadBytes int64
	MaxImageWidth  int
	MaxImageHeight int

	ModelAPIBaseURL string
	ModelAPIKey     string
	ModelTimeout    time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		R2AccountID:     os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:   os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretKey:     os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2Bucket:        os.Getenv("R2_BUCKET"),
		R2PublicBaseURL: os.Getenv("R2_PUBLIC_BASE_URL"),

		LocalStorageDir: getEnv("LOCAL_STORAGE_DIR", "./storage"),
		LocalURLPrefix:  getEnv("LOCAL_URL_PREFIX", "/v1/assets"),

		TempDir:        getEnv("TEMP_DIR", os.TempDir()),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 15)) * 1024 * 1024,
		MaxImageWidth:  getEnvInt("MAX_IMAGE_WIDTH", 1024),
		MaxImageHeight: getEnvInt("MAX_IMAGE_HEIGHT", 1024),

		ModelAPIBaseURL: getEnv("MODEL_API_BASE_URL", "https://api.example-models.dev/v1"),
		ModelAPIKey:     os.Getenv("MODEL_API_KEY"),
		ModelTimeout:    time.Second * time.Duration(getEnvInt("MODEL_TIMEOUT_SECONDS", 120)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// RemoteStorageConfigured reports whether every credential needed for the
// remote backend is present. Partial credentials count as not configured.
func (c *Config) RemoteStorageConfigured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
