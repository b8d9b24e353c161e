package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
	PublicURL      string

	DBHost string
	DBUser string
	DBPass string
	DBName string
	DBPort string

	RedisURL string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	GeminiAPIKey string
	GeminiModel  string

	JWTSecret               string
	JWTTTL                  time.Duration
	RefreshTTL              time.Duration
	AuthRequireConfirmation bool

	RateLimitChat   time.Duration
	RateLimitSignIn time.Duration

	AssetCleanupSchedule string
	AssetOrphanAge       time.Duration

	LogLevel  string
	LogPretty bool
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		PublicURL:      strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBUser: getEnv("DB_USER", "postgres"),
		DBPass: os.Getenv("DB_PASS"),
		DBName: getEnv("DB_NAME", "isf_portal"),
		DBPort: getEnv("DB_PORT", "5432"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "isf_portal"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AssetCleanupSchedule: getEnv("ASSET_CLEANUP_SCHEDULE", "@every 12h"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.JWTTTL, err = parseDuration("JWT_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.RefreshTTL, err = parseDuration("REFRESH_TTL", "720h"); err != nil {
		return nil, err
	}
	if cfg.RateLimitChat, err = parseDuration("RATE_LIMIT_CHAT", "2s"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSignIn, err = parseDuration("RATE_LIMIT_SIGN_IN", "1s"); err != nil {
		return nil, err
	}
	if cfg.AssetOrphanAge, err = parseDuration("ASSET_ORPHAN_AGE", "24h"); err != nil {
		return nil, err
	}
	if cfg.AuthRequireConfirmation, err = parseBool("AUTH_REQUIRE_CONFIRMATION", "false"); err != nil {
		return nil, err
	}
	if cfg.LogPretty, err = parseBool("LOG_PRETTY", strconv.FormatBool(cfg.IsDevelopment())); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "change-me"
	}

	return cfg, nil
}

// ClientConfig configures the terminal portal.
type ClientConfig struct {
	APIURL          string
	StateDir        string
	RefreshSchedule string
	LogLevel        string
}

func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	stateDir := os.Getenv("PORTAL_STATE_DIR")
	if stateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
		stateDir = filepath.Join(base, "isf-portal")
	}

	return &ClientConfig{
		APIURL:          strings.TrimRight(getEnv("PORTAL_API_URL", "http://localhost:8080"), "/"),
		StateDir:        stateDir,
		RefreshSchedule: getEnv("PORTAL_REFRESH_SCHEDULE", "@every 1m"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseBool(key, fallback string) (bool, error) {
	b, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
