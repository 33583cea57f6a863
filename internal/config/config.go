package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Location *time.Location

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	FitbitClientID     string
	FitbitClientSecret string
	FitbitRedirectURL  string
	FitbitAPIBaseURL   string

	UpstreamTimeout time.Duration
	UpstreamRetries int
	MetricsCacheTTL time.Duration

	Redis    RedisConfig
	Database DatabaseConfig

	RateLimit int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN is empty when no database user is configured; accounts then live in memory.
func (d DatabaseConfig) DSN() string {
	if d.User == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Load reads the environment, optionally seeded from the given .env files.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			log.Printf("[CONFIG] loaded %s", f)
		}
	}

	loc, err := time.LoadLocation(getEnv("TZ", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid TZ: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Location: loc,

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    getDuration("SESSION_TTL", 30*24*time.Hour),
		CookieSecure:  getBool("COOKIE_SECURE", false),

		FitbitClientID:     os.Getenv("FITBIT_CLIENT_ID"),
		FitbitClientSecret: os.Getenv("FITBIT_CLIENT_SECRET"),
		FitbitRedirectURL:  getEnv("FITBIT_REDIRECT_URL", "http://localhost:8080/api/v1/auth/callback"),
		FitbitAPIBaseURL:   getEnv("FITBIT_API_BASE_URL", "https://api.fitbit.com"),

		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		UpstreamRetries: getInt("UPSTREAM_RETRIES", 2),
		MetricsCacheTTL: getDuration("METRICS_CACHE_TTL", 5*time.Minute),

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "fitdash"),
		},

		RateLimit: getInt("RATE_LIMIT", 100),
	}

	return cfg, nil
}

// Validate checks what the API server cannot start without. The CLI only needs a subset.
func (c *Config) Validate() error {
	var missing []string
	if len(c.SessionSecret) < 32 {
		missing = append(missing, "SESSION_SECRET (at least 32 bytes)")
	}
	if c.FitbitClientID == "" {
		missing = append(missing, "FITBIT_CLIENT_ID")
	}
	if c.FitbitClientSecret == "" {
		missing = append(missing, "FITBIT_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
