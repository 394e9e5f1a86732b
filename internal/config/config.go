package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env            string
	Port           string
	DBDriver       string
	DatabaseURL    string
	JWTSecret      string
	ClientURL      string
	AppIcon        string
	Domain         string
	AllowedOrigins []string
	Location       *time.Location

	SMTP SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// Enabled reports whether an SMTP relay was configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
)

// Load reads the .env file when present and builds the process configuration
// from the environment. The timezone is resolved once here and shared by every
// scheduled job.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:         getenv("APP_ENV", "development"),
		Port:        getenv("PORT", "3000"),
		DBDriver:    getenv("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		ClientURL:   os.Getenv("CLIENT_URL"),
		AppIcon:     os.Getenv("APP_ICON"),
		Domain:      os.Getenv("DOMAIN"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set")
	}

	if cfg.DatabaseURL == "" {
		if cfg.DBDriver != "sqlite" {
			return nil, errors.New("DATABASE_URL environment variable is not set")
		}
		cfg.DatabaseURL = "uptimer.db"
	}

	loc, err := loadLocation(os.Getenv("TIMEZONE"))
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	cfg.AllowedOrigins = allowedOrigins(cfg.ClientURL, os.Getenv("ALLOWED_ORIGINS"))

	smtpPort, err := strconv.Atoi(getenv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.SMTP = SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     smtpPort,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		Sender:   os.Getenv("SENDER_EMAIL"),
	}

	return cfg, nil
}

// IsProduction reports whether the process runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}

	return loc, nil
}

func allowedOrigins(clientURL, extra string) []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL != "" {
		origins = append(origins, clientURL)
	}

	for _, origin := range strings.Split(extra, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return origins
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
