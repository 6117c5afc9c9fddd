package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// FormatFullCalendar reshapes event lists for the FullCalendar widget.
const FormatFullCalendar = "fullcalendar"

const (
	defaultAppName    = "gcal-connect-api"
	defaultPort       = "8080"
	callbackPath      = "/oauth2callback"
	defaultSessionTTL = 2 * time.Hour
)

// Config holds everything the server and CLI read from the environment.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	AppName            string
	AppURL             string
	CalendarFormat     string

	DatabaseURL   string
	JWTSecret     string
	EncryptionKey string
	Port          string

	AllowedOrigins []string
	RunMigrations  bool
	RedisURL       string

	SessionTTL           time.Duration
	TokenRefreshInterval time.Duration
	TokenRefreshWindow   time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env is optional; in production the variables come from the platform.
	_ = godotenv.Load()

	cfg := &Config{
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppURL:             strings.TrimRight(os.Getenv("APP_URL"), "/"),
		CalendarFormat:     strings.ToLower(strings.TrimSpace(os.Getenv("CALENDAR_FORMAT"))),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET_KEY"),
		EncryptionKey:      os.Getenv("ENCRYPTION_KEY"),
		Port:               getEnv("API_PORT", defaultPort),
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
		RunMigrations:      strings.EqualFold(os.Getenv("RUN_MIGRATIONS"), "true"),
		RedisURL:           os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.TokenRefreshInterval, err = getDuration("TOKEN_REFRESH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TokenRefreshWindow, err = getDuration("TOKEN_REFRESH_WINDOW", 10*time.Minute); err != nil {
		return nil, err
	}

	if cfg.CalendarFormat != "" && cfg.CalendarFormat != FormatFullCalendar {
		return nil, fmt.Errorf("CALENDAR_FORMAT must be empty or %q, got %q", FormatFullCalendar, cfg.CalendarFormat)
	}

	return cfg, nil
}

// Validate checks the variables the HTTP server cannot start without.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"GOOGLE_CLIENT_ID", c.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", c.GoogleClientSecret},
		{"APP_URL", c.AppURL},
		{"DATABASE_URL", c.DatabaseURL},
		{"JWT_SECRET_KEY", c.JWTSecret},
		{"ENCRYPTION_KEY", c.EncryptionKey},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s environment variable is not set", r.name)
		}
	}
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be 32 bytes (AES-256)")
	}
	return nil
}

// RedirectURL is the OAuth callback registered with Google.
func (c *Config) RedirectURL() string {
	return c.AppURL + callbackPath
}

// OAuthConfig builds the Google OAuth2 client configuration.
func (c *Config) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  c.RedirectURL(),
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
