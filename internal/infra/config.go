package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const insecureSessionSecret = "change-me-in-production"

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL   string `env:"DATABASE_URL"`
	PGHost        string `env:"PGHOST" envDefault:"localhost"`
	PGPort        int    `env:"PGPORT" envDefault:"5432"`
	PGUser        string `env:"PGUSER" envDefault:"sthq"`
	PGPassword    string `env:"PGPASSWORD" envDefault:"sthq"`
	PGDatabase    string `env:"PGDATABASE" envDefault:"streamteamhq"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"false"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	// Session
	SessionSecret string        `env:"SESSION_SECRET" envDefault:"change-me-in-production"`
	SessionExpiry time.Duration `env:"SESSION_EXPIRY" envDefault:"168h"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"false"`

	// Twitch
	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET"`
	TwitchRedirectURL  string `env:"TWITCH_REDIRECT_URI" envDefault:"http://localhost:3000/auth/twitch/callback"`
	TwitchAPIURL       string `env:"TWITCH_API_URL" envDefault:"https://api.twitch.tv/helix"`
	TwitchAuthURL      string `env:"TWITCH_AUTH_URL" envDefault:"https://id.twitch.tv/oauth2"`

	// Server
	APIPort     int    `env:"PORT" envDefault:"3000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Engagement
	SalveCooldown time.Duration `env:"SALVE_COOLDOWN" envDefault:"24h"`
	ClipRetention time.Duration `env:"CLIP_RETENTION" envDefault:"168h"`
	AuditLogPath  string        `env:"CARD_AUDIT_LOG" envDefault:"logs/card-audit.log"`
	APIRateLimit  int           `env:"API_RATE_LIMIT" envDefault:"100"`
	APIRateWindow time.Duration `env:"API_RATE_WINDOW" envDefault:"15m"`

	// Kafka
	KafkaBrokers       string        `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled       bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig loads .env when present and parses environment variables into a Config.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	if c.SalveCooldown <= 0 {
		return fmt.Errorf("SALVE_COOLDOWN must be positive, got %s", c.SalveCooldown)
	}
	if c.APIRateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT must not be negative, got %d", c.APIRateLimit)
	}
	if c.APIRateLimit > 0 && c.APIRateWindow <= 0 {
		return fmt.Errorf("API_RATE_WINDOW must be positive when API_RATE_LIMIT is set")
	}
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.SessionSecret == insecureSessionSecret {
		return fmt.Errorf("SESSION_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET is too short (%d chars); minimum 32 characters required", len(c.SessionSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
