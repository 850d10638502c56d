package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	// Server configuration (health/metrics listener in interval mode)
	Server ServerConfig `env:",prefix=SERVER_"`

	// Database configuration
	Database DatabaseConfig `env:",prefix=DB_"`

	// Application configuration
	App AppConfig `env:",prefix=APP_"`

	// Source configuration
	Sources SourceConfig `env:",prefix=SOURCE_"`

	// Notification configuration
	Notify NotifyConfig `env:",prefix=NOTIFY_"`

	// Reward inference configuration
	Rewards RewardConfig `env:",prefix=REWARD_"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string `env:"PORT,default=8080"`
	Host         string `env:"HOST,default=0.0.0.0"`
	ReadTimeout  int    `env:"READ_TIMEOUT,default=30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT,default=30"` // seconds
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=postgres"`
	Password string `env:"PASSWORD,default=postgres"`
	Name     string `env:"NAME,default=shift_codes"`
	SSLMode  string `env:"SSL_MODE,default=disable"`
	MaxConns int    `env:"MAX_CONNS,default=10"`
	MinConns int    `env:"MIN_CONNS,default=2"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogFormat   string `env:"LOG_FORMAT,default=console"` // "console" or "json"
	// RunInterval > 0 switches the watcher into long-running mode: runs
	// repeat on this interval and the health/metrics server is started.
	// Zero means run once and exit.
	RunInterval time.Duration `env:"RUN_INTERVAL,default=0"`
	// SummaryPath is where the per-run summary JSON is written. Empty
	// disables the file.
	SummaryPath string `env:"SUMMARY_PATH,default=metrics.json"`
}

// SourceConfig holds source collaborator configuration
type SourceConfig struct {
	// HTMLURLs are pages scanned for codes, one source per URL.
	HTMLURLs []string `env:"HTML_URLS"`
	// RedditSubs are subreddits scanned for codes, one source per
	// subreddit. Empty disables the Reddit channel.
	RedditSubs   []string      `env:"REDDIT_SUBS"`
	Timeout      time.Duration `env:"TIMEOUT,default=20s"`
	ContextLimit int           `env:"CONTEXT_LIMIT,default=2500"` // bytes of page text kept as context
}

// NotifyConfig holds notification delivery configuration
type NotifyConfig struct {
	// WebhookURLs are the configured destinations; empty disables delivery.
	WebhookURLs []string `env:"WEBHOOK_URLS"`
	// Threshold is the maximum batch size still notified per code;
	// larger batches collapse into a single summary. Zero forces
	// summary-only behavior for any non-empty batch.
	Threshold   int           `env:"THRESHOLD,default=5"`
	MaxAttempts int           `env:"MAX_ATTEMPTS,default=3"`
	BackoffBase time.Duration `env:"BACKOFF_BASE,default=2s"`
	// MinInterval spaces consecutive messages to one destination.
	MinInterval time.Duration `env:"MIN_INTERVAL,default=500ms"`
	// SampleSize caps how many codes a summary message lists.
	SampleSize int           `env:"SAMPLE_SIZE,default=5"`
	Timeout    time.Duration `env:"TIMEOUT,default=15s"`
	RedeemURL  string        `env:"REDEEM_URL,default=https://shift.gearboxsoftware.com/rewards"`
}

// RewardConfig holds the keyword priority list for reward inference.
type RewardConfig struct {
	// Keywords are entries of the form "category=phrase;phrase". Entry
	// order is match priority: the first category with any matching
	// phrase wins, which is also the tie-break for overlapping phrases
	// ("golden key" before a bare "key"). Empty uses the built-in list.
	Keywords []string `env:"KEYWORDS"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// GetDatabaseURL returns the PostgreSQL connection URL
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if running in development environment
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}
