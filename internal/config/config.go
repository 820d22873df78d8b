package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// HTTP server
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":4001"`
	Environment string `env:"ENVIRONMENT" envDefault:"production"` // "production" or "staging"

	// OneDrive / Microsoft identity
	ClientID     string `env:"CLIENT_ID,required"`
	ClientSecret string `env:"CLIENT_SECRET,required"`
	RedirectURI  string `env:"REDIRECT_URI" envDefault:"http://localhost:4001/auth/callback"`
	Scope        string `env:"OAUTH_SCOPE" envDefault:"files.readwrite.all offline_access"`
	AuthBaseURL  string `env:"AUTH_BASE_URL" envDefault:"https://login.microsoftonline.com/consumers/oauth2/v2.0"`
	GraphBaseURL string `env:"GRAPH_BASE_URL" envDefault:"https://graph.microsoft.com/v1.0"`

	// Optional seed tokens so the service survives a restart without a new login
	AccessToken  string `env:"ONEDRIVE_ACCESS_TOKEN"`
	RefreshToken string `env:"ONEDRIVE_REFRESH_TOKEN"`

	// Conversion
	Workers       int           `env:"CONVERT_WORKERS" envDefault:"4"`
	RenderTimeout time.Duration `env:"RENDER_TIMEOUT" envDefault:"45s"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	// Daily batch
	BatchSchedule string `env:"BATCH_SCHEDULE" envDefault:"0 22 * * *"`
	BatchTimezone string `env:"BATCH_TIMEZONE" envDefault:"America/Bogota"`

	// Conversion history
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/conversions.db"`

	// Telegram notifications (optional)
	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// TelegramEnabled returns true if batch notifications are configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Staging returns true when diagnostic detail may be exposed in responses
func (c *Config) Staging() bool {
	return c.Environment == "staging"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("CONVERT_WORKERS must be at least 1, got %d", cfg.Workers)
	}
	if _, err := time.LoadLocation(cfg.BatchTimezone); err != nil {
		return nil, fmt.Errorf("invalid BATCH_TIMEZONE %q: %w", cfg.BatchTimezone, err)
	}

	return cfg, nil
}
