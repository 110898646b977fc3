package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env          string        `env:"ENV" env-default:"DEV"`
	DiscordToken string        `env:"SPICE_MODLOG_DISCORD_TOKEN" env-required:"true"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" env-default:"5s"`
	MetricsAddr  string        `env:"METRICS_ADDR" env-default:":9090"`

	Modlog ModlogConfig
	GCP    GCPConfig
}

type ModlogConfig struct {
	// AuditLookback is how many recent audit entries a correlation scans.
	AuditLookback            int           `env:"AUDIT_LOOKBACK" env-default:"5"`
	MessageCacheSize         int           `env:"MESSAGE_CACHE_SIZE" env-default:"5000"`
	MemberLeaveDelay         time.Duration `env:"MEMBER_LEAVE_DELAY" env-default:"5s"`
	InviteRefreshInterval    time.Duration `env:"INVITE_REFRESH_INTERVAL" env-default:"5m"`
	InviteRefreshConcurrency int           `env:"INVITE_REFRESH_CONCURRENCY" env-default:"4"`
	// InviteRefreshRate is the number of invite fetches allowed per second.
	InviteRefreshRate float64 `env:"INVITE_REFRESH_RATE" env-default:"2"`
}

type GCPConfig struct {
	ProjectID    string `env:"GCP_PROJECT_ID"`
	ClientEmail  string `env:"GCP_CLIENT_EMAIL"`
	ClientID     string `env:"GCP_CLIENT_ID"`
	PrivateKeyID string `env:"GCP_PRIVATE_KEY_ID"`
	PrivateKey   string `env:"GCP_PRIVATE_KEY"`
}

// Load reads an optional .env file into the environment, then the
// environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

func (c *Config) IsProd() bool {
	return strings.ToUpper(c.Env) == "PROD"
}

func (c *Config) Validate() error {
	switch {
	case c.Modlog.AuditLookback < 1 || c.Modlog.AuditLookback > 100:
		return fmt.Errorf("AUDIT_LOOKBACK must be between 1 and 100, got %d", c.Modlog.AuditLookback)
	case c.Modlog.MessageCacheSize < 1:
		return fmt.Errorf("MESSAGE_CACHE_SIZE must be positive, got %d", c.Modlog.MessageCacheSize)
	case c.Modlog.InviteRefreshInterval <= 0:
		return errors.New("INVITE_REFRESH_INTERVAL must be positive")
	case c.Modlog.InviteRefreshConcurrency < 1:
		return fmt.Errorf("INVITE_REFRESH_CONCURRENCY must be positive, got %d", c.Modlog.InviteRefreshConcurrency)
	case c.Modlog.InviteRefreshRate <= 0:
		return errors.New("INVITE_REFRESH_RATE must be positive")
	case c.Modlog.MemberLeaveDelay < 0:
		return errors.New("MEMBER_LEAVE_DELAY must not be negative")
	}

	return nil
}
