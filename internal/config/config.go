// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds every runtime setting. All values come from the environment;
// a .env file is honoured in development via godotenv before Load runs.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR,default=:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`

	// DatabaseURL selects postgres persistence. Empty falls back to the
	// in-memory stores (development only; data is lost on restart).
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisAddr enables the distributed sync lease. Empty keeps the
	// per-process lock, which is fine for a single replica.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	ReportingTimezone       string        `env:"REPORTING_TIMEZONE,default=Europe/London"`
	DefaultCurrencyCode     string        `env:"DEFAULT_CURRENCY_CODE,default=GBP"`
	SyncFreshness           time.Duration `env:"SYNC_FRESHNESS,default=45m"`
	MinQualifiedCallSeconds int           `env:"MIN_QUALIFIED_CALL_SECONDS,default=30"`
	SyncCronSpec            string        `env:"SYNC_CRON,default=@hourly"`

	WebhookSecret        string `env:"WEBHOOK_SECRET"`
	JWTSecret            string `env:"JWT_SECRET"`
	AllowedOrigin        string `env:"ALLOWED_ORIGIN,default=*"`
	WebhookRatePerSecond int    `env:"WEBHOOK_RATE_PER_SECOND,default=10"`
	WebhookBurst         int    `env:"WEBHOOK_BURST,default=20"`

	GoogleAdsClientID        string `env:"GOOGLE_ADS_CLIENT_ID"`
	GoogleAdsClientSecret    string `env:"GOOGLE_ADS_CLIENT_SECRET"`
	GoogleAdsDeveloperToken  string `env:"GOOGLE_ADS_DEVELOPER_TOKEN"`
	GoogleAdsLoginCustomerID string `env:"GOOGLE_ADS_LOGIN_CUSTOMER_ID"`

	ComplianceRulesPath string `env:"COMPLIANCE_RULES_PATH"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

// AdsConfigured reports whether all Google Ads API credentials are present.
func (c Config) AdsConfigured() bool {
	return c.GoogleAdsClientID != "" && c.GoogleAdsClientSecret != "" && c.GoogleAdsDeveloperToken != ""
}
