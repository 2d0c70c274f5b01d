package shared

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PlaceholderShortcode is the explicit "unset" value for the business shortcode.
// When configured, the callback shortcode check is skipped.
const PlaceholderShortcode = "placeholder-mpesa-shortcode"

// PlaceholderTipWallet is used as the tip recipient when TIP_WALLET is not configured.
const PlaceholderTipWallet = "placeholder-tip-wallet"

// UnifiedConfiguration holds all configuration parameters for the entire application
type UnifiedConfiguration struct {
	Server   ServerConfig   `json:"server"`
	Gateway  GatewayConfig  `json:"gateway"`
	Webhook  WebhookConfig  `json:"webhook"`
	Database DatabaseConfig `json:"database"`
	Tip      TipConfig      `json:"tip"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Port             string `json:"port"`
	CORSAllowOrigins string `json:"cors_allow_origins"`
}

// GatewayConfig holds the payment gateway credentials and outbound HTTP settings
type GatewayConfig struct {
	BaseURL            string        `json:"base_url"`
	ConsumerKey        string        `json:"-"`
	ConsumerSecret     string        `json:"-"`
	Shortcode          string        `json:"shortcode"`
	Passkey            string        `json:"-"`
	CallbackURL        string        `json:"callback_url"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	MinRequestInterval time.Duration `json:"min_request_interval"`
	DefaultTokenTTL    time.Duration `json:"default_token_ttl"`
}

// HasCredentials reports whether a token exchange can be attempted.
func (g GatewayConfig) HasCredentials() bool {
	return g.ConsumerKey != "" && g.ConsumerSecret != "" && g.Shortcode != ""
}

// WebhookConfig holds inbound callback verification settings
type WebhookConfig struct {
	Secret            string `json:"-"`
	RequireSignature  bool   `json:"require_signature"`
	ExpectedShortcode string `json:"expected_shortcode"`
}

// ShortcodeCheckEnabled is false when the expected shortcode is empty or the placeholder.
func (w WebhookConfig) ShortcodeCheckEnabled() bool {
	return w.ExpectedShortcode != "" && w.ExpectedShortcode != PlaceholderShortcode
}

// DatabaseConfig holds record store connection configuration
type DatabaseConfig struct {
	Driver             string        `json:"driver"`
	URL                string        `json:"-"`
	MaxOpenConns       int           `json:"max_open_conns"`
	MaxIdleConns       int           `json:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `json:"conn_max_idle_time"`
	PingTimeout        time.Duration `json:"ping_timeout"`
	SlowQueryThreshold time.Duration `json:"slow_query_threshold"`
}

// TipConfig holds the tip builder settings
type TipConfig struct {
	RecipientAddress string  `json:"recipient_address"`
	DefaultPercent   float64 `json:"default_percent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Server: ServerConfig{
			Port:             "8000",
			CORSAllowOrigins: "*",
		},
		Gateway: GatewayConfig{
			BaseURL:            "https://sandbox.safaricom.co.ke",
			HTTPRequestTimeout: 30 * time.Second,
			DefaultTokenTTL:    time.Hour,
		},
		Database: DatabaseConfig{
			Driver:             "postgres",
			MaxOpenConns:       25,
			MaxIdleConns:       5,
			ConnMaxLifetime:    5 * time.Minute,
			ConnMaxIdleTime:    5 * time.Minute,
			PingTimeout:        5 * time.Second,
			SlowQueryThreshold: 500 * time.Millisecond,
		},
		Tip: TipConfig{
			DefaultPercent: 5.0,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "pledge-backend",
		},
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	if c.Server.Port == "" {
		c.Server.Port = defaults.Server.Port
		logger.Debug("Applied default Server.Port")
	}

	if c.Server.CORSAllowOrigins == "" {
		c.Server.CORSAllowOrigins = defaults.Server.CORSAllowOrigins
		logger.Debug("Applied default Server.CORSAllowOrigins")
	}

	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = defaults.Gateway.BaseURL
		logger.Debug("Applied default Gateway.BaseURL")
	}

	if c.Gateway.HTTPRequestTimeout <= 0 {
		c.Gateway.HTTPRequestTimeout = defaults.Gateway.HTTPRequestTimeout
		logger.Debug("Applied default Gateway.HTTPRequestTimeout")
	}

	if c.Gateway.MinRequestInterval < 0 {
		c.Gateway.MinRequestInterval = 0
		logger.Debug("Disabled negative Gateway.MinRequestInterval")
	}

	if c.Gateway.DefaultTokenTTL <= 0 {
		c.Gateway.DefaultTokenTTL = defaults.Gateway.DefaultTokenTTL
		logger.Debug("Applied default Gateway.DefaultTokenTTL")
	}

	if c.Webhook.ExpectedShortcode == "" {
		c.Webhook.ExpectedShortcode = c.Gateway.Shortcode
	}

	if c.Database.Driver == "" {
		c.Database.Driver = defaults.Database.Driver
		logger.Debug("Applied default Database.Driver")
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
		logger.Debug("Applied default Database.MaxOpenConns")
	}

	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
		logger.Debug("Applied default Database.MaxIdleConns")
	}

	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}

	if c.Database.ConnMaxIdleTime <= 0 {
		c.Database.ConnMaxIdleTime = defaults.Database.ConnMaxIdleTime
		logger.Debug("Applied default Database.ConnMaxIdleTime")
	}

	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Tip.DefaultPercent <= 0 {
		c.Tip.DefaultPercent = defaults.Tip.DefaultPercent
		logger.Debug("Applied default Tip.DefaultPercent")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		logger.Debug("Applied default Logging.Level")
	}

	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
		logger.Debug("Applied default Logging.Format")
	}

	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = defaults.Logging.ServiceName
		logger.Debug("Applied default Logging.ServiceName")
	}
}
