package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/shared"
)

// Config is the process configuration, read once at startup.
type Config struct {
	shared.UnifiedConfiguration
}

// LoadConfig reads .env (if present) and the process environment on top of the defaults.
func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) *Config {
	getEnv := func(key, fallback string) string {
		if value, exists := lookup(key); exists {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	defaults := shared.NewDefaultUnifiedConfiguration()
	cfg := &Config{UnifiedConfiguration: *defaults}

	cfg.Server.Port = getEnv("SERVER_PORT", getEnv("PORT", defaults.Server.Port))
	cfg.Server.CORSAllowOrigins = getEnv("CORS_ALLOW_ORIGINS", defaults.Server.CORSAllowOrigins)

	cfg.Gateway.BaseURL = strings.TrimRight(getEnv("MPESA_BASE_URL", defaults.Gateway.BaseURL), "/")
	cfg.Gateway.ConsumerKey = getEnv("MPESA_CONSUMER_KEY", "")
	cfg.Gateway.ConsumerSecret = getEnv("MPESA_CONSUMER_SECRET", "")
	cfg.Gateway.Shortcode = getEnv("MPESA_SHORTCODE", "")
	cfg.Gateway.Passkey = getEnv("MPESA_PASSKEY", "")
	cfg.Gateway.CallbackURL = getEnv("MPESA_CALLBACK_URL", "")
	cfg.Gateway.HTTPRequestTimeout = getSeconds(getEnv("GATEWAY_TIMEOUT_SECONDS", ""), defaults.Gateway.HTTPRequestTimeout)
	cfg.Gateway.MinRequestInterval = getMillis(getEnv("GATEWAY_MIN_REQUEST_INTERVAL_MS", ""), 0)

	cfg.Webhook.Secret = getEnv("WEBHOOK_SECRET", "")
	cfg.Webhook.RequireSignature = getBool(getEnv("REQUIRE_WEBHOOK_SIGNATURE", ""), false)
	cfg.Webhook.ExpectedShortcode = cfg.Gateway.Shortcode

	cfg.Database.Driver = strings.ToLower(getEnv("DATABASE_DRIVER", defaults.Database.Driver))
	cfg.Database.URL = getEnv("DATABASE_URL", "")

	cfg.Tip.RecipientAddress = getEnv("TIP_WALLET", "")

	cfg.Logging.Level = getEnv("LOG_LEVEL", defaults.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", defaults.Logging.Format)

	cfg.ValidateAndApplyDefaults()
	return cfg
}

// StoreConfigured is false when no usable record store is configured; the
// ingestion and aggregation paths then run in their degraded mode.
func (c *Config) StoreConfigured() bool {
	url := c.Database.URL
	return url != "" && !strings.HasPrefix(url, "https://placeholder")
}

// DegradedComponents lists the components running without their full configuration.
func (c *Config) DegradedComponents() []string {
	var degraded []string
	if !c.StoreConfigured() {
		degraded = append(degraded, "record_store")
	}
	if !c.Gateway.HasCredentials() || c.Gateway.Passkey == "" {
		degraded = append(degraded, "gateway_client")
	}
	if c.Webhook.Secret == "" {
		degraded = append(degraded, "webhook_signature")
	}
	if !c.Webhook.ShortcodeCheckEnabled() {
		degraded = append(degraded, "webhook_shortcode")
	}
	if c.Tip.RecipientAddress == "" {
		degraded = append(degraded, "tip_recipient")
	}
	return degraded
}

// ConfigureLogging applies the level and format to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL value: %s, using info", c.Logging.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(c.Logging.Format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})
}

// LogStartupWarnings reports every degraded component and risky combination.
func (c *Config) LogStartupWarnings() {
	for _, component := range c.DegradedComponents() {
		logrus.WithField("component", component).Warn("Running in degraded mode: configuration missing")
	}
	if c.Webhook.RequireSignature && c.Webhook.Secret == "" {
		logrus.Error("REQUIRE_WEBHOOK_SIGNATURE is set but WEBHOOK_SECRET is empty; signatures cannot be enforced")
	}
	if c.Webhook.Secret != "" && !c.Webhook.RequireSignature {
		logrus.Warn("Callbacks without a signature header are accepted; set REQUIRE_WEBHOOK_SIGNATURE=true to reject them")
	}
}

func getSeconds(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		logrus.Warnf("Invalid duration value: %s, using default %v", value, fallback)
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func getMillis(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	millis, err := strconv.Atoi(value)
	if err != nil || millis < 0 {
		logrus.Warnf("Invalid interval value: %s, using default %v", value, fallback)
		return fallback
	}
	return time.Duration(millis) * time.Millisecond
}

func getBool(value string, fallback bool) bool {
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logrus.Warnf("Invalid boolean value: %s, using default %v", value, fallback)
		return fallback
	}
	return b
}
