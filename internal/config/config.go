package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Port              string        `yaml:"port"`
	DBDriver          string        `yaml:"db_driver"`
	DBConn            string        `yaml:"db_conn"`
	LogLevel          string        `yaml:"log_level"`
	JWTSecret         string        `yaml:"jwt_secret"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`
	FingerprintSecret string        `yaml:"fingerprint_secret"`
	SMTPHost          string        `yaml:"smtp_host"`
	SMTPPort          string        `yaml:"smtp_port"`
	SMTPUsername      string        `yaml:"smtp_username"`
	SMTPPassword      string        `yaml:"smtp_password"`
	SenderEmail       string        `yaml:"sender_email"`
	AMQPURL           string        `yaml:"amqp_url"`
	AMQPQueue         string        `yaml:"amqp_queue"`
	DriftCron         string        `yaml:"drift_cron"`
	Locale            string        `yaml:"locale"`
	Currency          string        `yaml:"currency"`
	APIBaseURL        string        `yaml:"api_base_url"`
	APIToken          string        `yaml:"api_token"`
	ClientTimeout     time.Duration `yaml:"client_timeout"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
}

// AuthEnabled reports whether write endpoints require a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.AdminPasswordHash != ""
}

// MailEnabled reports whether portfolio notifications are sent by email.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}

// NewConfig loads configuration from an optional .env file, an optional YAML
// file (CONFIG_PATH) and environment variables, in increasing precedence.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", or(cfg.Port, "8080"))
	cfg.DBDriver = getEnv("DB_DRIVER", or(cfg.DBDriver, "sqlite"))
	cfg.DBConn = getEnv("DB_CONN", or(cfg.DBConn, "file:mutual_funds.db?_pragma=foreign_keys(1)"))
	cfg.LogLevel = getEnv("LOG_LEVEL", or(cfg.LogLevel, "INFO"))
	cfg.JWTSecret = getEnv("JWT_SECRET", or(cfg.JWTSecret, "secret"))
	cfg.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", cfg.AdminPasswordHash)
	cfg.FingerprintSecret = getEnv("FINGERPRINT_SECRET", or(cfg.FingerprintSecret, "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"))
	cfg.SMTPHost = getEnv("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = getEnv("SMTP_PORT", or(cfg.SMTPPort, "587"))
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SenderEmail = getEnv("SENDER_EMAIL", cfg.SenderEmail)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", or(cfg.AMQPQueue, "portfolio.saved"))
	cfg.DriftCron = getEnv("DRIFT_CRON", or(cfg.DriftCron, "0 6 * * *"))
	cfg.Locale = getEnv("LOCALE", or(cfg.Locale, "en-IN"))
	cfg.Currency = getEnv("CURRENCY", or(cfg.Currency, "INR"))
	cfg.APIBaseURL = getEnv("API_BASE_URL", cfg.APIBaseURL)
	cfg.APIToken = getEnv("API_TOKEN", cfg.APIToken)

	if err := getDuration("CLIENT_TIMEOUT", &cfg.ClientTimeout, 30*time.Second); err != nil {
		return nil, err
	}
	if err := getDuration("SESSION_TTL", &cfg.SessionTTL, 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:" + cfg.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.DBConn == "" {
		return fmt.Errorf("DB_CONN is required")
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.AuthEnabled() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ADMIN_PASSWORD_HASH is set")
	}
	if c.FingerprintSecret == "" {
		return fmt.Errorf("FINGERPRINT_SECRET is required")
	}
	if c.ClientTimeout < 0 {
		return fmt.Errorf("CLIENT_TIMEOUT must be positive")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// getDuration overrides *d from the environment and applies fallback when
// neither the environment nor the file set it.
func getDuration(key string, d *time.Duration, fallback time.Duration) error {
	if v, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*d = parsed
	}
	if *d == 0 {
		*d = fallback
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
