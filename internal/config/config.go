package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	JWT       JWTConfig
	Twilio    TwilioConfig
	Email     EmailConfig
	OTel      OTelConfig
	Monitor   MonitorConfig
	Jobs      JobsConfig
	Security  SecurityConfig
	Bootstrap BootstrapConfig
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Version     string
	LogLevel    string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PublicBaseURL string
	CORSOrigins   string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// InstanceConnectionName switches to the Cloud SQL unix socket.
	InstanceConnectionName string
	UseMemoryStore         bool
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	if d.InstanceConnectionName != "" {
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable",
			d.InstanceConnectionName, d.User, d.Password, d.DBName)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// KafkaConfig holds the event sink settings. No brokers disables the sink.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// JWTConfig holds token settings
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
}

// TwilioConfig holds voice/SMS provider credentials
type TwilioConfig struct {
	AccountSID               string
	AuthToken                string
	PhoneNumber              string
	DisableWebhookValidation bool
}

// Configured reports whether all Twilio credentials are present
func (t *TwilioConfig) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.PhoneNumber != ""
}

// EmailConfig holds transactional email settings
type EmailConfig struct {
	SendGridAPIKey string
	From           string
	FromName       string
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool
	ServiceName   string
	CollectorAddr string
}

// MonitorConfig holds memory monitor thresholds
type MonitorConfig struct {
	Enabled        bool
	Interval       time.Duration
	WarnMB         uint64
	CriticalMB     uint64
	ExitOnCritical bool
	AlertCooldown  time.Duration
}

// JobsConfig holds scheduled job settings
type JobsConfig struct {
	Enabled           bool
	EscalationMinutes int
}

// SecurityConfig holds request throttling settings
type SecurityConfig struct {
	LoginRateLimit int // attempts per minute per client
}

// BootstrapConfig seeds the platform super_admin on first start. Empty values skip seeding.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Load reads .env files (when present) and the process environment
func Load() (*Config, error) {
	return load(".env", "environments/.env.development")
}

// LoadWithPath loads configuration from a specific env file
func LoadWithPath(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return load()
}

func load(envFiles ...string) (*Config, error) {
	// godotenv never overrides variables already present in the environment
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			break
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := bindConfig(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "guestvoice")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("CORS_ORIGINS", "*")

	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "")
	v.SetDefault("DATABASE_DBNAME", "guestvoice")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("INSTANCE_CONNECTION_NAME", "")
	v.SetDefault("USE_MEMORY_STORE", false)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "guestvoice.events")
	v.SetDefault("KAFKA_CLIENT_ID", "guestvoice")

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", "12h")
	v.SetDefault("JWT_ISSUER", "guestvoice")

	v.SetDefault("DISABLE_WEBHOOK_VALIDATION", false)

	v.SetDefault("EMAIL_FROM", "no-reply@guestvoice.app")
	v.SetDefault("EMAIL_FROM_NAME", "GuestVoice")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "guestvoice")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")

	v.SetDefault("MONITOR_ENABLED", true)
	v.SetDefault("MONITOR_INTERVAL", "30s")
	v.SetDefault("MONITOR_WARN_MB", 512)
	v.SetDefault("MONITOR_CRITICAL_MB", 1024)
	v.SetDefault("MONITOR_EXIT_ON_CRITICAL", false)
	v.SetDefault("MONITOR_ALERT_COOLDOWN", "5m")

	v.SetDefault("JOBS_ENABLED", true)
	v.SetDefault("ESCALATION_MINUTES", 15)

	v.SetDefault("LOGIN_RATE_LIMIT", 10)

	v.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")
}

func bindConfig(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Version = v.GetString("APP_VERSION")
	cfg.App.LogLevel = v.GetString("LOG_LEVEL")

	// PORT is what Cloud Run injects
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	if port := v.GetInt("PORT"); port > 0 {
		cfg.Server.Port = port
	}
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")
	cfg.Server.CORSOrigins = v.GetString("CORS_ORIGINS")

	cfg.Database.Host = v.GetString("DATABASE_HOST")
	cfg.Database.Port = v.GetInt("DATABASE_PORT")
	cfg.Database.User = v.GetString("DATABASE_USER")
	cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	cfg.Database.DBName = v.GetString("DATABASE_DBNAME")
	cfg.Database.SSLMode = v.GetString("DATABASE_SSLMODE")
	cfg.Database.MaxOpenConns = v.GetInt("DATABASE_MAX_OPEN_CONNS")
	cfg.Database.MaxIdleConns = v.GetInt("DATABASE_MAX_IDLE_CONNS")
	cfg.Database.ConnMaxLifetime = v.GetDuration("DATABASE_CONN_MAX_LIFETIME")
	cfg.Database.InstanceConnectionName = v.GetString("INSTANCE_CONNECTION_NAME")
	cfg.Database.UseMemoryStore = v.GetBool("USE_MEMORY_STORE")

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.Topic = v.GetString("KAFKA_TOPIC")
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")

	cfg.JWT.Secret = v.GetString("JWT_SECRET")
	cfg.JWT.AccessTokenTTL = v.GetDuration("JWT_ACCESS_TOKEN_TTL")
	cfg.JWT.Issuer = v.GetString("JWT_ISSUER")

	cfg.Twilio.AccountSID = v.GetString("TWILIO_ACCOUNT_SID")
	cfg.Twilio.AuthToken = v.GetString("TWILIO_AUTH_TOKEN")
	cfg.Twilio.PhoneNumber = v.GetString("TWILIO_PHONE_NUMBER")
	cfg.Twilio.DisableWebhookValidation = v.GetBool("DISABLE_WEBHOOK_VALIDATION")

	cfg.Email.SendGridAPIKey = v.GetString("SENDGRID_API_KEY")
	cfg.Email.From = v.GetString("EMAIL_FROM")
	cfg.Email.FromName = v.GetString("EMAIL_FROM_NAME")

	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")

	cfg.Monitor.Enabled = v.GetBool("MONITOR_ENABLED")
	cfg.Monitor.Interval = v.GetDuration("MONITOR_INTERVAL")
	cfg.Monitor.WarnMB = v.GetUint64("MONITOR_WARN_MB")
	cfg.Monitor.CriticalMB = v.GetUint64("MONITOR_CRITICAL_MB")
	cfg.Monitor.ExitOnCritical = v.GetBool("MONITOR_EXIT_ON_CRITICAL")
	cfg.Monitor.AlertCooldown = v.GetDuration("MONITOR_ALERT_COOLDOWN")

	cfg.Jobs.Enabled = v.GetBool("JOBS_ENABLED")
	cfg.Jobs.EscalationMinutes = v.GetInt("ESCALATION_MINUTES")

	cfg.Security.LoginRateLimit = v.GetInt("LOGIN_RATE_LIMIT")

	cfg.Bootstrap.AdminEmail = v.GetString("BOOTSTRAP_ADMIN_EMAIL")
	cfg.Bootstrap.AdminPassword = v.GetString("BOOTSTRAP_ADMIN_PASSWORD")

	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return errors.New("app name is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if !c.Database.UseMemoryStore && c.Database.DBName == "" {
		return errors.New("database name is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is required")
	}
	if c.IsProduction() && c.JWT.Secret == defaultJWTSecret {
		return errors.New("JWT secret must be changed in production")
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("invalid JWT access token TTL: %s", c.JWT.AccessTokenTTL)
	}
	if c.Bootstrap.AdminPassword != "" && len(c.Bootstrap.AdminPassword) < 8 {
		return errors.New("bootstrap admin password must be at least 8 characters")
	}
	if c.Monitor.Enabled && c.Monitor.CriticalMB <= c.Monitor.WarnMB {
		return fmt.Errorf("monitor critical threshold (%dMB) must exceed warn threshold (%dMB)",
			c.Monitor.CriticalMB, c.Monitor.WarnMB)
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
