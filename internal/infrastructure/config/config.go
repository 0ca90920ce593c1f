package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Summit        SummitConfig        `mapstructure:"summit"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Auth          AuthConfig          `mapstructure:"auth"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port             int           `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	WebhookRateLimit int           `mapstructure:"webhook_rate_limit"`
	CORS             CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// SummitConfig is the acquirer record: credentials, hosts and display settings.
type SummitConfig struct {
	TestAPIKey       string `mapstructure:"test_api_key"`
	ProductionAPIKey string `mapstructure:"production_api_key"`
	Testing          bool   `mapstructure:"testing"`
	WebhookSecret    string `mapstructure:"webhook_secret"`

	TestHost       string        `mapstructure:"test_host"`
	ProductionHost string        `mapstructure:"production_host"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// BaseURL is this service's public address, used for callback URLs.
	BaseURL    string `mapstructure:"base_url"`
	ProcessURL string `mapstructure:"process_url"`

	InstallmentPriceCeiling float64 `mapstructure:"installment_price_ceiling"`
	EnforceStatusOrdering   bool    `mapstructure:"enforce_status_ordering"`

	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`

	Display DisplayConfig `mapstructure:"display"`
}

type DisplayConfig struct {
	WidgetID             string `mapstructure:"widget_id"`
	InstallmentsSize     int    `mapstructure:"installments_size"`
	DisplayCatalogPrices bool   `mapstructure:"display_catalog_prices"`
	DisplayProductPrices bool   `mapstructure:"display_product_prices"`
	CheckoutTitle        string `mapstructure:"checkout_title"`
	Description          string `mapstructure:"description"`
	InstructionsURL      string `mapstructure:"instructions_url"`
}

type WorkerConfig struct {
	BatchSize          int64         `mapstructure:"batch_size"`
	SyncInterval       time.Duration `mapstructure:"sync_interval"`
	JobLockTTL         time.Duration `mapstructure:"job_lock_ttl"`
	OutboxPollInterval time.Duration `mapstructure:"outbox_poll_interval"`
	RetryAttempts      uint          `mapstructure:"retry_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
	OutboxRetention    time.Duration `mapstructure:"outbox_retention"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SUMMITPAY")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/summitpay")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Worker.JobLockTTL <= 0 {
		errs = append(errs, fmt.Errorf("worker.job_lock_ttl must be positive"))
	}
	if c.Worker.SyncInterval <= 0 {
		errs = append(errs, fmt.Errorf("worker.sync_interval must be positive"))
	}

	switch c.Observability.LogFormat {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("observability.log_format must be json or console, got %q", c.Observability.LogFormat))
	}

	errs = append(errs, c.Summit.validate()...)

	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.jwt_secret required in production"))
		}
		if c.Summit.WebhookSecret == "" {
			errs = append(errs, fmt.Errorf("summit.webhook_secret required in production"))
		}
		if !c.Summit.Testing && c.Summit.ProductionAPIKey == "" {
			errs = append(errs, fmt.Errorf("summit.production_api_key required in production"))
		}
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters"))
	}

	return errors.Join(errs...)
}

func (c *SummitConfig) validate() []error {
	var errs []error
	for key, raw := range map[string]string{
		"summit.test_host":       c.TestHost,
		"summit.production_host": c.ProductionHost,
		"summit.base_url":        c.BaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", key, raw))
		}
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("summit.request_timeout must be positive"))
	}
	if c.InstallmentPriceCeiling <= 0 {
		errs = append(errs, fmt.Errorf("summit.installment_price_ceiling must be positive"))
	}
	return errs
}

// APIKey returns the key matching the configured mode.
func (c *SummitConfig) APIKey() string {
	if c.Testing {
		return c.TestAPIKey
	}
	return c.ProductionAPIKey
}

// Host returns the provider host matching the configured mode.
func (c *SummitConfig) Host() string {
	if c.Testing {
		return c.TestHost
	}
	return c.ProductionHost
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.webhook_rate_limit", 120)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "summitpay")
	v.SetDefault("database.database", "summitpay")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	v.SetDefault("summit.testing", true)
	v.SetDefault("summit.test_host", "https://pktest.takoleasy.si")
	v.SetDefault("summit.production_host", "https://pk.takoleasy.si")
	v.SetDefault("summit.request_timeout", "15s")
	v.SetDefault("summit.base_url", "http://localhost:8080")
	v.SetDefault("summit.process_url", "/payment/process")
	v.SetDefault("summit.installment_price_ceiling", 15000)
	v.SetDefault("summit.enforce_status_ordering", false)
	v.SetDefault("summit.circuit_breaker_threshold", 5)
	v.SetDefault("summit.circuit_breaker_timeout", "30s")
	v.SetDefault("summit.display.installments_size", 14)
	v.SetDefault("summit.display.display_catalog_prices", false)
	v.SetDefault("summit.display.display_product_prices", false)
	v.SetDefault("summit.display.checkout_title", "Nakup na obroke")
	v.SetDefault("summit.display.description", "Obročna plačila z 1Stavno.")
	v.SetDefault("summit.display.instructions_url", "https://1stavno.si")

	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.sync_interval", "15m")
	v.SetDefault("worker.job_lock_ttl", "10m")
	v.SetDefault("worker.outbox_poll_interval", "2s")
	v.SetDefault("worker.retry_attempts", 3)
	v.SetDefault("worker.retry_delay", "1s")
	v.SetDefault("worker.idempotency_ttl", "24h")
	v.SetDefault("worker.outbox_retention", "168h")

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	v.SetDefault("auth.jwt_expiry", "24h")

	v.SetDefault("instance_id", "summitpay-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// MigrationURL is the DSN in URL form for golang-migrate.
func (c *DatabaseConfig) MigrationURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
