package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "your-super-secret-jwt-key"

// Config holds all configuration for the ticketing service
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	AllowedOrigins []string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	Reservation ReservationConfig
	Sweeper     SweeperConfig
	Payment     PaymentConfig
	Kafka       KafkaConfig
	Metrics     MetricsConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// Seat maps are display only, so they can be slightly stale
	AvailabilityTTL time.Duration
}

// JWTConfig holds JWT configuration. Tokens are issued by the account service.
type JWTConfig struct {
	Secret string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled             bool          `json:"enabled"`
	WindowDuration      time.Duration `json:"window_duration"`
	DefaultRequests     int           `json:"default_requests"`
	PublicRequests      int           `json:"public_requests"`
	ReservationRequests int           `json:"reservation_requests"`
	PaymentRequests     int           `json:"payment_requests"`
	WebhookRequests     int           `json:"webhook_requests"`
	AdminRequests       int           `json:"admin_requests"`
	WhitelistedIPs      []string      `json:"whitelisted_ips"`
}

// ReservationConfig holds seat hold settings
type ReservationConfig struct {
	HoldTTL         time.Duration
	MaxHoldTTL      time.Duration
	MaxSeatsPerHold int
}

// SweeperConfig holds expiry sweep settings
type SweeperConfig struct {
	Enabled          bool
	Interval         time.Duration
	TicketStaleAfter time.Duration
	BatchSize        int
	LockTTL          time.Duration
}

// PaymentConfig holds payment provider settings
type PaymentConfig struct {
	ProviderBaseURL    string
	AccessToken        string
	WebhookSecret      string
	CheckoutSuccessURL string
	CheckoutFailureURL string
	NotificationURL    string
	Currency           string
	RequestTimeout     time.Duration
}

// KafkaConfig holds ticket event publishing settings
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB
		AllowedOrigins: getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "ticketing_db"),
			User:         getEnv("DB_USER", "ticketing_user"),
			Password:     getEnv("DB_PASSWORD", "ticketing_password"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 10),
			AutoMigrate:  getBoolEnv("DB_AUTO_MIGRATE", true),
		},

		Redis: RedisConfig{
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getEnv("REDIS_PORT", "6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getIntEnv("REDIS_DB", 0),
			AvailabilityTTL: getDurationEnv("REDIS_AVAILABILITY_TTL", 5*time.Second),
		},

		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", defaultJWTSecret),
		},

		RateLimit: RateLimitConfig{
			Enabled:             getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:      getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:     getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:      getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 120),
			ReservationRequests: getIntEnv("RATE_LIMIT_RESERVATION_REQUESTS", 30),
			PaymentRequests:     getIntEnv("RATE_LIMIT_PAYMENT_REQUESTS", 20),
			WebhookRequests:     getIntEnv("RATE_LIMIT_WEBHOOK_REQUESTS", 600),
			AdminRequests:       getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			WhitelistedIPs:      getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		Reservation: ReservationConfig{
			HoldTTL:         getDurationEnv("RESERVATION_HOLD_TTL", 15*time.Minute),
			MaxHoldTTL:      getDurationEnv("RESERVATION_MAX_HOLD_TTL", 30*time.Minute),
			MaxSeatsPerHold: getIntEnv("RESERVATION_MAX_SEATS", 10),
		},

		Sweeper: SweeperConfig{
			Enabled:          getBoolEnv("SWEEPER_ENABLED", true),
			Interval:         getDurationEnv("SWEEPER_INTERVAL", 60*time.Second),
			TicketStaleAfter: getDurationEnv("SWEEPER_TICKET_STALE_AFTER", 15*time.Minute),
			BatchSize:        getIntEnv("SWEEPER_BATCH_SIZE", 200),
			LockTTL:          getDurationEnv("SWEEPER_LOCK_TTL", 50*time.Second),
		},

		Payment: PaymentConfig{
			ProviderBaseURL:    getEnv("PAYMENT_PROVIDER_BASE_URL", ""),
			AccessToken:        getEnv("PAYMENT_ACCESS_TOKEN", ""),
			WebhookSecret:      getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			CheckoutSuccessURL: getEnv("PAYMENT_CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
			CheckoutFailureURL: getEnv("PAYMENT_CHECKOUT_FAILURE_URL", "http://localhost:3000/checkout/failure"),
			NotificationURL:    getEnv("PAYMENT_NOTIFICATION_URL", ""),
			Currency:           getEnv("PAYMENT_CURRENCY", "USD"),
			RequestTimeout:     getDurationEnv("PAYMENT_REQUEST_TIMEOUT", 10*time.Second),
		},

		Kafka: KafkaConfig{
			Enabled:  getBoolEnv("KAFKA_ENABLED", false),
			Brokers:  getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:    getEnv("KAFKA_TICKET_TOPIC", "ticket-events"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "ticketing-service"),
		},

		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},

		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}

// PaymentGatewayEnabled reports whether payments are verified against the provider API
func (c *Config) PaymentGatewayEnabled() bool {
	return c.Payment.ProviderBaseURL != "" && c.Payment.AccessToken != ""
}

// Validate reports settings the service refuses to run with. Release mode
// needs a provider API to verify confirmations and a secret to authenticate
// webhooks, otherwise any caller could mark tickets paid.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}

	var errs []error
	if !c.PaymentGatewayEnabled() {
		errs = append(errs, errors.New("PAYMENT_PROVIDER_BASE_URL and PAYMENT_ACCESS_TOKEN are required in release mode"))
	}
	if c.Payment.WebhookSecret == "" {
		errs = append(errs, errors.New("PAYMENT_WEBHOOK_SECRET is required in release mode"))
	}
	if c.JWT.Secret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in release mode"))
	}
	return errors.Join(errs...)
}
