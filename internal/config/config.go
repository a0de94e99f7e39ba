package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	AuthCookieSecure bool
	// NodeID seeds the snowflake generator; replicas need distinct values in 0..1023.
	NodeID int64

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Email     EmailConfig

	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	FiscalConfigPath string
}

// TelemetryConfig feeds logging, tracing, metrics and error reporting.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OTLPEndpoint  string
	OTLPProtocol  string
	OTLPEnabled   bool
	SamplingRatio float64
	SentryDSN     string
}

type RateLimitConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginRate  float64
	LoginBurst int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Enabled reports whether outgoing mail is configured.
func (c EmailConfig) Enabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

type SchedulerConfig struct {
	Enabled         bool
	IntervalSeconds int
	LockTTLSeconds  int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	return Config{
		AppName:           getenv("APP_SERVICE", "parcella"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		NodeID:            int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		AuthCookieSecure:  authCookieSecure,
		Telemetry:         loadTelemetry(),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "parcella"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		RateLimit: RateLimitConfig{
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("REDIS_DB", 0),
			LoginRate:     getenvFloat("LOGIN_RATE_PER_SECOND", 0.2),
			LoginBurst:    getenvInt("LOGIN_BURST", 5),
		},
		Scheduler: SchedulerConfig{
			Enabled:         getenvBool("SCHEDULER_ENABLED", true),
			IntervalSeconds: getenvInt("SCHEDULER_INTERVAL_SECONDS", 3600),
			LockTTLSeconds:  getenvInt("SCHEDULER_LOCK_TTL_SECONDS", 300),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: strings.TrimSpace(getenv("SMTP_USERNAME", "")),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     strings.TrimSpace(getenv("SMTP_FROM", "")),
		},
		BootstrapAdminEmail:    strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
		BootstrapAdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		FiscalConfigPath:       strings.TrimSpace(getenv("FISCAL_CONFIG_PATH", "")),
	}
}

// loadTelemetry enables OTLP export by default only when an endpoint is set.
func loadTelemetry() TelemetryConfig {
	endpoint := strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "")))
	return TelemetryConfig{
		LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", ""))),
		LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", ""))),
		OTLPEndpoint:  endpoint,
		OTLPProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http"))),
		OTLPEnabled:   getenvBool("OTEL_ENABLED", endpoint != ""),
		SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		SentryDSN:     strings.TrimSpace(getenv("SENTRY_DSN", "")),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
