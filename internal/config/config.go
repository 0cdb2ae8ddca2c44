package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	NodeID      int64

	HTTPAddr string
	BaseURL  string

	// ManagerAPIKey guards the manager routes. Empty disables them.
	ManagerAPIKey string

	OTLPEndpoint string

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

	RedisURL string

	// BookingRateLimit caps POST /bookings per client IP. It needs RedisURL.
	BookingRateLimit RateLimitConfig

	Telegram  TelegramConfig
	SMTP      SMTPConfig
	LiqPay    LiqPayConfig
	Scheduler SchedulerConfig

	SeedDemoData bool

	// ManagerRecipientID targets manager notifications at a specific manager
	// record. Empty means the configured default destinations.
	ManagerRecipientID string
}

type TelegramConfig struct {
	BotToken      string
	DefaultChatID string
}

type SMTPConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	DefaultEmail string
}

type RateLimitConfig struct {
	PerMinute float64
	Burst     int
}

type LiqPayConfig struct {
	PublicKey  string
	PrivateKey string
	Sandbox    bool
	Currency   string
}

type SchedulerConfig struct {
	Enabled     bool
	EnabledJobs []string

	HoldExpiryInterval      time.Duration
	EventCompletionInterval time.Duration
	NotificationInterval    time.Duration
	OutboxInterval          time.Duration
	ReminderInterval        time.Duration
	NotificationBatchSize   int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_NAME", "venuebook"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		NodeID:       getenvInt64("NODE_ID", 1),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		BaseURL:      strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),

		ManagerAPIKey: strings.TrimSpace(getenv("MANAGER_API_KEY", "")),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DB_TYPE", "postgres"),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBName:            getenv("DB_NAME", "venuebook"),
		DBUser:            getenv("DB_USER", "postgres"),
		DBPassword:        getenv("DB_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DB_SSL_MODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DB_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DB_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DB_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DB_CONN_MAX_IDLE_TIME", 60)),

		RedisURL: strings.TrimSpace(getenv("REDIS_URL", "")),
		BookingRateLimit: RateLimitConfig{
			PerMinute: float64(getenvInt64("BOOKING_RATE_LIMIT_PER_MINUTE", 20)),
			Burst:     int(getenvInt64("BOOKING_RATE_LIMIT_BURST", 5)),
		},

		Telegram: TelegramConfig{
			BotToken:      strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN", "")),
			DefaultChatID: strings.TrimSpace(getenv("TELEGRAM_DEFAULT_CHAT_ID", "")),
		},
		SMTP: SMTPConfig{
			Host:         strings.TrimSpace(getenv("SMTP_HOST", "")),
			Port:         int(getenvInt64("SMTP_PORT", 587)),
			Username:     getenv("SMTP_USERNAME", ""),
			Password:     getenv("SMTP_PASSWORD", ""),
			From:         getenv("SMTP_FROM", "bookings@venuebook.local"),
			DefaultEmail: strings.TrimSpace(getenv("MANAGER_DEFAULT_EMAIL", "")),
		},
		LiqPay: LiqPayConfig{
			PublicKey:  strings.TrimSpace(getenv("LIQPAY_PUBLIC_KEY", "")),
			PrivateKey: strings.TrimSpace(getenv("LIQPAY_PRIVATE_KEY", "")),
			Sandbox:    getenvBool("LIQPAY_SANDBOX", true),
			Currency:   getenv("LIQPAY_CURRENCY", "UAH"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                 getenvBool("SCHEDULER_ENABLED", true),
			EnabledJobs:             parseList(getenv("SCHEDULER_ENABLED_JOBS", "")),
			HoldExpiryInterval:      getenvDuration("SCHEDULER_HOLD_EXPIRY_INTERVAL", time.Minute),
			EventCompletionInterval: getenvDuration("SCHEDULER_EVENT_COMPLETION_INTERVAL", 30*time.Minute),
			NotificationInterval:    getenvDuration("SCHEDULER_NOTIFICATION_INTERVAL", 30*time.Second),
			OutboxInterval:          getenvDuration("SCHEDULER_OUTBOX_INTERVAL", time.Minute),
			ReminderInterval:        getenvDuration("SCHEDULER_REMINDER_INTERVAL", 5*time.Minute),
			NotificationBatchSize:   int(getenvInt64("SCHEDULER_NOTIFICATION_BATCH_SIZE", 50)),
		},
		SeedDemoData:       getenvBool("SEED_DEMO_DATA", false),
		ManagerRecipientID: strings.TrimSpace(getenv("MANAGER_RECIPIENT_ID", "")),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
