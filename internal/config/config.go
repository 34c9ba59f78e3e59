package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server              ServerConfig
	Database            DatabaseConfig
	Redis               RedisConfig
	Kafka               KafkaConfig
	PhonePe             ServiceConfig
	NotificationService ServiceConfig
	Verification        VerificationConfig
	Features            FeatureFlags
	WebhookSecret       string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	LedgerTopic   string
	WebhooksTopic string
	ConsumerGroup string
}

type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// VerificationConfig controls the payment verification state machine.
type VerificationConfig struct {
	// Countdown is the fixed delay between a gateway return and the
	// single verification pass. Not cancellable once started.
	Countdown time.Duration
	// SnapshotTTL bounds how long a pre-redirect payment intent snapshot
	// stays readable.
	SnapshotTTL time.Duration
}

type FeatureFlags struct {
	// SkipLedgerSync gates all order writes; verification then resolves
	// purely from callback parameters and session snapshots.
	SkipLedgerSync bool
	// GatewayDebug enables verbose gateway classification logging.
	GatewayDebug bool
}

func Load() *Config {
	// Optional .env for local development; real env vars win.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "omaguva"),
			Password:     getEnvString("DB_PASSWORD", "omaguva"),
			Name:         getEnvString("DB_NAME", "omaguva_payments"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       []string{getEnvString("KAFKA_BROKER", "localhost:9092")},
			LedgerTopic:   getEnvString("KAFKA_LEDGER_TOPIC", "payments.ledger"),
			WebhooksTopic: getEnvString("KAFKA_WEBHOOKS_TOPIC", "payments.webhooks"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "payments-service"),
		},
		PhonePe: ServiceConfig{
			BaseURL: getEnvString("PHONEPE_API_URL", "http://localhost:8089"),
			Timeout: getEnvDuration("PHONEPE_API_TIMEOUT", 30*time.Second),
			APIKey:  getEnvString("PHONEPE_API_KEY", ""),
		},
		NotificationService: ServiceConfig{
			BaseURL: getEnvString("NOTIFICATION_SERVICE_URL", "http://localhost:8085"),
			Timeout: getEnvDuration("NOTIFICATION_SERVICE_TIMEOUT", 10*time.Second),
			APIKey:  getEnvString("NOTIFICATION_SERVICE_API_KEY", ""),
		},
		Verification: VerificationConfig{
			Countdown:   getEnvDuration("VERIFICATION_COUNTDOWN", 15*time.Second),
			SnapshotTTL: getEnvDuration("INTENT_SNAPSHOT_TTL", 30*time.Minute),
		},
		Features: FeatureFlags{
			SkipLedgerSync: getEnvBool("FEATURE_SKIP_LEDGER_SYNC", false),
			GatewayDebug:   getEnvBool("FEATURE_GATEWAY_DEBUG", false),
		},
		WebhookSecret: getEnvString("PAYMENT_WEBHOOK_SECRET", ""),
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
