package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDynamoDB = "dynamodb"
	StorageMemory   = "memory"

	ClauseSourceCatalog  = "catalog"
	ClauseSourceDynamoDB = "dynamodb"
)

// Config holds all configuration for the portal.
type Config struct {
	// Server
	Port string

	// Storage
	StorageDriver    string
	AwsRegion        string
	AwsAccessKeyID   string
	AwsSecretKey     string
	DynamoDBEndpoint string
	EnsureTables     bool

	// Clauses
	ClauseCatalogPath string
	ClauseSource      string

	// Lifecycle
	ProposalExpiry          time.Duration
	ReminderWindow          time.Duration
	DefaultPaymentTermsDays int
	DefaultCurrency         string
	MaxLineItems            int

	// Auth
	JwtSecret string

	// Redis / asynq
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	NotificationsEnabled bool
	SweepCron            string
	WorkerConcurrency    int

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string

	// Payments
	MercadoPagoAccessToken  string
	PaymentGatewayMock      bool
	PaymentRequireMethod    bool
	MercadoPagoSandboxPayer string
}

// Load reads the configuration from environment variables, loading a .env
// file first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		StorageDriver:           strings.ToLower(getEnv("STORAGE_DRIVER", StorageDynamoDB)),
		AwsRegion:               getEnv("AWS_REGION", "us-east-1"),
		AwsAccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", "local"),
		AwsSecretKey:            getEnv("AWS_SECRET_ACCESS_KEY", "local"),
		DynamoDBEndpoint:        getEnv("DYNAMODB_ENDPOINT", ""),
		ClauseCatalogPath:       getEnv("CLAUSE_CATALOG_PATH", ""),
		ClauseSource:            strings.ToLower(getEnv("CLAUSE_SOURCE", ClauseSourceCatalog)),
		DefaultCurrency:         strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		JwtSecret:               getEnv("JWT_SECRET", ""),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		SweepCron:               getEnv("SWEEP_CRON", "@daily"),
		SmtpHost:                getEnv("SMTP_HOST", ""),
		SmtpUsername:            getEnv("SMTP_USERNAME", ""),
		SmtpPassword:            getEnv("SMTP_PASSWORD", ""),
		SmtpFromAddress:         getEnv("SMTP_FROM_ADDRESS", "noreply@portal.example.com"),
		MercadoPagoAccessToken:  getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
		MercadoPagoSandboxPayer: getEnv("MERCADOPAGO_TEST_PAYER_EMAIL", ""),
	}

	expiryDays, err := strconv.Atoi(getEnv("PROPOSAL_EXPIRY_DAYS", "30"))
	if err != nil || expiryDays <= 0 {
		return nil, fmt.Errorf("invalid PROPOSAL_EXPIRY_DAYS: %w", orInvalid(err))
	}
	cfg.ProposalExpiry = time.Duration(expiryDays) * 24 * time.Hour

	reminderHours, err := strconv.Atoi(getEnv("PROPOSAL_REMINDER_HOURS", "24"))
	if err != nil || reminderHours < 0 {
		return nil, fmt.Errorf("invalid PROPOSAL_REMINDER_HOURS: %w", orInvalid(err))
	}
	cfg.ReminderWindow = time.Duration(reminderHours) * time.Hour

	cfg.DefaultPaymentTermsDays, err = strconv.Atoi(getEnv("DEFAULT_PAYMENT_TERMS_DAYS", "14"))
	if err != nil || cfg.DefaultPaymentTermsDays < 0 {
		return nil, fmt.Errorf("invalid DEFAULT_PAYMENT_TERMS_DAYS: %w", orInvalid(err))
	}

	cfg.MaxLineItems, err = strconv.Atoi(getEnv("MAX_LINE_ITEMS", "40"))
	if err != nil || cfg.MaxLineItems <= 0 || cfg.MaxLineItems > 40 {
		return nil, fmt.Errorf("invalid MAX_LINE_ITEMS (1-40): %w", orInvalid(err))
	}

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.WorkerConcurrency, err = strconv.Atoi(getEnv("WORKER_CONCURRENCY", "10"))
	if err != nil || cfg.WorkerConcurrency <= 0 {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", orInvalid(err))
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	if cfg.NotificationsEnabled, err = getBool("NOTIFICATIONS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.EnsureTables, err = getBool("DYNAMODB_ENSURE_TABLES", false); err != nil {
		return nil, err
	}
	if cfg.PaymentRequireMethod, err = getBool("PAYMENT_REQUIRE_METHOD", false); err != nil {
		return nil, err
	}
	cfg.PaymentGatewayMock = isTruthy(getEnv("PAYMENT_GATEWAY_MOCK", "")) || isTruthy(getEnv("MERCADOPAGO_MOCK", ""))

	switch cfg.StorageDriver {
	case StorageDynamoDB, StorageMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: %q", cfg.StorageDriver)
	}
	switch cfg.ClauseSource {
	case ClauseSourceCatalog, ClauseSourceDynamoDB:
	default:
		return nil, fmt.Errorf("invalid CLAUSE_SOURCE: %q", cfg.ClauseSource)
	}
	if cfg.ClauseSource == ClauseSourceDynamoDB && cfg.StorageDriver == StorageMemory {
		return nil, errors.New("CLAUSE_SOURCE=dynamodb requires STORAGE_DRIVER=dynamodb")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on", "mock":
		return true
	}
	return false
}

var errOutOfRange = errors.New("value out of range")

func orInvalid(err error) error {
	if err != nil {
		return err
	}
	return errOutOfRange
}
