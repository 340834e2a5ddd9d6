// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides settings for the shared Redis connection.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// LockConfig provides settings for per-appointment mutation locks.
type LockConfig interface {
	RedisConfig
	GetMutationLockTTL() time.Duration
}

// SchedulerConfig provides settings for the background task queue.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketAppointmentMedia() string
	IsMinIOEnabled() bool
}

// SMTPConfig provides settings for outgoing email.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsSMTPEnabled() bool
}

// WhatsAppConfig provides settings for the WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
}

// CollaboratorConfig provides endpoints of the payment and reputation services.
type CollaboratorConfig interface {
	GetPaymentServiceURL() string
	GetReputationServiceURL() string
	GetCollaboratorAPIKey() string
}

// KafkaConfig provides settings for the activity stream.
type KafkaConfig interface {
	GetKafkaBrokers() []string
	GetKafkaActivityTopic() string
}

// TelemetryConfig provides OpenTelemetry tracing settings.
type TelemetryConfig interface {
	GetServiceName() string
	IsTracingEnabled() bool
	GetOTLPEndpoint() string
	GetTraceSampleRatio() float64
}

// IssueRulesConfig provides the thresholds used to derive appointment issue flags.
type IssueRulesConfig interface {
	GetGPSStaleAfter() time.Duration
	GetPriceTolerance() int64
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                         string
	HTTPAddr                    string
	DatabaseURL                 string
	JWTAccessSecret             string
	CORSAllowAll                bool
	CORSOrigins                 []string
	CORSAllowCreds              bool
	RedisURL                    string
	RedisTLSInsecure            bool
	MutationLockTTL             time.Duration
	AsynqQueueName              string
	AsynqConcurrency            int
	MinIOEndpoint               string
	MinIOAccessKey              string
	MinIOSecretKey              string
	MinIOUseSSL                 bool
	MinioBucketAppointmentMedia string
	SMTPHost                    string
	SMTPPort                    int
	SMTPUsername                string
	SMTPPassword                string
	EmailFromName               string
	EmailFromAddress            string
	WhatsAppURL                 string
	WhatsAppKey                 string
	WhatsAppDeviceID            string
	PaymentServiceURL           string
	ReputationServiceURL        string
	CollaboratorAPIKey          string
	KafkaBrokers                []string
	KafkaActivityTopic          string
	ServiceName                 string
	TracingEnabled              bool
	OTLPEndpoint                string
	TraceSampleRatio            float64
	IssueRules                  IssueRules
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }

// LockConfig implementation
func (c *Config) GetMutationLockTTL() time.Duration { return c.MutationLockTTL }

// SchedulerConfig implementation
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketAppointmentMedia() string {
	return c.MinioBucketAppointmentMedia
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsSMTPEnabled() bool {
	return c.SMTPHost != "" && c.EmailFromAddress != ""
}

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }

// CollaboratorConfig implementation
func (c *Config) GetPaymentServiceURL() string    { return c.PaymentServiceURL }
func (c *Config) GetReputationServiceURL() string { return c.ReputationServiceURL }
func (c *Config) GetCollaboratorAPIKey() string   { return c.CollaboratorAPIKey }

// KafkaConfig implementation
func (c *Config) GetKafkaBrokers() []string     { return c.KafkaBrokers }
func (c *Config) GetKafkaActivityTopic() string { return c.KafkaActivityTopic }

// TelemetryConfig implementation
func (c *Config) GetServiceName() string       { return c.ServiceName }
func (c *Config) IsTracingEnabled() bool       { return c.TracingEnabled }
func (c *Config) GetOTLPEndpoint() string      { return c.OTLPEndpoint }
func (c *Config) GetTraceSampleRatio() float64 { return c.TraceSampleRatio }

// IssueRulesConfig implementation
func (c *Config) GetGPSStaleAfter() time.Duration { return c.IssueRules.GPSStaleAfter }
func (c *Config) GetPriceTolerance() int64        { return c.IssueRules.PriceTolerance }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	rules := DefaultIssueRules()
	if path := getEnv("ISSUE_RULES_FILE", ""); path != "" {
		loaded, err := LoadIssueRules(path)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	cfg := &Config{
		Env:                         getEnv("APP_ENV", "development"),
		HTTPAddr:                    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                 getEnv("DATABASE_URL", ""),
		JWTAccessSecret:             getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:                corsAllowAll,
		CORSOrigins:                 corsOrigins,
		CORSAllowCreds:              strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                    getEnv("REDIS_URL", ""),
		RedisTLSInsecure:            strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		MutationLockTTL:             mustDuration(getEnv("MUTATION_LOCK_TTL", "10s")),
		AsynqQueueName:              getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:            mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		MinIOEndpoint:               getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:              getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:              getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                 strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketAppointmentMedia: getEnv("MINIO_BUCKET_APPOINTMENT_MEDIA", "appointment-media"),
		SMTPHost:                    getEnv("SMTP_HOST", ""),
		SMTPPort:                    mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:                getEnv("SMTP_USERNAME", ""),
		SMTPPassword:                getEnv("SMTP_PASSWORD", ""),
		EmailFromName:               getEnv("EMAIL_FROM_NAME", "Repair Ops"),
		EmailFromAddress:            getEnv("EMAIL_FROM_ADDRESS", ""),
		WhatsAppURL:                 strings.TrimRight(getEnv("WHATSAPP_URL", ""), "/"),
		WhatsAppKey:                 getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:            getEnv("WHATSAPP_DEVICE_ID", ""),
		PaymentServiceURL:           strings.TrimRight(getEnv("PAYMENT_SERVICE_URL", ""), "/"),
		ReputationServiceURL:        strings.TrimRight(getEnv("REPUTATION_SERVICE_URL", ""), "/"),
		CollaboratorAPIKey:          getEnv("COLLABORATOR_API_KEY", ""),
		KafkaBrokers:                splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaActivityTopic:          getEnv("KAFKA_ACTIVITY_TOPIC", "appointments.activity"),
		ServiceName:                 getEnv("OTEL_SERVICE_NAME", "repair-ops-api"),
		TracingEnabled:              strings.EqualFold(getEnv("OTEL_ENABLED", "false"), "true"),
		OTLPEndpoint:                getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TraceSampleRatio:            mustRatio(getEnv("OTEL_SAMPLING_RATIO", "1")),
		IssueRules:                  rules,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.MutationLockTTL <= 0 {
		return nil, fmt.Errorf("MUTATION_LOCK_TTL must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustRatio(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 || f > 1 {
		return 1
	}
	return f
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
