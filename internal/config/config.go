package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	BotToken string
	OwnerID  int64

	ProviderURL    string
	ProviderAPIKey string

	PollInterval     time.Duration
	PollErrorBackoff time.Duration
	ProviderTimeout  time.Duration
	SweepInterval    time.Duration

	OwnerLink   string
	ChannelLink string
	SupportLink string
	OTPGroup    string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	AdminPasswordHash string // bcrypt hash for the admin API login
	JWTSecret         string
	JWTExpiry         time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	OTPRecords    string
	Deliveries    string
	Subscriptions string
	Ranges        string
	Documents     string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		BotToken: getEnv("BOT_TOKEN", ""),
		OwnerID:  getEnvInt64("OWNER_ID", 0),

		ProviderURL:    getEnv("PROVIDER_URL", "https://api.iprn-elite.com/v1.0/json"),
		ProviderAPIKey: getEnv("APIKEY", ""),

		PollInterval:     getEnvDuration("POLL_INTERVAL", 10*time.Second),
		PollErrorBackoff: getEnvDuration("POLL_ERROR_BACKOFF", 30*time.Second),
		ProviderTimeout:  getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),
		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", time.Minute),

		OwnerLink:   getEnv("OWNER_LINK", ""),
		ChannelLink: getEnv("CH_INFO", ""),
		SupportLink: getEnv("SUPPORT", ""),
		OTPGroup:    getEnv("OTPS_GROUP", ""),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			OTPRecords:    getEnv("DYNAMO_TABLE_OTP_RECORDS", "otp_records"),
			Deliveries:    getEnv("DYNAMO_TABLE_DELIVERIES", "deliveries"),
			Subscriptions: getEnv("DYNAMO_TABLE_SUBSCRIPTIONS", "subscriptions"),
			Ranges:        getEnv("DYNAMO_TABLE_RANGES", "number_ranges"),
			Documents:     getEnv("DYNAMO_TABLE_DOCUMENTS", "documents"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "otp-relay-ranges"),

		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 24*time.Hour),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// Validate checks the settings without which the process cannot run.
// This is the only fatal error path in the system.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN not set")
	}
	if c.ProviderAPIKey == "" {
		return fmt.Errorf("APIKEY not set")
	}
	if c.OwnerID == 0 {
		return fmt.Errorf("OWNER_ID not set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
