package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const maxHorizonDays = 60

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Spreadsheet booking service
	SheetsURL        string
	SheetsTimeout    time.Duration
	SheetsDateFormat string

	// Availability
	HorizonDays              int
	SlotGranularityMinutes   int
	DefaultDurationMinutes   int
	SlotBlockingStatuses     []string
	ConflictBlockingStatuses []string
	SalonTimezone            string

	// Snapshot
	SnapshotMaxAge          time.Duration
	SnapshotRefreshInterval time.Duration
	SnapshotCacheTTL        time.Duration
	RedisAddr               string
	RedisPassword           string
	RedisTLS                bool

	// HTTP
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Operator notifications
	NotifyEmailProvider string
	OperatorEmail       string
	SendGridAPIKey      string
	SendGridFromEmail   string
	SendGridFromName    string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SheetsURL:        getEnv("SHEETS_URL", ""),
		SheetsTimeout:    getEnvAsDuration("SHEETS_TIMEOUT", 15*time.Second),
		SheetsDateFormat: strings.ToLower(strings.TrimSpace(getEnv("SHEETS_DATE_FORMAT", "iso"))),

		HorizonDays:              clamp(getEnvAsInt("HORIZON_DAYS", 30), 1, maxHorizonDays),
		SlotGranularityMinutes:   getEnvAsInt("SLOT_GRANULARITY_MINUTES", 15),
		DefaultDurationMinutes:   getEnvAsInt("DEFAULT_DURATION_MINUTES", 30),
		SlotBlockingStatuses:     getEnvAsList("SLOT_BLOCKING_STATUSES", []string{"confirmed", "pending"}),
		ConflictBlockingStatuses: getEnvAsList("CONFLICT_BLOCKING_STATUSES", []string{"confirmed"}),
		SalonTimezone:            getEnv("SALON_TIMEZONE", "Europe/Paris"),

		SnapshotMaxAge:          getEnvAsDuration("SNAPSHOT_MAX_AGE", time.Minute),
		SnapshotRefreshInterval: getEnvAsDuration("SNAPSHOT_REFRESH_INTERVAL", 5*time.Minute),
		SnapshotCacheTTL:        getEnvAsDuration("SNAPSHOT_CACHE_TTL", 24*time.Hour),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisTLS:                getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		NotifyEmailProvider: strings.ToLower(strings.TrimSpace(getEnv("NOTIFY_EMAIL_PROVIDER", ""))),
		OperatorEmail:       getEnv("OPERATOR_EMAIL", ""),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:   getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", "Salon booking"),

		AWSRegion:           getEnv("AWS_REGION", "eu-west-3"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// Location resolves SalonTimezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SalonTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
