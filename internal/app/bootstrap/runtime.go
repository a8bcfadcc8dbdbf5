package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking/internal/availability"
	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/sheets"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; snapshot cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPolicy turns the configured granularity and status lists into an
// availability policy.
func BuildPolicy(cfg *appconfig.Config) (availability.Policy, error) {
	if cfg == nil {
		return availability.Policy{}, fmt.Errorf("bootstrap: config is required")
	}
	slot, err := availability.ParseStatusSet(cfg.SlotBlockingStatuses)
	if err != nil {
		return availability.Policy{}, fmt.Errorf("bootstrap: SLOT_BLOCKING_STATUSES: %w", err)
	}
	conflict, err := availability.ParseStatusSet(cfg.ConflictBlockingStatuses)
	if err != nil {
		return availability.Policy{}, fmt.Errorf("bootstrap: CONFLICT_BLOCKING_STATUSES: %w", err)
	}
	return availability.Policy{
		Granularity:      cfg.SlotGranularityMinutes,
		SlotBlocking:     slot,
		ConflictBlocking: conflict,
	}, nil
}

// BuildSheetsClient wires the spreadsheet service client. A missing URL is
// not fatal: every call then fails and the widget serves an empty schedule.
func BuildSheetsClient(cfg *appconfig.Config, logger *logging.Logger) (*sheets.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	format, err := sheets.ParseDateFormat(cfg.SheetsDateFormat)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: SHEETS_DATE_FORMAT: %w", err)
	}
	if strings.TrimSpace(cfg.SheetsURL) == "" {
		logger.Warn("SHEETS_URL not set; schedule fetches will fail")
	}
	return sheets.NewClient(cfg.SheetsURL, logger,
		sheets.WithTimeout(cfg.SheetsTimeout),
		sheets.WithDateFormat(format),
	), nil
}
