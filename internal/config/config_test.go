package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "HORIZON_DAYS", "SLOT_BLOCKING_STATUSES", "CONFLICT_BLOCKING_STATUSES", "SHEETS_DATE_FORMAT", "REDIS_ADDR", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.HorizonDays != 30 {
		t.Fatalf("expected default horizon 30, got %d", cfg.HorizonDays)
	}
	if cfg.SlotGranularityMinutes != 15 || cfg.DefaultDurationMinutes != 30 {
		t.Fatalf("unexpected slot defaults %d/%d", cfg.SlotGranularityMinutes, cfg.DefaultDurationMinutes)
	}
	if !reflect.DeepEqual(cfg.SlotBlockingStatuses, []string{"confirmed", "pending"}) {
		t.Fatalf("unexpected slot blocking default %v", cfg.SlotBlockingStatuses)
	}
	if !reflect.DeepEqual(cfg.ConflictBlockingStatuses, []string{"confirmed"}) {
		t.Fatalf("unexpected conflict blocking default %v", cfg.ConflictBlockingStatuses)
	}
	if cfg.SheetsDateFormat != "iso" {
		t.Fatalf("expected iso date format, got %s", cfg.SheetsDateFormat)
	}
	if cfg.SnapshotMaxAge != time.Minute {
		t.Fatalf("expected 1m max age, got %s", cfg.SnapshotMaxAge)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected redis disabled by default, got %s", cfg.RedisAddr)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SHEETS_URL", "https://script.google.com/macros/s/abc/exec")
	t.Setenv("SHEETS_TIMEOUT", "5s")
	t.Setenv("SHEETS_DATE_FORMAT", " DayFirst ")
	t.Setenv("HORIZON_DAYS", "14")
	t.Setenv("SLOT_BLOCKING_STATUSES", "confirmed")
	t.Setenv("CONFLICT_BLOCKING_STATUSES", " confirmed , pending ,")
	t.Setenv("SNAPSHOT_REFRESH_INTERVAL", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://salon.example,https://www.salon.example")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("REDIS_TLS", "true")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.SheetsURL != "https://script.google.com/macros/s/abc/exec" {
		t.Fatalf("unexpected sheets url %s", cfg.SheetsURL)
	}
	if cfg.SheetsTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.SheetsTimeout)
	}
	if cfg.SheetsDateFormat != "dayfirst" {
		t.Fatalf("expected dayfirst, got %q", cfg.SheetsDateFormat)
	}
	if cfg.HorizonDays != 14 {
		t.Fatalf("expected horizon override, got %d", cfg.HorizonDays)
	}
	if !reflect.DeepEqual(cfg.SlotBlockingStatuses, []string{"confirmed"}) {
		t.Fatalf("unexpected slot blocking %v", cfg.SlotBlockingStatuses)
	}
	if !reflect.DeepEqual(cfg.ConflictBlockingStatuses, []string{"confirmed", "pending"}) {
		t.Fatalf("unexpected conflict blocking %v", cfg.ConflictBlockingStatuses)
	}
	if cfg.SnapshotRefreshInterval != 90*time.Second {
		t.Fatalf("expected refresh interval override, got %s", cfg.SnapshotRefreshInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 0.5 {
		t.Fatalf("expected rps override, got %v", cfg.RateLimitRPS)
	}
	if !cfg.RedisTLS {
		t.Fatal("expected redis TLS enabled")
	}
}

func TestLoadClampsHorizon(t *testing.T) {
	t.Setenv("HORIZON_DAYS", "365")
	if got := Load().HorizonDays; got != 60 {
		t.Fatalf("expected horizon clamped to 60, got %d", got)
	}
	t.Setenv("HORIZON_DAYS", "0")
	if got := Load().HorizonDays; got != 1 {
		t.Fatalf("expected horizon clamped to 1, got %d", got)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{SalonTimezone: "Mars/Olympus"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", cfg.Location())
	}
}
