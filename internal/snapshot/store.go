// Package snapshot owns the schedule the widget serves. The current schedule
// is replaced wholesale by each successful refresh; readers always see either
// the previous or the next snapshot, never a partial one.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/schedule"
	"github.com/wolfman30/salon-booking/internal/sheets"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// ErrSuperseded is returned by Refresh when a newer refresh was issued while
// this one was in flight. The response was discarded.
var ErrSuperseded = errors.New("snapshot: superseded by a newer refresh")

// Fetcher downloads the raw schedule.
type Fetcher interface {
	FetchSchedule(ctx context.Context) (*sheets.Payload, error)
}

// Status describes the snapshot currently served.
type Status struct {
	FetchedAt   time.Time `json:"fetched_at"`
	LastAttempt time.Time `json:"last_attempt"`
	LastError   string    `json:"last_error,omitempty"`
	FromCache   bool      `json:"from_cache"`
	Stale       bool      `json:"stale"`
	Windows     int       `json:"windows"`
	Appts       int       `json:"appointments"`
	Drops       int       `json:"drops"`
}

type StoreConfig struct {
	Fetcher Fetcher
	Cache   Cache
	Metrics *metrics.WidgetMetrics
	Logger  *logging.Logger
	Now     func() time.Time

	// Location is the salon's timezone, used to read instant-valued cells.
	Location *time.Location
}

// Store holds the current schedule and applies refreshes in
// last-request-wins order.
type Store struct {
	fetcher Fetcher
	cache   Cache
	metrics *metrics.WidgetMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
	now     func() time.Time
	loc     *time.Location

	current atomic.Pointer[schedule.Schedule]
	issued  atomic.Uint64

	mu          sync.Mutex
	applied     uint64
	lastAttempt time.Time
	lastErr     error
	fromCache   bool
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("snapshot: store requires fetcher")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Store{
		fetcher: cfg.Fetcher,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
		logger:  logger,
		tracer:  otel.Tracer("salon.internal.snapshot"),
		now:     now,
		loc:     cfg.Location,
	}
	s.current.Store(schedule.Empty())
	return s, nil
}

// Current returns the schedule being served. It is never nil; before the
// first refresh every date is closed.
func (s *Store) Current() *schedule.Schedule {
	return s.current.Load()
}

// Refresh downloads and applies a new schedule. On failure the previous
// schedule stays in place and the error is returned. When a newer Refresh
// starts before this one finishes, this response is dropped and
// ErrSuperseded is returned.
func (s *Store) Refresh(ctx context.Context) (*schedule.Schedule, error) {
	seq := s.issued.Add(1)

	ctx, span := s.tracer.Start(ctx, "snapshot.refresh")
	defer span.End()
	span.SetAttributes(attribute.Int64("snapshot.seq", int64(seq)))

	started := s.now()
	payload, err := s.fetcher.FetchSchedule(ctx)
	elapsed := s.now().Sub(started).Seconds()

	if err != nil {
		s.metrics.ObserveFetch("error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		s.recordFailure(seq, started, err)
		s.logger.WithContext(ctx).Warn("snapshot: refresh failed; serving previous schedule", "error", err, "seq", seq)
		return s.Current(), err
	}

	next := payload.Schedule(schedule.WithFetchedAt(s.now()), schedule.WithLocation(s.loc))

	s.mu.Lock()
	if seq != s.issued.Load() || seq <= s.applied {
		s.mu.Unlock()
		s.metrics.ObserveFetch("superseded", elapsed)
		span.SetAttributes(attribute.Bool("snapshot.superseded", true))
		s.logger.Debug("snapshot: discarding superseded response", "seq", seq)
		return s.Current(), ErrSuperseded
	}
	s.current.Store(next)
	s.applied = seq
	s.lastAttempt = started
	s.lastErr = nil
	s.fromCache = false
	s.mu.Unlock()

	s.metrics.ObserveFetch("success", elapsed)
	s.observe(ctx, next)

	if s.cache != nil && len(payload.Raw) > 0 {
		if err := s.cache.Store(ctx, Cached{Raw: payload.Raw, FetchedAt: next.FetchedAt}); err != nil {
			s.metrics.ObserveCache("store", "error")
			s.logger.Warn("snapshot: cache store failed", "error", err)
		} else {
			s.metrics.ObserveCache("store", "ok")
		}
	}
	return next, nil
}

// RefreshIfOlder refreshes when the current schedule was fetched more than
// maxAge ago. A failed or superseded refresh still returns the schedule being
// served alongside the error.
func (s *Store) RefreshIfOlder(ctx context.Context, maxAge time.Duration) (*schedule.Schedule, error) {
	cur := s.Current()
	if !cur.FetchedAt.IsZero() && s.now().Sub(cur.FetchedAt) <= maxAge {
		return cur, nil
	}
	return s.Refresh(ctx)
}

// Restore loads the cached payload when nothing has been fetched yet. It
// reports whether a schedule was restored.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	entry, err := s.cache.Load(ctx)
	if err != nil {
		s.metrics.ObserveCache("load", "error")
		return false, err
	}
	if entry == nil {
		s.metrics.ObserveCache("load", "miss")
		return false, nil
	}

	payload, err := sheets.DecodePayload(entry.Raw)
	if err != nil {
		s.metrics.ObserveCache("load", "error")
		return false, fmt.Errorf("snapshot: cached payload: %w", err)
	}
	restored := payload.Schedule(schedule.WithFetchedAt(entry.FetchedAt), schedule.WithLocation(s.loc))

	s.mu.Lock()
	if s.applied != 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.current.Store(restored)
	s.fromCache = true
	s.mu.Unlock()

	s.metrics.ObserveCache("load", "hit")
	s.observe(ctx, restored)
	s.logger.Info("snapshot: restored cached schedule", "fetched_at", entry.FetchedAt)
	return true, nil
}

// Status reports on the schedule being served.
func (s *Store) Status() Status {
	cur := s.Current()
	windows, appts := cur.Counts()

	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		FetchedAt:   cur.FetchedAt,
		LastAttempt: s.lastAttempt,
		FromCache:   s.fromCache,
		Windows:     windows,
		Appts:       appts,
		Drops:       len(cur.Drops()),
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	st.Stale = s.lastErr != nil || s.fromCache || cur.FetchedAt.IsZero()
	return st
}

func (s *Store) recordFailure(seq uint64, at time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		return
	}
	s.lastAttempt = at
	s.lastErr = err
}

func (s *Store) observe(ctx context.Context, sched *schedule.Schedule) {
	windows, appts := sched.Counts()
	drops := sched.Drops()
	byKind := map[string]int{}
	for _, d := range drops {
		byKind[string(d.Kind)]++
	}
	s.metrics.ObserveSnapshot(windows, appts, byKind, float64(sched.FetchedAt.Unix()))

	log := s.logger.WithContext(ctx)
	if len(drops) > 0 {
		log.Warn("snapshot: records dropped during normalization", "count", len(drops), "first", drops[0].String())
		for _, d := range drops {
			log.Debug("snapshot: dropped record", "kind", d.Kind, "index", d.Index, "reason", d.Reason)
		}
	}
	log.Info("snapshot: schedule applied", "windows", windows, "appointments", appts, "fetched_at", sched.FetchedAt)
}
