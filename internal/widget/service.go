// Package widget serves the booking page: open dates, the day view of a
// chosen date, and booking requests, all read from the current schedule
// snapshot.
package widget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/salon-booking/internal/availability"
	"github.com/wolfman30/salon-booking/internal/booking"
	"github.com/wolfman30/salon-booking/internal/normalize"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/schedule"
	"github.com/wolfman30/salon-booking/internal/snapshot"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// ErrInvalidDate is returned when a requested date cannot be read.
var ErrInvalidDate = errors.New("widget: invalid date")

// Submitter forwards a validated booking to the spreadsheet service.
type Submitter interface {
	Submit(ctx context.Context, req booking.Request) (string, error)
}

// Notifier tells the operator about an accepted request.
type Notifier interface {
	NotifyBookingRequested(ctx context.Context, notice notify.BookingNotice) error
}

type ServiceConfig struct {
	Store     *snapshot.Store
	Engine    *availability.Engine
	Submitter Submitter
	Notifier  Notifier
	Metrics   *metrics.WidgetMetrics
	Gatherer  prometheus.Gatherer
	Logger    *logging.Logger

	HorizonDays     int
	DefaultDuration int
	MaxAge          time.Duration
	Location        *time.Location
	Now             func() time.Time
	NewReference    func() string
}

// Service answers the booking page's questions.
type Service struct {
	store     *snapshot.Store
	engine    *availability.Engine
	builder   *booking.Builder
	submitter Submitter
	notifier  Notifier
	metrics   *metrics.WidgetMetrics
	gatherer  prometheus.Gatherer
	logger    *logging.Logger
	tracer    trace.Tracer

	horizonDays     int
	defaultDuration int
	maxAge          time.Duration
	location        *time.Location
	now             func() time.Time
	newReference    func() string
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("widget: service requires snapshot store")
	}
	if cfg.Submitter == nil {
		return nil, errors.New("widget: service requires submitter")
	}
	engine := cfg.Engine
	if engine == nil {
		engine = availability.New(availability.DefaultPolicy())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	svc := &Service{
		store:           cfg.Store,
		engine:          engine,
		builder:         booking.NewBuilder(engine),
		submitter:       cfg.Submitter,
		notifier:        cfg.Notifier,
		metrics:         cfg.Metrics,
		gatherer:        cfg.Gatherer,
		logger:          logger,
		tracer:          otel.Tracer("salon.internal.widget"),
		horizonDays:     cfg.HorizonDays,
		defaultDuration: cfg.DefaultDuration,
		maxAge:          cfg.MaxAge,
		location:        cfg.Location,
		now:             cfg.Now,
		newReference:    cfg.NewReference,
	}
	if svc.horizonDays <= 0 {
		svc.horizonDays = 30
	}
	if svc.defaultDuration <= 0 {
		svc.defaultDuration = 30
	}
	if svc.location == nil {
		svc.location = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.newReference == nil {
		svc.newReference = uuid.NewString
	}
	return svc, nil
}

// Settings is what the page needs before its first request.
type Settings struct {
	HorizonDays      int    `json:"horizon_days"`
	Granularity      int    `json:"granularity"`
	DefaultDuration  int    `json:"default_duration"`
	SlotBlocking     string `json:"slot_blocking"`
	ConflictBlocking string `json:"conflict_blocking"`
	Timezone         string `json:"timezone"`
}

func (s *Service) Settings() Settings {
	p := s.engine.Policy()
	return Settings{
		HorizonDays:      s.horizonDays,
		Granularity:      p.Granularity,
		DefaultDuration:  s.defaultDuration,
		SlotBlocking:     p.SlotBlocking.String(),
		ConflictBlocking: p.ConflictBlocking.String(),
		Timezone:         s.location.String(),
	}
}

// DefaultDuration is the booking length the page starts with.
func (s *Service) DefaultDuration() int {
	return s.defaultDuration
}

// Freshness describes the snapshot an answer was computed from.
type Freshness struct {
	Stale     bool       `json:"stale"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

type DatesView struct {
	From  normalize.DateKey   `json:"from"`
	Days  int                 `json:"days"`
	Dates []normalize.DateKey `json:"dates"`
	Freshness
}

type DayResponse struct {
	availability.DayView
	Freshness
}

// Dates lists the open dates of the horizon starting today. A failed refresh
// still returns the dates of the schedule being served, marked stale, along
// with the error.
func (s *Service) Dates(ctx context.Context) (DatesView, error) {
	ctx, span := s.tracer.Start(ctx, "widget.dates")
	defer span.End()

	sched, err := s.load(ctx, false, span)
	today := s.today()
	view := DatesView{
		From:      today,
		Days:      s.horizonDays,
		Dates:     s.engine.ListOpenDates(sched, today, s.horizonDays),
		Freshness: s.freshness(sched, err),
	}
	span.SetAttributes(attribute.Int("widget.open_dates", len(view.Dates)))
	return view, err
}

// Day returns the day view of rawDate for a booking of duration minutes.
// force refreshes the snapshot regardless of its age. Slots that already
// started in the salon's timezone are not offered.
func (s *Service) Day(ctx context.Context, rawDate string, duration int, force bool) (DayResponse, error) {
	date, ok := normalize.NormalizeDate(rawDate)
	if !ok {
		return DayResponse{}, fmt.Errorf("%w: %q", ErrInvalidDate, rawDate)
	}

	ctx, span := s.tracer.Start(ctx, "widget.day")
	defer span.End()
	span.SetAttributes(
		attribute.String("widget.date", date.String()),
		attribute.Int("widget.duration", duration),
	)

	sched, err := s.load(ctx, force, span)
	view := s.engine.Day(sched, date, duration)
	view.FreeSlots = s.dropPast(date, view.FreeSlots)
	s.metrics.ObserveSlots(len(view.FreeSlots))

	return DayResponse{DayView: view, Freshness: s.freshness(sched, err)}, err
}

// Confirmation is returned once the spreadsheet service queued the request.
type Confirmation struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Message   string          `json:"message,omitempty"`
	Request   booking.Request `json:"request"`
}

// Book validates in against the current schedule and submits it. Validation
// failures are *booking.ValidationError and make no network call. After a
// successful submission the schedule is refreshed so the new pending request
// shows up, and the operator is notified. Neither follow-up fails the call.
func (s *Service) Book(ctx context.Context, in booking.Input) (*Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "widget.book")
	defer span.End()
	log := s.logger.WithContext(ctx)

	req, err := s.builder.Build(s.store.Current(), in)
	if err != nil {
		s.metrics.ObserveSubmit("invalid")
		span.SetAttributes(attribute.String("widget.rejected", err.Error()))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("widget.date", req.Date.String()),
		attribute.String("widget.time", req.Time.String()),
		attribute.Int("widget.duration", req.Duration),
	)

	message, err := s.submitter.Submit(ctx, req)
	if err != nil {
		s.metrics.ObserveSubmit("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		log.Error("widget: booking submission failed", "error", err, "date", req.Date, "time", req.Time)
		return nil, err
	}
	s.metrics.ObserveSubmit("success")

	conf := &Confirmation{
		Status:    "pending",
		Reference: s.newReference(),
		Message:   message,
		Request:   req,
	}
	span.SetAttributes(attribute.String("widget.reference", conf.Reference))
	log.Info("widget: booking request queued", "reference", conf.Reference, "date", req.Date, "time", req.Time, "duration", req.Duration)

	if _, err := s.store.Refresh(ctx); err != nil && !errors.Is(err, snapshot.ErrSuperseded) {
		log.Warn("widget: refresh after booking failed", "error", err, "reference", conf.Reference)
	}
	if s.notifier != nil {
		notice := notify.BookingNotice{
			Reference:   conf.Reference,
			Date:        req.Date.String(),
			Time:        req.Time.String(),
			End:         req.End().String(),
			Duration:    req.Duration,
			ClientName:  req.ClientName,
			ClientEmail: req.ClientEmail,
			Message:     req.Message,
			SubmittedAt: s.now(),
		}
		if err := s.notifier.NotifyBookingRequested(ctx, notice); err != nil {
			log.Warn("widget: operator notification failed", "error", err, "reference", conf.Reference)
		}
	}
	return conf, nil
}

// StatusView is the diagnostics answer: snapshot state plus call outcomes.
type StatusView struct {
	Snapshot snapshot.Status    `json:"snapshot"`
	Fetches  map[string]float64 `json:"fetches"`
	Submits  map[string]float64 `json:"submissions"`
}

func (s *Service) Status() StatusView {
	view := StatusView{
		Snapshot: s.store.Status(),
		Fetches:  map[string]float64{},
		Submits:  map[string]float64{},
	}
	if s.gatherer != nil {
		view.Fetches = metrics.Totals(s.gatherer, metrics.FetchTotalName)
		view.Submits = metrics.Totals(s.gatherer, metrics.SubmitTotalName)
	}
	return view
}

func (s *Service) load(ctx context.Context, force bool, span trace.Span) (*schedule.Schedule, error) {
	var (
		sched *schedule.Schedule
		err   error
	)
	if force {
		sched, err = s.store.Refresh(ctx)
	} else {
		sched, err = s.store.RefreshIfOlder(ctx, s.maxAge)
	}
	if errors.Is(err, snapshot.ErrSuperseded) {
		// A newer refresh already landed.
		return s.store.Current(), nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schedule refresh failed")
	}
	return sched, err
}

func (s *Service) freshness(sched *schedule.Schedule, err error) Freshness {
	f := Freshness{Stale: err != nil || s.store.Status().Stale}
	if !sched.FetchedAt.IsZero() {
		at := sched.FetchedAt
		f.FetchedAt = &at
	}
	return f
}

func (s *Service) today() normalize.DateKey {
	return normalize.DateKeyOf(s.now().In(s.location))
}

func (s *Service) dropPast(date normalize.DateKey, slots []string) []string {
	today := s.today()
	switch {
	case date > today:
		return slots
	case date < today:
		return []string{}
	}
	local := s.now().In(s.location)
	current := normalize.TimeOfDay(local.Hour()*60 + local.Minute())
	kept := []string{}
	for _, raw := range slots {
		if t, ok := normalize.NormalizeTime(raw); ok && t > current {
			kept = append(kept, raw)
		}
	}
	return kept
}
