package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/salon-booking/internal/availability"
	"github.com/wolfman30/salon-booking/internal/booking"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/sheets"
	"github.com/wolfman30/salon-booking/internal/snapshot"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

const scheduleJSON = `{
  "status": "success",
  "disponibilites": [
    {"date": "2025-11-03", "openTime": "09:00", "closeTime": "12:00"},
    {"date": "2025-11-04", "openTime": "09:00", "closeTime": "12:00"},
    {"date": "05/11/2025", "openTime": "9h", "closeTime": "12:00"},
    {"date": "2025-11-06", "openTime": "", "closeTime": ""},
    {"date": "2025-11-08", "openTime": "10:00", "closeTime": "16:00"}
  ],
  "rdv": [
    {"date": "2025-11-05", "time": "09:30", "duration": 30, "status": "confirmed", "clientName": "Bob"}
  ]
}`

type stubFetcher struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (f *stubFetcher) FetchSchedule(ctx context.Context) (*sheets.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return sheets.DecodePayload([]byte(scheduleJSON))
}

func (f *stubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubSubmitter struct {
	mu   sync.Mutex
	reqs []booking.Request
	err  error
}

func (s *stubSubmitter) Submit(_ context.Context, req booking.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return "", s.err
	}
	return "Demande enregistrée", nil
}

type stubNotifier struct {
	notices []notify.BookingNotice
}

func (n *stubNotifier) NotifyBookingRequested(_ context.Context, notice notify.BookingNotice) error {
	n.notices = append(n.notices, notice)
	return errors.New("mail down")
}

type harness struct {
	fetcher   *stubFetcher
	submitter *stubSubmitter
	notifier  *stubNotifier
	store     *snapshot.Store
	svc       *Service
	router    http.Handler
}

func newHarness(t *testing.T, fetchErrs ...error) *harness {
	t.Helper()
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	now := func() time.Time { return time.Date(2025, 11, 4, 10, 0, 0, 0, paris) }

	logger := logging.New("error")
	reg := prometheus.NewRegistry()
	m := metrics.NewWidgetMetrics(reg)

	h := &harness{
		fetcher:   &stubFetcher{errs: fetchErrs},
		submitter: &stubSubmitter{},
		notifier:  &stubNotifier{},
	}
	h.store, err = snapshot.NewStore(snapshot.StoreConfig{
		Fetcher: h.fetcher,
		Metrics: m,
		Logger:  logger,
		Now:     now,
	})
	require.NoError(t, err)

	h.svc, err = NewService(ServiceConfig{
		Store:        h.store,
		Engine:       availability.New(availability.DefaultPolicy()),
		Submitter:    h.submitter,
		Notifier:     h.notifier,
		Metrics:      m,
		Gatherer:     reg,
		Logger:       logger,
		HorizonDays:  7,
		MaxAge:       time.Minute,
		Location:     paris,
		Now:          now,
		NewReference: func() string { return "ref-1" },
	})
	require.NoError(t, err)
	h.router = NewHandler(h.svc, logger).Routes()
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceConfig{Submitter: &stubSubmitter{}})
	assert.Error(t, err)

	store, err := snapshot.NewStore(snapshot.StoreConfig{Fetcher: &stubFetcher{}})
	require.NoError(t, err)
	_, err = NewService(ServiceConfig{Store: store})
	assert.Error(t, err)
}

func TestGetConfig(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/config", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 7, body["horizon_days"])
	assert.EqualValues(t, 15, body["granularity"])
	assert.EqualValues(t, 30, body["default_duration"])
	assert.Equal(t, "pending,confirmed", body["slot_blocking"])
	assert.Equal(t, "confirmed", body["conflict_blocking"])
	assert.Equal(t, "Europe/Paris", body["timezone"])
}

func TestListDates(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/dates", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var view DatesView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "2025-11-04", view.From.String())
	require.Len(t, view.Dates, 3)
	assert.Equal(t, "2025-11-04", view.Dates[0].String())
	assert.Equal(t, "2025-11-05", view.Dates[1].String())
	assert.Equal(t, "2025-11-08", view.Dates[2].String())
	assert.False(t, view.Stale)
	assert.NotNil(t, view.FetchedAt)

	// A second read within the max age reuses the snapshot.
	h.do(t, http.MethodGet, "/dates", nil)
	assert.Equal(t, 1, h.fetcher.Calls())
}

func TestListDatesFetchFailure(t *testing.T) {
	h := newHarness(t, &sheets.ServiceError{Kind: sheets.ErrScheduleFetch, Message: "quota exceeded"})

	rec := h.do(t, http.MethodGet, "/dates", nil)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["stale"])
	assert.Equal(t, "schedule_unavailable", body["kind"])
	assert.Contains(t, body["error"], "quota exceeded")
	dates := body["dates"].(map[string]any)
	assert.Empty(t, dates["dates"])
}

func TestGetDay(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/days/2025-11-05?duration=30", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var day DayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	assert.True(t, day.Open)
	assert.Equal(t, "09:00", day.OpenTime)
	assert.Equal(t, "12:00", day.CloseTime)
	assert.Equal(t, []string{"09:00", "10:00", "10:15", "10:30", "10:45", "11:00", "11:15", "11:30"}, day.FreeSlots)
	require.Len(t, day.Appointments, 1)
	assert.Equal(t, "09:30", day.Appointments[0].Time)
	assert.Equal(t, "10:00", day.Appointments[0].End)
	assert.True(t, day.Appointments[0].Blocking)
	assert.NotContains(t, rec.Body.String(), "Bob")
}

func TestGetDayAcceptsDayFirstDates(t *testing.T) {
	h := newHarness(t)

	day, err := h.svc.Day(context.Background(), "5/11/2025", 30, false)

	require.NoError(t, err)
	assert.Equal(t, "2025-11-05", day.Date.String())
	assert.Len(t, day.FreeSlots, 8)
}

func TestGetDayDefaultsDuration(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/days/2025-11-08", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 30, body["duration"])
}

func TestGetDayHidesStartedSlotsToday(t *testing.T) {
	h := newHarness(t)

	day, err := h.svc.Day(context.Background(), "2025-11-04", 30, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:15", "10:30", "10:45", "11:00", "11:15", "11:30"}, day.FreeSlots)

	past, err := h.svc.Day(context.Background(), "2025-11-03", 30, false)
	require.NoError(t, err)
	assert.True(t, past.Open)
	assert.Empty(t, past.FreeSlots)
}

func TestGetDayClosedAndNonPositiveDuration(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/days/2025-11-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["open"])
	assert.Empty(t, body["free_slots"])

	rec = h.do(t, http.MethodGet, "/days/2025-11-05?duration=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["free_slots"])
}

func TestGetDayBadInput(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/days/not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", decode(t, rec)["kind"])

	for _, q := range []string{"half", "1441", "9223372036854775807", "99999999999999999999"} {
		rec = h.do(t, http.MethodGet, "/days/2025-11-05?duration="+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Equal(t, "invalid_duration", decode(t, rec)["kind"], q)
	}

	rec = h.do(t, http.MethodGet, "/days/2025-11-05?duration=1440", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["free_slots"])
}

func TestGetDayForcedRefresh(t *testing.T) {
	h := newHarness(t)

	h.do(t, http.MethodGet, "/days/2025-11-05", nil)
	h.do(t, http.MethodGet, "/days/2025-11-05?refresh=1", nil)

	assert.Equal(t, 2, h.fetcher.Calls())
}

func TestGetDayServesPreviousSnapshotWhenRefreshFails(t *testing.T) {
	h := newHarness(t, nil, errors.New("connection reset"))

	h.do(t, http.MethodGet, "/dates", nil)
	rec := h.do(t, http.MethodGet, "/days/2025-11-05?refresh=true", nil)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["stale"])
	day := body["day"].(map[string]any)
	assert.Equal(t, true, day["open"])
	assert.Len(t, day["free_slots"], 8)
}

func TestCreateBooking(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Refresh(context.Background())
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/bookings", BookingBody{
		Date:        "05/11/2025",
		Time:        "10h",
		Duration:    45,
		ClientName:  " Alice ",
		ClientEmail: "alice@example.com",
		Message:     "Coupe",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{
		"status": "pending",
		"reference": "ref-1",
		"message": "Demande enregistrée",
		"request": {
			"date": "2025-11-05",
			"time": "10:00",
			"duration": 45,
			"client_name": "Alice",
			"client_email": "alice@example.com",
			"message": "Coupe"
		}
	}`, rec.Body.String())

	require.Len(t, h.submitter.reqs, 1)
	assert.Equal(t, 2, h.fetcher.Calls(), "expected a refresh after the booking")
	require.Len(t, h.notifier.notices, 1, "notification failure must not fail the booking")
	notice := h.notifier.notices[0]
	assert.Equal(t, "ref-1", notice.Reference)
	assert.Equal(t, "10:45", notice.End)

	status := h.svc.Status()
	assert.Equal(t, 1.0, status.Submits["success"])
}

func TestCreateBookingValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  BookingBody
		kind  string
		open  string
		close string
	}{
		{name: "missing time", body: BookingBody{Date: "2025-11-05", Duration: 30}, kind: "missing_date_time"},
		{name: "zero duration", body: BookingBody{Date: "2025-11-05", Time: "10:00"}, kind: "invalid_duration"},
		{name: "overflowing duration", body: BookingBody{Date: "2025-11-05", Time: "09:30", Duration: math.MaxInt}, kind: "invalid_duration"},
		{name: "closed", body: BookingBody{Date: "2025-11-06", Time: "10:00", Duration: 30}, kind: "closed"},
		{name: "outside hours", body: BookingBody{Date: "2025-11-05", Time: "08:00", Duration: 30}, kind: "outside_hours", open: "09:00", close: "12:00"},
		{name: "taken", body: BookingBody{Date: "2025-11-05", Time: "09:45", Duration: 15}, kind: "slot_taken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.store.Refresh(context.Background())
			require.NoError(t, err)

			rec := h.do(t, http.MethodPost, "/bookings", tt.body)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.kind, body["kind"])
			if tt.open != "" {
				assert.Equal(t, tt.open, body["open"])
				assert.Equal(t, tt.close, body["close"])
				assert.Equal(t, "outside business hours (09:00-12:00)", body["error"])
			} else {
				assert.NotContains(t, body, "open")
			}
			assert.Empty(t, h.submitter.reqs, "validation failures must not reach the service")
			assert.Equal(t, 1, h.fetcher.Calls())
		})
	}
}

func TestCreateBookingSubmissionFailure(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Refresh(context.Background())
	require.NoError(t, err)
	h.submitter.err = &sheets.ServiceError{Kind: sheets.ErrSubmission, Message: "sheet locked"}

	rec := h.do(t, http.MethodPost, "/bookings", BookingBody{
		Date: "2025-11-05", Time: "10:00", Duration: 30, ClientName: "Alice",
	})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "submission_failed", body["kind"])
	assert.Contains(t, body["error"], "sheet locked")
	echoed := body["request"].(map[string]any)
	assert.Equal(t, "Alice", echoed["client_name"])
	assert.Equal(t, "10:00", echoed["time"])
	assert.Empty(t, h.notifier.notices)
	assert.Equal(t, 1.0, h.svc.Status().Submits["error"])
}

func TestCreateBookingInvalidJSON(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatus(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodGet, "/dates", nil)

	rec := h.do(t, http.MethodGet, "/status", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var view StatusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 1.0, view.Fetches["success"])
	assert.Equal(t, 5, view.Snapshot.Windows)
	assert.Equal(t, 1, view.Snapshot.Appts)
	assert.False(t, view.Snapshot.Stale)
}

func TestBookingMiddlewareWrapsOnlyBookings(t *testing.T) {
	h := newHarness(t)
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	router := NewHandler(h.svc, nil, blocked).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
