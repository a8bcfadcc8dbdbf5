package widget

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/salon-booking/internal/booking"
	"github.com/wolfman30/salon-booking/internal/normalize"
	"github.com/wolfman30/salon-booking/internal/sheets"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

const maxBodyBytes = 64 << 10

// Handler exposes the Service over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
	// bookingMiddleware wraps the bookings route only (rate limiting).
	bookingMiddleware []func(http.Handler) http.Handler
}

func NewHandler(svc *Service, logger *logging.Logger, bookingMiddleware ...func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger, bookingMiddleware: bookingMiddleware}
}

// Routes returns a chi router with the widget routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/config", h.GetConfig)
	r.Get("/dates", h.ListDates)
	r.Get("/days/{date}", h.GetDay)
	r.Get("/status", h.GetStatus)
	r.With(h.bookingMiddleware...).Post("/bookings", h.CreateBooking)
	return r
}

// GetConfig returns the page settings.
// GET /api/widget/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// ListDates returns the open dates of the horizon.
// GET /api/widget/dates
func (h *Handler) ListDates(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Dates(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, staleBody(err, "dates", view))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetDay returns the day view of a date.
// GET /api/widget/days/{date}?duration=30&refresh=1
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	duration := h.svc.DefaultDuration()
	if raw := strings.TrimSpace(r.URL.Query().Get("duration")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n > normalize.MinutesPerDay {
			writeError(w, http.StatusBadRequest, "duration must be a whole number of minutes, at most one day", "invalid_duration")
			return
		}
		duration = n
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	day, err := h.svc.Day(r.Context(), chi.URLParam(r, "date"), duration, force)
	if errors.Is(err, ErrInvalidDate) {
		writeError(w, http.StatusBadRequest, "invalid date", "invalid_date")
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, staleBody(err, "day", day))
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// GetStatus reports snapshot freshness and call outcomes.
// GET /api/widget/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// BookingBody is the booking form as posted by the page.
type BookingBody struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Duration    int    `json:"duration"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	Message     string `json:"message"`
}

// CreateBooking validates and submits a booking request.
// POST /api/widget/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var body BookingBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "invalid_body")
		return
	}

	conf, err := h.svc.Book(r.Context(), booking.Input{
		Date:        body.Date,
		Time:        body.Time,
		Duration:    body.Duration,
		ClientName:  body.ClientName,
		ClientEmail: body.ClientEmail,
		Message:     body.Message,
	})

	var verr *booking.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, conf)
	case errors.As(err, &verr):
		resp := map[string]any{
			"error": verr.Error(),
			"kind":  verr.Code(),
		}
		if verr.Open.Valid() && verr.Close.Valid() {
			resp["open"] = verr.Open.String()
			resp["close"] = verr.Close.String()
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, sheets.ErrSubmission):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   err.Error(),
			"kind":    "submission_failed",
			"request": body,
		})
	default:
		h.logger.Error("widget: unexpected booking error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "internal")
	}
}

func staleBody(err error, key string, data any) map[string]any {
	return map[string]any{
		"error": err.Error(),
		"kind":  "schedule_unavailable",
		"stale": true,
		key:     data,
	}
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, map[string]string{"error": msg, "kind": kind})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
