package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"kind":"slot_taken"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/widget/bookings", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "request completed", lines[0]["msg"])
	assert.EqualValues(t, http.StatusUnprocessableEntity, lines[0]["status"])
	assert.Equal(t, "req-42", lines[0]["request_id"])
	assert.Equal(t, "/api/widget/bookings", lines[0]["path"])
}

func TestRequestLoggerUsesChiRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	handler := chimiddleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.EqualValues(t, http.StatusOK, lines[0]["status"])
	assert.NotEmpty(t, lines[0]["request_id"])
	assert.Equal(t, lines[0]["request_id"], rec.Header().Get(RequestIDHeader))
}

func TestRequestLoggerGeneratesID(t *testing.T) {
	handler := RequestLogger(logging.NewWithWriter("error", &bytes.Buffer{}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}
