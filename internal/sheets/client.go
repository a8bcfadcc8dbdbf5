package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking/internal/booking"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 8 << 20
)

// Client calls the spreadsheet service's single endpoint: GET returns the
// schedule, POST queues a booking request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	dateFormat DateFormat
	logger     *logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithDateFormat sets the date format of outbound requests.
func WithDateFormat(f DateFormat) Option {
	return func(c *Client) {
		if f != "" {
			c.dateFormat = f
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient constructs a client for the service at baseURL.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimSpace(baseURL),
		dateFormat: DateFormatISO,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DateFormat returns the outbound date format.
func (c *Client) DateFormat() DateFormat {
	return c.dateFormat
}

// FetchSchedule downloads the current opening hours and appointments. Any
// failure is a *ServiceError matching ErrScheduleFetch.
func (c *Client) FetchSchedule(ctx context.Context) (*Payload, error) {
	raw, status, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, &ServiceError{Kind: ErrScheduleFetch, StatusCode: status, Cause: err}
	}
	payload, err := DecodePayload(raw)
	if err != nil {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) {
			svcErr.StatusCode = status
		}
		return nil, err
	}
	return payload, nil
}

// DecodePayload parses a schedule response body. A body whose status is not
// "success" yields a *ServiceError carrying the service's message.
func DecodePayload(raw []byte) (*Payload, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ServiceError{Kind: ErrScheduleFetch, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if !env.ok() {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = fmt.Sprintf("service returned status %q", env.Status)
		}
		return nil, &ServiceError{Kind: ErrScheduleFetch, Message: msg}
	}
	return &Payload{
		Windows:      env.windows(),
		Appointments: env.appointments(),
		Raw:          raw,
	}, nil
}

// Submit sends req to the service and returns its confirmation message. Any
// failure is a *ServiceError matching ErrSubmission.
func (c *Client) Submit(ctx context.Context, req booking.Request) (string, error) {
	raw, status, err := c.do(ctx, http.MethodPost, newSubmission(req, c.dateFormat))
	if err != nil {
		return "", &ServiceError{Kind: ErrSubmission, StatusCode: status, Cause: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", &ServiceError{Kind: ErrSubmission, StatusCode: status, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if !env.ok() {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = "request rejected"
		}
		c.logger.Warn("sheets: booking rejected", "date", req.Date, "time", req.Time, "message", msg)
		return "", &ServiceError{Kind: ErrSubmission, StatusCode: status, Message: msg}
	}
	return env.Message, nil
}

func (c *Client) do(ctx context.Context, method string, body interface{}) ([]byte, int, error) {
	if c.baseURL == "" {
		return nil, 0, fmt.Errorf("service URL not configured")
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("sheets service non-2xx response", "status", resp.StatusCode, "method", method, "body", msg)
		return nil, resp.StatusCode, fmt.Errorf("service returned %d: %s", resp.StatusCode, msg)
	}
	return respBody, resp.StatusCode, nil
}
