// pkg/alerts/webhook.go
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/httpclient"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited is returned when an alert is dropped by the limiter.
	ErrRateLimited = cerr.New("alert dropped: rate limit exceeded")
)

// Sender delivers alerts somewhere a human will see them.
type Sender interface {
	Send(ctx context.Context, a Alert) error
}

// WebhookSender posts alerts to a chat incoming webhook.
type WebhookSender struct {
	url      string
	username string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// Option customises a WebhookSender.
type Option func(*WebhookSender)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(s *WebhookSender) { s.client = c }
}

// WithRateLimit allows perMinute alerts per minute with the given burst.
func WithRateLimit(perMinute, burst int) Option {
	return func(s *WebhookSender) {
		if perMinute <= 0 || burst <= 0 {
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
}

// WithBreaker trips the breaker after failures consecutive delivery errors and
// keeps it open for cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(s *WebhookSender) {
		s.breaker = newBreaker(failures, cooldown)
	}
}

// NewWebhookSender builds a sender for url. An empty username falls back to the default.
func NewWebhookSender(url, username string, opts ...Option) *WebhookSender {
	if username == "" {
		username = shared.DefaultAlertUsername
	}
	s := &WebhookSender{
		url:      url,
		username: username,
		client:   httpclient.DefaultClient(),
		limiter:  rate.NewLimiter(rate.Every(time.Minute/30), 10),
		breaker:  newBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newBreaker(failures uint32, cooldown time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "alert-webhook",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
	})
}

// Send posts a single alert. Dropped alerts return ErrRateLimited or
// gobreaker.ErrOpenState.
func (s *WebhookSender) Send(ctx context.Context, a Alert) error {
	if !s.limiter.Allow() {
		return ErrRateLimited
	}

	body, err := json.Marshal(a.Render(s.username))
	if err != nil {
		return cerr.Wrap(err, "failed to encode alert")
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.post(ctx, body)
	})
	return err
}

func (s *WebhookSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return cerr.Wrap(err, "failed to build alert request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return cerr.Wrap(err, "failed to deliver alert")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned %s", resp.Status)
	}
	return nil
}

// State reports the breaker state, mostly for tests and diagnostics.
func (s *WebhookSender) State() gobreaker.State {
	return s.breaker.State()
}
