// Package fetcher performs single logical requests against the remote
// comment source with bounded retry and linear backoff.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for source fetch operations.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentpulse_fetch_requests_total",
		Help: "Total fetch attempts by outcome",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "commentpulse_fetch_duration_seconds",
		Help:    "Duration of a full fetch call including retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	fetchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commentpulse_fetch_retries_total",
		Help: "Total number of retry attempts",
	})

	fetchExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commentpulse_fetch_exhausted_total",
		Help: "Total number of fetches that exhausted all attempts",
	})
)

// maxBodySnippet caps the raw body excerpt used as a failure reason when
// the error body carries no structured message.
const maxBodySnippet = 300

// Config holds the fetcher configuration.
type Config struct {
	// MaxAttempts is the number of attempts per fetch, including the first.
	MaxAttempts int

	// BaseDelay is the backoff unit. The delay before attempt i+1 is
	// BaseDelay * (1 + i) - linear, not exponential.
	BaseDelay time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Fetcher issues requests with bounded retry. A fetch either yields the
// parsed payload or a terminal failure; there is no partial success.
type Fetcher struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// errorEnvelope is the structured error body the source returns on
// non-success status codes.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// New creates a fetcher.
func New(cfg Config) (*Fetcher, error) {
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.MaxAttempts)
	}
	if cfg.BaseDelay < 0 {
		return nil, fmt.Errorf("base_delay must not be negative (got %v)", cfg.BaseDelay)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "fetcher").Logger(),
	}, nil
}

// Fetch GETs url and decodes the JSON response into v. Each failed attempt
// captures a reason (structured error message, status + body snippet, or
// transport error); after MaxAttempts failures the last reason is surfaced
// in an ExhaustedError.
func (f *Fetcher) Fetch(ctx context.Context, url string, v any) error {
	start := time.Now()
	defer func() {
		fetchDuration.Observe(time.Since(start).Seconds())
	}()

	var lastReason string

	for attempt := 0; attempt < f.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			fetchRetriesTotal.Inc()

			// Linear backoff: baseDelay, 2*baseDelay, 3*baseDelay, ...
			delay := f.config.BaseDelay * time.Duration(attempt)
			f.logger.Debug().
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Str("reason", lastReason).
				Msg("Retrying fetch after backoff")

			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			case <-time.After(delay):
			}
		}

		reason, ok := f.attempt(ctx, url, v)
		if ok {
			if attempt > 0 {
				f.logger.Info().
					Int("attempt", attempt+1).
					Msg("Fetch succeeded after retry")
			}
			fetchRequestsTotal.WithLabelValues("success").Inc()
			return nil
		}
		lastReason = reason
		fetchRequestsTotal.WithLabelValues("failure").Inc()
	}

	fetchExhaustedTotal.Inc()
	f.logger.Warn().
		Str("url", url).
		Int("attempts", f.config.MaxAttempts).
		Str("reason", lastReason).
		Msg("Fetch attempts exhausted")

	return &ExhaustedError{
		URL:        url,
		Attempts:   f.config.MaxAttempts,
		LastReason: lastReason,
	}
}

// attempt performs one request. It returns ok=true on a parsed success
// payload, otherwise the failure reason for this attempt.
func (f *Fetcher) attempt(ctx context.Context, url string, v any) (reason string, ok bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Sprintf("create request: %v", err), false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Sprintf("request failed: %v", err), false
	}
	defer resp.Body.Close()

	// Read the body regardless of status; error payloads are structured.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("read body: %v", err), false
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failureReason(resp.StatusCode, body), false
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Sprintf("malformed response: %v", err), false
	}

	return "", true
}

// failureReason prefers the source's structured error message; without one
// it falls back to the status code and a truncated body excerpt.
func failureReason(status int, body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	snippet := string(body)
	if len(snippet) > maxBodySnippet {
		snippet = snippet[:maxBodySnippet]
	}
	return fmt.Sprintf("status %d: %s", status, snippet)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (f *Fetcher) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}
