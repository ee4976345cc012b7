// Package ingest owns the end-to-end ingestion run: it resolves the target
// identifier and credential, drives the page walker, isolates per-item
// failures, and fans the result out to the store, the classification
// service and the notifier.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/commentpulse/commentpulse/pkg/comments"
	"github.com/commentpulse/commentpulse/pkg/fetcher"
	"github.com/commentpulse/commentpulse/pkg/store"
	"github.com/commentpulse/commentpulse/pkg/walker"
)

// Prometheus metrics for ingestion runs.
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentpulse_runs_total",
		Help: "Total ingestion runs by status",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "commentpulse_run_duration_seconds",
		Help:    "Ingestion run duration in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)

// Store is the key-value collaborator the coordinator reads the credential
// from and publishes results to.
type Store interface {
	GetCredential(ctx context.Context) (string, error)
	SaveResult(ctx context.Context, target string, v any) error
}

// Classifier is the downstream sentiment-classification service.
type Classifier interface {
	Classify(ctx context.Context, records []comments.Record) (json.RawMessage, error)
}

// PageWalker produces the full record set for one target.
type PageWalker interface {
	Walk(ctx context.Context, target string, progress walker.ProgressFunc) ([]comments.Record, error)
}

// Notifier receives fire-and-forget progress and completion events.
// Implementations must not block.
type Notifier interface {
	Progress(target string, processed int)
	Completed(update Update)
}

// Update is the completion notification payload. Either Result (with an
// optional Classification) or Error is set; a classification failure sets
// both Result and Error, since the run itself still succeeded.
type Update struct {
	Target         string          `json:"target"`
	Result         *RunResult      `json:"result,omitempty"`
	Classification json.RawMessage `json:"classification,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// RunResult is the outcome of one ingestion run. It is owned by the
// coordinator until published, then read-only.
type RunResult struct {
	RunID     string            `json:"runId"`
	Target    string            `json:"target"`
	Records   []comments.Record `json:"records"`
	Processed int               `json:"processed"`
	StartedAt time.Time         `json:"startedAt"`
}

// StoredResult is what the coordinator persists per target: the run plus
// the classification payload, kept verbatim.
type StoredResult struct {
	Run            RunResult       `json:"run"`
	Classification json.RawMessage `json:"classification,omitempty"`
}

// Config holds the coordinator configuration.
type Config struct {
	// SourceURL is the comment source root.
	SourceURL string

	// PageSize is the requested items per page.
	PageSize int

	// PageDelay is the cooperative pause between outer pages.
	PageDelay time.Duration

	// Fetch configures the underlying resilient fetcher.
	Fetch fetcher.Config
}

// DefaultConfig returns a safe default configuration for a source URL.
func DefaultConfig(sourceURL string) Config {
	return Config{
		SourceURL: sourceURL,
		PageSize:  100,
		PageDelay: 250 * time.Millisecond,
		Fetch:     fetcher.DefaultConfig(),
	}
}

// Coordinator runs ingestions. Runs for different identifiers may proceed
// concurrently; a second run for an identifier already in flight is
// rejected with ErrRunInFlight.
type Coordinator struct {
	config     Config
	store      Store
	classifier Classifier
	notifier   Notifier
	logger     zerolog.Logger

	walkerFor func(key string) PageWalker

	mu         sync.Mutex
	inflight   map[string]bool
	lastTarget string
}

// New creates a coordinator.
func New(cfg Config, st Store, classifier Classifier, notifier Notifier) (*Coordinator, error) {
	if cfg.SourceURL == "" {
		return nil, fmt.Errorf("source URL is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	f, err := fetcher.New(cfg.Fetch)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	c := &Coordinator{
		config:     cfg,
		store:      st,
		classifier: classifier,
		notifier:   notifier,
		logger:     log.With().Str("component", "ingest").Logger(),
		inflight:   make(map[string]bool),
	}
	c.walkerFor = func(key string) PageWalker {
		source := walker.Source{BaseURL: cfg.SourceURL, Key: key, PageSize: cfg.PageSize}
		return walker.New(f, source, cfg.PageDelay)
	}

	return c, nil
}

// ResolveTarget resolves the run's target identifier: an explicit hint
// wins, then the `target`/`v` query parameter of the context URL, then the
// identifier of the previous run for an unchanged context.
func (c *Coordinator) ResolveTarget(hint, contextURL string) (string, error) {
	if hint != "" {
		return hint, nil
	}

	if contextURL != "" {
		if u, err := url.Parse(contextURL); err == nil {
			if target := u.Query().Get("target"); target != "" {
				return target, nil
			}
			if target := u.Query().Get("v"); target != "" {
				return target, nil
			}
		}
	}

	c.mu.Lock()
	last := c.lastTarget
	c.mu.Unlock()
	if last != "" {
		return last, nil
	}

	return "", ErrMissingIdentifier
}

// Run executes one ingestion for the resolved identifier. The caller
// always gets exactly one terminal outcome: a RunResult or an error.
func (c *Coordinator) Run(ctx context.Context, hint, contextURL string) (*RunResult, error) {
	target, err := c.ResolveTarget(hint, contextURL)
	if err != nil {
		runsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if !c.acquire(target) {
		runsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrRunInFlight, target)
	}
	defer c.release(target)

	start := time.Now()
	defer func() {
		runDuration.Observe(time.Since(start).Seconds())
	}()

	// Precondition: credential present. No network call otherwise.
	key, err := c.store.GetCredential(ctx)
	if err != nil {
		runsTotal.WithLabelValues("rejected").Inc()
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMissingCredential
		}
		return nil, fmt.Errorf("read credential: %w", err)
	}

	c.logger.Info().Str("target", target).Msg("Starting ingestion run")

	records, err := c.walkerFor(key).Walk(ctx, target, func(processed int) {
		if c.notifier != nil {
			c.notifier.Progress(target, processed)
		}
	})
	if err != nil {
		runsTotal.WithLabelValues("failure").Inc()
		runErr := &IngestionError{Target: target, Cause: err}
		c.logger.Error().Err(err).Str("target", target).Msg("Ingestion run failed")
		if c.notifier != nil {
			c.notifier.Completed(Update{Target: target, Error: runErr.Error()})
		}
		return nil, runErr
	}

	result := &RunResult{
		RunID:     uuid.NewString(),
		Target:    target,
		Records:   records,
		Processed: len(records),
		StartedAt: start.UTC(),
	}

	update := Update{Target: target, Result: result}

	// Downstream classification. Its failure does not fail the run; the
	// completion notification carries the error instead.
	if c.classifier != nil {
		classification, err := c.classifier.Classify(ctx, records)
		if err != nil {
			c.logger.Warn().Err(err).Str("target", target).Msg("Classification failed")
			update.Error = err.Error()
		} else {
			update.Classification = classification
		}
	}

	stored := StoredResult{Run: *result, Classification: update.Classification}
	if err := c.store.SaveResult(ctx, target, stored); err != nil {
		c.logger.Warn().Err(err).Str("target", target).Msg("Failed to persist run result")
	}

	c.mu.Lock()
	c.lastTarget = target
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.Completed(update)
	}

	runsTotal.WithLabelValues("success").Inc()
	c.logger.Info().
		Str("target", target).
		Str("run_id", result.RunID).
		Int("records", result.Processed).
		Dur("duration", time.Since(start)).
		Msg("Ingestion run complete")

	return result, nil
}

// acquire marks target as in flight; false when it already is.
func (c *Coordinator) acquire(target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[target] {
		return false
	}
	c.inflight[target] = true
	return true
}

func (c *Coordinator) release(target string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, target)
}

// SetWalkerFactory overrides walker construction (for testing).
func (c *Coordinator) SetWalkerFactory(factory func(key string) PageWalker) {
	c.walkerFor = factory
}
