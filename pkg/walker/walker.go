// Package walker drives repeated fetches over the cursor-paginated comment
// source, including the nested reply walk under each top-level comment.
package walker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/commentpulse/commentpulse/pkg/comments"
	"github.com/commentpulse/commentpulse/pkg/fetcher"
	"github.com/commentpulse/commentpulse/pkg/throttle"
)

// Prometheus metrics for page walking.
var (
	walkPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentpulse_walk_pages_total",
		Help: "Total pages fetched by kind (comments, replies)",
	}, []string{"kind"})

	walkRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commentpulse_walk_records_total",
		Help: "Total records produced by page walks",
	})

	walkRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commentpulse_walk_items_rejected_total",
		Help: "Total malformed source items rejected during normalization",
	})

	walkReplyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commentpulse_walk_reply_failures_total",
		Help: "Total nested reply walks that failed and degraded to zero children",
	})
)

// ErrPageWalkFailed is returned when the outer page loop aborts.
var ErrPageWalkFailed = errors.New("page walk failed")

// WalkError reports an aborted outer walk for a seed identifier.
type WalkError struct {
	SeedID string
	Cause  error
}

// Error implements the error interface.
func (e *WalkError) Error() string {
	return fmt.Sprintf("page walk for %q failed: %v", e.SeedID, e.Cause)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *WalkError) Unwrap() error {
	return e.Cause
}

// Is matches the ErrPageWalkFailed sentinel.
func (e *WalkError) Is(target error) bool {
	return target == ErrPageWalkFailed
}

// page is one source response: an item list and an optional continuation
// cursor. An absent cursor means the last page.
type page struct {
	Items      []comments.RawItem `json:"items"`
	NextCursor string             `json:"nextCursor"`
}

// ProgressFunc receives the cumulative record count after each completed
// outer page.
type ProgressFunc func(processed int)

// Walker walks all pages for a seed identifier. Each Walk call starts with
// fresh cursor state; a Walker is reusable across runs.
type Walker struct {
	fetcher *fetcher.Fetcher
	source  Source
	pacer   *throttle.Pacer
	logger  zerolog.Logger
}

// New creates a walker. pageDelay is the cooperative pause between outer
// pages; zero disables it.
func New(f *fetcher.Fetcher, source Source, pageDelay time.Duration) *Walker {
	return &Walker{
		fetcher: f,
		source:  source,
		pacer:   throttle.NewPacer(pageDelay),
		logger:  log.With().Str("component", "walker").Logger(),
	}
}

// Walk fetches every page for target and returns the normalized records in
// source order, replies following their parent. Outer fetch failures abort
// the walk with a WalkError; nested reply failures degrade to zero children.
func (w *Walker) Walk(ctx context.Context, target string, progress ProgressFunc) ([]comments.Record, error) {
	var records []comments.Record
	cursor := ""

	for {
		var pg page
		if err := w.fetcher.Fetch(ctx, w.source.CommentsURL(target, cursor), &pg); err != nil {
			return nil, &WalkError{SeedID: target, Cause: err}
		}
		walkPagesTotal.WithLabelValues("comments").Inc()

		for _, item := range pg.Items {
			record, err := comments.Normalize(item)
			if err != nil {
				walkRejectedTotal.Inc()
				w.logger.Warn().Err(err).Str("target", target).Msg("Rejected malformed item")
				continue
			}
			records = append(records, record)

			if item.ReplyCount > 0 {
				replies, err := w.walkReplies(ctx, item.ID)
				if err != nil {
					// Failure isolation: one bad reply thread never
					// aborts the outer walk.
					walkReplyFailuresTotal.Inc()
					w.logger.Warn().
						Err(err).
						Str("parent", item.ID).
						Msg("Reply walk failed, contributing zero children")
					continue
				}
				records = append(records, replies...)
			}
		}

		if progress != nil {
			progress(len(records))
		}

		if pg.NextCursor == "" {
			break
		}
		if pg.NextCursor == cursor {
			// Guard against a source that repeats the same token forever.
			w.logger.Warn().
				Str("target", target).
				Str("cursor", cursor).
				Msg("Source repeated continuation cursor, terminating walk")
			break
		}
		cursor = pg.NextCursor

		if err := w.pacer.Wait(ctx); err != nil {
			return nil, &WalkError{SeedID: target, Cause: err}
		}
	}

	walkRecordsTotal.Add(float64(len(records)))
	return records, nil
}

// walkReplies fetches all reply pages under a parent comment. On any fetch
// failure the partial result is discarded and the error returned; the
// caller decides how to degrade.
func (w *Walker) walkReplies(ctx context.Context, parent string) ([]comments.Record, error) {
	var replies []comments.Record
	cursor := ""

	for {
		var pg page
		if err := w.fetcher.Fetch(ctx, w.source.RepliesURL(parent, cursor), &pg); err != nil {
			return nil, err
		}
		walkPagesTotal.WithLabelValues("replies").Inc()

		for _, item := range pg.Items {
			record, err := comments.Normalize(item)
			if err != nil {
				walkRejectedTotal.Inc()
				w.logger.Warn().Err(err).Str("parent", parent).Msg("Rejected malformed reply")
				continue
			}
			replies = append(replies, record)
		}

		if pg.NextCursor == "" || pg.NextCursor == cursor {
			break
		}
		cursor = pg.NextCursor
	}

	return replies, nil
}
