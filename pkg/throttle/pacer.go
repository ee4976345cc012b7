// Package throttle provides cooperative pacing between source requests.
// The comment source publishes no error budget, so pacing is a fixed
// inter-page pause rather than header-driven gating.
package throttle

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var throttlePausesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "commentpulse_throttle_pauses_total",
	Help: "Total number of inter-page throttle pauses",
})

// Pacer inserts a bounded pause between paginated requests.
type Pacer struct {
	interval time.Duration
}

// NewPacer creates a pacer. A non-positive interval disables pausing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks for the configured interval or until the context is done.
// Returns the context error on cancellation so callers can stop cleanly.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}

	throttlePausesTotal.Inc()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.interval):
		return nil
	}
}
