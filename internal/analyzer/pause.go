package analyzer

import (
	"context"
	"time"
)

// Pauser abstracts how components wait between network calls (retry backoff,
// crawl-delay hops). Injectable so tests can record delays instead of
// sleeping through them.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// TimerPauser waits on a timer, returning early if the context finishes.
type TimerPauser struct{}

// Pause blocks for delay or until ctx is done.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
