package render

import (
	"context"
	"errors"
)

// ErrEngineUnavailable is returned by NoopEngine for every render call.
var ErrEngineUnavailable = errors.New("render engine unavailable")

// NoopEngine stands in when no browser can be launched. Every call fails,
// which the prober folds into a degraded verdict.
type NoopEngine struct{}

// Render always fails.
func (NoopEngine) Render(context.Context, string) (Snapshot, error) {
	return Snapshot{}, ErrEngineUnavailable
}
