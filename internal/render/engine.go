// Package render probes whether a page's content depends on JavaScript
// execution and looks for machine-readable alternatives.
package render

import "context"

// AlternateLink is one <link rel="alternate"> entry found on the page.
type AlternateLink struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

// Snapshot compares the statically fetched page against the same page after
// script execution.
type Snapshot struct {
	StaticTextLen   int
	RenderedTextLen int
	AlternateLinks  []AlternateLink
}

// Engine renders a page with scripts enabled and reports text volumes.
// Implementations may fail for any reason; callers must treat every error
// as a degraded, non-fatal outcome.
type Engine interface {
	Render(ctx context.Context, rawURL string) (Snapshot, error)
}
