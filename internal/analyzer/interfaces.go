package analyzer

import (
	"context"
	"time"
)

// RobotsPolicy loads and interprets a site's robots.txt. Load never fails:
// any fetch or parse problem yields a permissive ruleset.
type RobotsPolicy interface {
	Load(ctx context.Context, target CrawlTarget) RobotsRules
}

// Fetcher performs one resilient retrieval. Network-level failures are folded
// into the result, never returned as errors.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) FetchResult
}

// PageWalker runs the pagination walk from the entry page. It returns the
// extracted pages in visit order plus the raw body of the entry page for
// snapshotting; pages is empty when every fetch attempt failed.
type PageWalker interface {
	Walk(ctx context.Context, target CrawlTarget, rules RobotsRules) ([]PageMetadata, []byte)
}

// RenderProber decides whether meaningful content requires JavaScript and
// looks for machine-readable alternatives. Probe never fails: engine-level
// problems produce the degraded verdict.
type RenderProber interface {
	Probe(ctx context.Context, target CrawlTarget) RenderVerdict
}

// Store persists analysis reports and lists them in export row form.
type Store interface {
	Save(ctx context.Context, report AnalysisReport) error
	Get(ctx context.Context, id string) (AnalysisReport, error)
	List(ctx context.Context) ([]ReportRow, error)
	Close() error
}

// BlobStore writes raw artifacts (HTML snapshots) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes report-completed events to interested collaborators.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces report IDs.
type IDGenerator interface {
	NewID() (string, error)
}
