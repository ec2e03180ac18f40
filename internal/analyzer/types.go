package analyzer

import (
	"time"
)

// Recommendation is the crawl-method verdict for a target.
type Recommendation string

// Recommendation values persisted with each report.
const (
	RecommendStaticFetch    Recommendation = "static_fetch"
	RecommendRenderRequired Recommendation = "render_required"
	RecommendBlocked        Recommendation = "blocked"
)

// CrawlTarget identifies the site under analysis. It is derived once from
// user input and immutable for the duration of a run.
type CrawlTarget struct {
	RootURL string `json:"root_url"`
	Scheme  string `json:"scheme"`
	Host    string `json:"host"`
	Path    string `json:"path"`
}

// PathMatcher answers allow/deny for a path under the active agent group.
type PathMatcher interface {
	Test(path string) bool
}

// RobotsRules is the parsed robots policy for a target host. A zero value is
// fully permissive, which is also the fail-open result when robots.txt is
// absent or unreadable.
type RobotsRules struct {
	AllowPatterns    []string      `json:"allow_patterns,omitempty"`
	DisallowPatterns []string      `json:"disallow_patterns,omitempty"`
	CrawlDelay       time.Duration `json:"crawl_delay,omitempty"`
	Sitemaps         []string      `json:"sitemaps,omitempty"`

	matcher PathMatcher
}

// SetMatcher installs the path matcher used by CanFetch. The matcher is not
// serialized; rules reloaded from storage answer permissively.
func (r *RobotsRules) SetMatcher(m PathMatcher) {
	r.matcher = m
}

// CanFetch reports whether the path is allowed for the crawler's user agent.
// Longest-match precedence between Allow and Disallow is delegated to the
// underlying robots parser.
func (r RobotsRules) CanFetch(path string) bool {
	if r.matcher == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return r.matcher.Test(path)
}

// HasCrawlDelay reports whether the active group declared a crawl delay.
func (r RobotsRules) HasCrawlDelay() bool {
	return r.CrawlDelay > 0
}

// FetchResult is the terminal outcome of one retrieval, retries included.
// Error != ErrKindNone means the body is unusable. Results are consumed by
// the extractor and discarded; they are never persisted.
type FetchResult struct {
	URL          string    `json:"url"`
	StatusCode   int       `json:"status_code"`
	Body         []byte    `json:"-"`
	ElapsedMs    int64     `json:"elapsed_ms"`
	AttemptCount int       `json:"attempt_count"`
	Error        ErrorKind `json:"error,omitempty"`
}

// OK reports whether the fetch produced a usable body.
func (f FetchResult) OK() bool {
	return f.Error == ErrKindNone
}

// PageMetadata is the extracted view of one fetched page.
type PageMetadata struct {
	URL            string   `json:"url"`
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	Headings       []string `json:"headings,omitempty"`
	OutboundLinks  []string `json:"outbound_links,omitempty"`
	PaginationNext string   `json:"pagination_next,omitempty"`
}

// RenderVerdict is the render-probe outcome for a target. When the render
// engine cannot run, every field holds its safe default and ProbeError is
// set to ErrKindEngineUnavailable.
type RenderVerdict struct {
	IsJSHeavy       bool      `json:"is_js_heavy"`
	HasAPI          bool      `json:"has_api"`
	FeedURLs        []string  `json:"feed_urls,omitempty"`
	StaticTextLen   int       `json:"static_text_len,omitempty"`
	RenderedTextLen int       `json:"rendered_text_len,omitempty"`
	ProbeError      ErrorKind `json:"probe_error,omitempty"`
}

// DegradedVerdict is the fixed result used whenever the render engine is
// missing, crashes, or times out.
func DegradedVerdict() RenderVerdict {
	return RenderVerdict{ProbeError: ErrKindEngineUnavailable}
}

// AnalysisReport is the immutable artifact of one pipeline run.
type AnalysisReport struct {
	ID             string         `json:"id"`
	Target         CrawlTarget    `json:"target"`
	Robots         RobotsRules    `json:"robots"`
	Pages          []PageMetadata `json:"pages,omitempty"`
	Render         RenderVerdict  `json:"render"`
	Recommendation Recommendation `json:"recommendation"`
	SnapshotURI    string         `json:"snapshot_uri,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// LinkCount sums outbound links across all pages of the report.
func (r AnalysisReport) LinkCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.OutboundLinks)
	}
	return n
}

// Row flattens the report into the export shape consumed by the dashboard
// and the CSV exporter.
func (r AnalysisReport) Row() ReportRow {
	row := ReportRow{
		ID:             r.ID,
		URL:            r.Target.RootURL,
		Allowed:        r.Recommendation != RecommendBlocked,
		LinkCount:      r.LinkCount(),
		IsJSHeavy:      r.Render.IsJSHeavy,
		HasAPI:         r.Render.HasAPI,
		FeedCount:      len(r.Render.FeedURLs),
		Recommendation: r.Recommendation,
		GeneratedAt:    r.GeneratedAt,
	}
	if r.Robots.HasCrawlDelay() {
		row.CrawlDelaySeconds = r.Robots.CrawlDelay.Seconds()
	}
	if len(r.Pages) > 0 {
		row.Title = r.Pages[0].Title
		row.Description = r.Pages[0].Description
	}
	return row
}

// ReportRow is one stored/exported report in flat form.
type ReportRow struct {
	ID                string         `json:"id"`
	URL               string         `json:"url"`
	CrawlDelaySeconds float64        `json:"crawl_delay_seconds"`
	Allowed           bool           `json:"allowed"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	LinkCount         int            `json:"link_count"`
	IsJSHeavy         bool           `json:"is_js_heavy"`
	HasAPI            bool           `json:"has_api"`
	FeedCount         int            `json:"feed_count"`
	Recommendation    Recommendation `json:"recommendation"`
	GeneratedAt       time.Time      `json:"generated_at"`
}
