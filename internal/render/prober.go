package render

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crawlscope/crawlscope/internal/analyzer"
	"github.com/crawlscope/crawlscope/internal/metrics"
)

// DefaultJSRatio marks a page JS-heavy when rendered text volume exceeds
// twice the static volume.
const DefaultJSRatio = 2.0

var (
	apiProbePaths  = []string{"/api", "/v1/api", "/json"}
	feedProbePaths = []string{"/feed", "/rss"}
)

// Prober implements analyzer.RenderProber. Engine failure of any kind is
// absorbed here and reported as a degraded verdict; it never propagates.
type Prober struct {
	engine  Engine
	client  *http.Client
	jsRatio float64
	logger  *zap.Logger
}

// NewProber builds a prober around engine, which may be nil when no browser
// could be launched.
func NewProber(engine Engine, client *http.Client, jsRatio float64, logger *zap.Logger) *Prober {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if jsRatio <= 0 {
		jsRatio = DefaultJSRatio
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{engine: engine, client: client, jsRatio: jsRatio, logger: logger}
}

// Probe renders the target and checks for API and feed endpoints.
func (p *Prober) Probe(ctx context.Context, target analyzer.CrawlTarget) analyzer.RenderVerdict {
	if p.engine == nil {
		metrics.ObserveProbeFailure(string(analyzer.ErrKindEngineUnavailable))
		return analyzer.DegradedVerdict()
	}

	snap, err := p.engine.Render(ctx, target.RootURL)
	if err != nil {
		p.logger.Warn("render engine failed, degrading to static signals",
			zap.String("url", target.RootURL),
			zap.Error(err))
		metrics.ObserveProbeFailure(string(analyzer.ErrKindEngineUnavailable))
		return analyzer.DegradedVerdict()
	}

	verdict := analyzer.RenderVerdict{
		IsJSHeavy:       p.jsHeavy(snap),
		StaticTextLen:   snap.StaticTextLen,
		RenderedTextLen: snap.RenderedTextLen,
	}
	p.classifyAlternates(snap.AlternateLinks, &verdict)
	p.probeEndpoints(ctx, target, &verdict)
	return verdict
}

func (p *Prober) jsHeavy(snap Snapshot) bool {
	if snap.StaticTextLen == 0 {
		return snap.RenderedTextLen > 0
	}
	return float64(snap.RenderedTextLen) > p.jsRatio*float64(snap.StaticTextLen)
}

func (p *Prober) classifyAlternates(links []AlternateLink, verdict *analyzer.RenderVerdict) {
	for _, link := range links {
		switch {
		case strings.Contains(link.Type, "json"):
			verdict.HasAPI = true
		case strings.Contains(link.Type, "rss"),
			strings.Contains(link.Type, "atom"),
			strings.Contains(link.Type, "xml"):
			verdict.FeedURLs = appendFeed(verdict.FeedURLs, link.Href)
		}
	}
}

// probeEndpoints issues HEAD-weight GETs against conventional API and feed
// paths on the target host.
func (p *Prober) probeEndpoints(ctx context.Context, target analyzer.CrawlTarget, verdict *analyzer.RenderVerdict) {
	for _, path := range apiProbePaths {
		if verdict.HasAPI {
			break
		}
		contentType, ok := p.probePath(ctx, target, path)
		if ok && strings.Contains(contentType, "json") {
			verdict.HasAPI = true
		}
	}
	for _, path := range feedProbePaths {
		contentType, ok := p.probePath(ctx, target, path)
		if !ok {
			continue
		}
		if strings.Contains(contentType, "xml") || strings.Contains(contentType, "rss") {
			verdict.FeedURLs = appendFeed(verdict.FeedURLs, p.endpointURL(target, path))
		}
	}
}

// probePath returns the response content type and whether the endpoint
// answered 2xx.
func (p *Prober) probePath(ctx context.Context, target analyzer.CrawlTarget, path string) (string, bool) {
	probeURL := p.endpointURL(target, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return "", false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false
	}
	return strings.ToLower(resp.Header.Get("Content-Type")), true
}

func (p *Prober) endpointURL(target analyzer.CrawlTarget, path string) string {
	u := url.URL{Scheme: target.Scheme, Host: target.Host, Path: path}
	return u.String()
}

func appendFeed(feeds []string, feedURL string) []string {
	for _, existing := range feeds {
		if existing == feedURL {
			return feeds
		}
	}
	return append(feeds, feedURL)
}
