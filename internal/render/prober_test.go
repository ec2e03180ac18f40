package render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawlscope/crawlscope/internal/analyzer"
)

type fakeEngine struct {
	snap Snapshot
	err  error
}

func (f *fakeEngine) Render(context.Context, string) (Snapshot, error) {
	return f.snap, f.err
}

func noProbeClient() *http.Client {
	// Points at nothing routable so endpoint probes fail fast.
	return &http.Client{Timeout: 100 * time.Millisecond}
}

func testTarget(t *testing.T, rawURL string) analyzer.CrawlTarget {
	t.Helper()
	target, err := analyzer.ParseTarget(rawURL)
	require.NoError(t, err)
	return target
}

func TestProbeRatioNotMet(t *testing.T) {
	t.Parallel()
	// Rendered smaller than static: a misbehaving engine, not an error.
	engine := &fakeEngine{snap: Snapshot{StaticTextLen: 100, RenderedTextLen: 50}}
	prober := NewProber(engine, noProbeClient(), DefaultJSRatio, zap.NewNop())

	verdict := prober.Probe(context.Background(), testTarget(t, "http://127.0.0.1:1/"))
	require.False(t, verdict.IsJSHeavy)
	require.Equal(t, analyzer.ErrKindNone, verdict.ProbeError)
	require.Equal(t, 100, verdict.StaticTextLen)
	require.Equal(t, 50, verdict.RenderedTextLen)
}

func TestProbeRatioExceeded(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{snap: Snapshot{StaticTextLen: 100, RenderedTextLen: 250}}
	prober := NewProber(engine, noProbeClient(), DefaultJSRatio, zap.NewNop())

	verdict := prober.Probe(context.Background(), testTarget(t, "http://127.0.0.1:1/"))
	require.True(t, verdict.IsJSHeavy)
}

func TestProbeEmptyStaticWithRenderedContent(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{snap: Snapshot{StaticTextLen: 0, RenderedTextLen: 10}}
	prober := NewProber(engine, noProbeClient(), DefaultJSRatio, zap.NewNop())

	verdict := prober.Probe(context.Background(), testTarget(t, "http://127.0.0.1:1/"))
	require.True(t, verdict.IsJSHeavy)
}

func TestProbeEngineFailureDegrades(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{err: errors.New("browser crashed at launch")}
	prober := NewProber(engine, noProbeClient(), DefaultJSRatio, zap.NewNop())

	verdict := prober.Probe(context.Background(), testTarget(t, "http://127.0.0.1:1/"))
	require.Equal(t, analyzer.DegradedVerdict(), verdict)
	require.Equal(t, analyzer.ErrKindEngineUnavailable, verdict.ProbeError)
	require.False(t, verdict.IsJSHeavy)
	require.False(t, verdict.HasAPI)
	require.Empty(t, verdict.FeedURLs)
}

func TestProbeNilEngineDegrades(t *testing.T) {
	t.Parallel()
	prober := NewProber(nil, noProbeClient(), DefaultJSRatio, zap.NewNop())

	verdict := prober.Probe(context.Background(), testTarget(t, "http://127.0.0.1:1/"))
	require.Equal(t, analyzer.DegradedVerdict(), verdict)
}

func TestProbeEndpointHeuristics(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"status":"ok"}`)
		case "/rss":
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, `<rss version="2.0"></rss>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	engine := &fakeEngine{snap: Snapshot{StaticTextLen: 100, RenderedTextLen: 120}}
	prober := NewProber(engine, srv.Client(), DefaultJSRatio, zap.NewNop())

	verdict := prober.Probe(context.Background(), testTarget(t, srv.URL))
	require.False(t, verdict.IsJSHeavy)
	require.True(t, verdict.HasAPI)
	require.Equal(t, []string{srv.URL + "/rss"}, verdict.FeedURLs)
}

func TestProbeAlternateLinkClassification(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{snap: Snapshot{
		StaticTextLen:   100,
		RenderedTextLen: 100,
		AlternateLinks: []AlternateLink{
			{Href: "http://example.test/feed.xml", Type: "application/rss+xml"},
			{Href: "http://example.test/api/v1", Type: "application/json"},
			{Href: "http://example.test/feed.xml", Type: "application/rss+xml"},
		},
	}}
	prober := NewProber(engine, noProbeClient(), DefaultJSRatio, zap.NewNop())

	verdict := prober.Probe(context.Background(), testTarget(t, "http://127.0.0.1:1/"))
	require.True(t, verdict.HasAPI)
	require.Equal(t, []string{"http://example.test/feed.xml"}, verdict.FeedURLs)
}

func TestNoopEngineAlwaysFails(t *testing.T) {
	t.Parallel()
	_, err := NoopEngine{}.Render(context.Background(), "http://example.test/")
	require.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestProbeWithNoopEngineDegrades(t *testing.T) {
	t.Parallel()
	prober := NewProber(NoopEngine{}, noProbeClient(), DefaultJSRatio, zap.NewNop())

	verdict := prober.Probe(context.Background(), testTarget(t, "http://127.0.0.1:1/"))
	require.Equal(t, analyzer.DegradedVerdict(), verdict)
}
