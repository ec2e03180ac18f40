package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawlscope/crawlscope/internal/analyzer"
	"github.com/crawlscope/crawlscope/internal/database"
)

type stubRunner struct {
	report analyzer.AnalysisReport
	err    error
	urls   []string
}

func (r *stubRunner) Analyze(_ context.Context, rawURL string) (analyzer.AnalysisReport, error) {
	r.urls = append(r.urls, rawURL)
	return r.report, r.err
}

func storedReport(t *testing.T, store analyzer.Store) analyzer.AnalysisReport {
	t.Helper()
	report := analyzer.AnalysisReport{
		ID: "report-1",
		Target: analyzer.CrawlTarget{
			RootURL: "https://example.test/",
			Scheme:  "https",
			Host:    "example.test",
			Path:    "/",
		},
		Pages: []analyzer.PageMetadata{{
			URL:           "https://example.test/",
			Title:         "Example",
			OutboundLinks: []string{"https://example.test/about"},
		}},
		Recommendation: analyzer.RecommendStaticFetch,
		GeneratedAt:    time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(context.Background(), report))
	return report
}

func TestSubmitAnalysis(t *testing.T) {
	t.Parallel()
	store := database.NewMemoryStore()
	runner := &stubRunner{report: analyzer.AnalysisReport{ID: "report-1", Recommendation: analyzer.RecommendStaticFetch}}
	srv := NewServer(runner, store, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader(`{"url":"https://example.test/"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, []string{"https://example.test/"}, runner.urls)

	var report analyzer.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, "report-1", report.ID)
}

func TestSubmitAnalysisRejectsMissingURL(t *testing.T) {
	t.Parallel()
	srv := NewServer(&stubRunner{}, database.NewMemoryStore(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAnalysisInvalidTarget(t *testing.T) {
	t.Parallel()
	runner := &stubRunner{err: analyzer.ErrInvalidTarget}
	srv := NewServer(runner, database.NewMemoryStore(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader(`{"url":"notaurl"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAnalysis(t *testing.T) {
	t.Parallel()
	store := database.NewMemoryStore()
	storedReport(t, store)
	srv := NewServer(&stubRunner{}, store, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/report-1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/analyses/nope", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAnalyses(t *testing.T) {
	t.Parallel()
	store := database.NewMemoryStore()
	storedReport(t, store)
	srv := NewServer(&stubRunner{}, store, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Analyses []analyzer.ReportRow `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Analyses, 1)
	require.Equal(t, "https://example.test/", body.Analyses[0].URL)
}

func TestExportCSV(t *testing.T) {
	t.Parallel()
	store := database.NewMemoryStore()
	storedReport(t, store)
	srv := NewServer(&stubRunner{}, store, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/export", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "url,crawl_delay,allowed"))
	require.Contains(t, lines[1], "https://example.test/")
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv := NewServer(&stubRunner{}, database.NewMemoryStore(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}
