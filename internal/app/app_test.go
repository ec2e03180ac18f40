package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawlscope/crawlscope/internal/analyzer"
	"github.com/crawlscope/crawlscope/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Provider = "memory"
	cfg.Storage.Provider = "memory"
	cfg.Publisher.Provider = "memory"
	cfg.Probe.Enabled = false
	cfg.Fetch.TimeoutSeconds = 2
	cfg.Pipeline.RunTimeoutSeconds = 10
	return cfg
}

func TestAnalyzePersistsReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			http.NotFound(w, r)
		default:
			fmt.Fprint(w, `<html><head><title>Home</title></head><body><h1>Hi</h1><a href="/about">about</a></body></html>`)
		}
	}))
	defer srv.Close()

	a, err := NewApp(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Analyze(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotEmpty(t, report.ID)
	require.Equal(t, analyzer.RecommendStaticFetch, report.Recommendation)
	require.Len(t, report.Pages, 1)
	require.Equal(t, "Home", report.Pages[0].Title)
	require.Equal(t, analyzer.ErrKindEngineUnavailable, report.Render.ProbeError)

	stored, err := a.Store().Get(context.Background(), report.ID)
	require.NoError(t, err)
	require.Equal(t, report, stored)

	rows, err := a.Store().List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestAnalyzeInvalidTarget(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Analyze(context.Background(), "notaurl")
	require.ErrorIs(t, err, analyzer.ErrInvalidTarget)
}

func TestNewAppRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Provider = "oracle"

	_, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
