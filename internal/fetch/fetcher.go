// Package fetch implements resilient single-page retrieval using Colly.
package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/crawlscope/crawlscope/internal/analyzer"
	"github.com/crawlscope/crawlscope/internal/metrics"
)

// Config controls collector and retry behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// CollyFetcher implements analyzer.Fetcher. Each Fetch is a bounded retry
// loop around a cloned collector; the fetcher itself is the single point of
// contact with the network for page bodies.
type CollyFetcher struct {
	base   *colly.Collector
	policy *ExponentialRetryPolicy
	pauser analyzer.Pauser
	logger *zap.Logger
}

// New constructs a configured Colly-based fetcher.
func New(cfg Config, logger *zap.Logger) *CollyFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	// Robots enforcement happens at the pipeline gate, before any fetch.
	base.IgnoreRobotsTxt = true
	// Retries revisit the same URL within one collector lineage.
	base.AllowURLRevisit = true
	base.SetRequestTimeout(cfg.Timeout)
	base.WithTransport(newHTTPTransport(cfg.Timeout))

	return &CollyFetcher{
		base:   base,
		policy: NewExponentialRetryPolicy(cfg.MaxAttempts, cfg.BackoffBase, cfg.BackoffMax),
		pauser: analyzer.TimerPauser{},
		logger: logger,
	}
}

// WithPauser swaps the backoff waiter; tests use this to record delays.
func (f *CollyFetcher) WithPauser(p analyzer.Pauser) *CollyFetcher {
	f.pauser = p
	return f
}

// Fetch retrieves rawURL with retry and backoff. The result always comes
// back as a value: transient failures are retried up to the attempt bound
// and a run that uses them all up ends as ErrKindFetchExhausted.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) analyzer.FetchResult {
	start := time.Now()

	if _, err := parseFetchURL(rawURL); err != nil {
		res := analyzer.FetchResult{URL: rawURL, Error: analyzer.ErrKindInvalidTarget}
		res.ElapsedMs = time.Since(start).Milliseconds()
		metrics.ObserveFetch(string(res.Error), time.Since(start))
		return res
	}

	var last analyzer.FetchResult
	for attempt := 0; attempt < f.policy.MaxAttempts(); attempt++ {
		if attempt > 0 {
			f.pauser.Pause(ctx, f.policy.Backoff(attempt-1))
			if ctx.Err() != nil {
				// Cancelled before the retry budget was used up; the last
				// attempt's kind stands.
				last.ElapsedMs = time.Since(start).Milliseconds()
				metrics.ObserveFetch(string(last.Error), time.Since(start))
				return last
			}
		}

		res := f.attempt(ctx, rawURL)
		res.AttemptCount = attempt + 1
		res.ElapsedMs = time.Since(start).Milliseconds()
		last = res

		if res.OK() {
			metrics.ObserveFetch("ok", time.Since(start))
			return res
		}
		if !f.policy.Retryable(res) {
			f.logger.Debug("fetch failed terminally",
				zap.String("url", rawURL),
				zap.Int("status", res.StatusCode),
				zap.String("kind", string(res.Error)))
			metrics.ObserveFetch(string(res.Error), time.Since(start))
			return res
		}
		f.logger.Debug("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.String("kind", string(res.Error)))
	}

	last.URL = rawURL
	last.Error = analyzer.ErrKindFetchExhausted
	last.ElapsedMs = time.Since(start).Milliseconds()
	metrics.ObserveFetch(string(analyzer.ErrKindFetchExhausted), time.Since(start))
	return last
}

// attempt performs exactly one retrieval through a cloned collector. The
// callbacks each deliver a fully built result through a one-shot channel, so
// an abandoned collector goroutine never shares state with the caller.
func (f *CollyFetcher) attempt(ctx context.Context, rawURL string) analyzer.FetchResult {
	collector := f.base.Clone()

	resultCh := make(chan analyzer.FetchResult, 1)
	var once sync.Once
	send := func(res analyzer.FetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		res := analyzer.FetchResult{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
		}
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			res.Body = append([]byte(nil), r.Body...)
		} else {
			res.Error = classify(nil, res.StatusCode)
		}
		send(res)
	})
	collector.OnError(func(r *colly.Response, err error) {
		res := analyzer.FetchResult{URL: rawURL}
		if r != nil {
			res.StatusCode = r.StatusCode
		}
		res.Error = classify(err, res.StatusCode)
		send(res)
	})

	go func() {
		err := collector.Visit(rawURL)
		// Only reaches the channel when neither callback fired.
		send(analyzer.FetchResult{URL: rawURL, Error: classify(err, 0)})
	}()

	select {
	case <-ctx.Done():
		res := analyzer.FetchResult{URL: rawURL}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.Error = analyzer.ErrKindNetworkTimeout
		} else {
			res.Error = analyzer.ErrKindNetworkError
		}
		return res
	case res := <-resultCh:
		return res
	}
}

func classify(err error, status int) analyzer.ErrorKind {
	if status >= 400 {
		return analyzer.ErrKindHTTPError
	}
	if err == nil {
		return analyzer.ErrKindNetworkError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return analyzer.ErrKindNetworkTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return analyzer.ErrKindNetworkTimeout
	}
	return analyzer.ErrKindNetworkError
}

func parseFetchURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("unsupported scheme")
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func newHTTPTransport(responseTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: responseTimeout,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
