package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxStaticBodyBytes = 4 << 20

// EngineConfig controls the headless browser and the static comparison fetch.
type EngineConfig struct {
	UserAgent string
	Timeout   time.Duration
	DomainQPS float64
}

// ChromedpEngine drives headless Chrome to measure rendered text volume
// against a plain HTTP fetch of the same URL.
type ChromedpEngine struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	client          *http.Client
	timeout         time.Duration
	userAgent       string
	domainQPS       float64
	domainLimiters  sync.Map
	logger          *zap.Logger
}

// NewChromedpEngine launches a shared browser process. Construction fails
// when no usable Chrome binary is present; callers degrade to static-only
// analysis in that case.
func NewChromedpEngine(cfg EngineConfig, logger *zap.Logger) (*ChromedpEngine, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &ChromedpEngine{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		client:          &http.Client{Timeout: cfg.Timeout},
		timeout:         cfg.Timeout,
		userAgent:       cfg.UserAgent,
		domainQPS:       cfg.DomainQPS,
		logger:          logger,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (e *ChromedpEngine) Close() {
	if e == nil {
		return
	}
	e.browserCancel()
	e.allocatorCancel()
}

// Render fetches the page twice: once statically, once through the browser
// with scripts enabled, and reports both text volumes plus any alternate
// representations advertised by the static document.
func (e *ChromedpEngine) Render(ctx context.Context, rawURL string) (Snapshot, error) {
	if err := e.waitDomainBudget(ctx, rawURL); err != nil {
		return Snapshot{}, fmt.Errorf("render rate limit: %w", err)
	}

	staticLen, alternates, err := e.staticSnapshot(ctx, rawURL)
	if err != nil {
		return Snapshot{}, fmt.Errorf("static fetch: %w", err)
	}

	renderedLen, err := e.renderedTextLen(ctx, rawURL)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rendered fetch: %w", err)
	}

	return Snapshot{
		StaticTextLen:   staticLen,
		RenderedTextLen: renderedLen,
		AlternateLinks:  alternates,
	}, nil
}

func (e *ChromedpEngine) staticSnapshot(ctx context.Context, rawURL string) (int, []AlternateLink, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticBodyBytes))
	if err != nil {
		return 0, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return len(bytes.TrimSpace(body)), nil, nil
	}
	return textLen(doc.Find("body").Text()), alternateLinks(doc, rawURL), nil
}

func (e *ChromedpEngine) renderedTextLen(ctx context.Context, rawURL string) (int, error) {
	tabCtx, cancelTab := chromedp.NewContext(e.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, e.timeout)
	defer cancelTask()

	stop := forwardCancel(ctx, cancelTask)
	defer stop()

	var text string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(e.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Text("body", &text, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return 0, fmt.Errorf("chromedp run: %w", err)
	}
	return textLen(text), nil
}

func (e *ChromedpEngine) waitDomainBudget(ctx context.Context, rawURL string) error {
	if e.domainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse render url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := e.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(e.domainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	return limiter.Wait(ctx)
}

func alternateLinks(doc *goquery.Document, pageURL string) []AlternateLink {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	var links []AlternateLink
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		if base != nil {
			if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
		linkType, _ := s.Attr("type")
		links = append(links, AlternateLink{Href: href, Type: strings.ToLower(linkType)})
	})
	return links
}

func textLen(text string) int {
	return len(strings.TrimSpace(text))
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
