package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/crawlscope/crawlscope/internal/analyzer"
	"github.com/crawlscope/crawlscope/internal/metrics"
)

// DefaultMaxPages bounds a pagination walk.
const DefaultMaxPages = 10

// Walker implements analyzer.PageWalker: it fetches the entry page and
// follows its "next" chain, one sequential hop at a time.
type Walker struct {
	fetcher   analyzer.Fetcher
	extractor *GoqueryExtractor
	pauser    analyzer.Pauser
	maxPages  int
	logger    *zap.Logger
}

// NewWalker constructs a pagination walker around the given fetcher.
func NewWalker(fetcher analyzer.Fetcher, maxPages int, logger *zap.Logger) *Walker {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{
		fetcher:   fetcher,
		extractor: NewExtractor(),
		pauser:    analyzer.TimerPauser{},
		maxPages:  maxPages,
		logger:    logger,
	}
}

// WithPauser swaps the crawl-delay waiter; tests use this to record waits.
func (w *Walker) WithPauser(p analyzer.Pauser) *Walker {
	w.pauser = p
	return w
}

// Walk fetches up to maxPages pages starting at the target root, honoring
// the crawl delay between hops and never visiting a URL twice. It returns
// the extracted metadata plus the entry page body for snapshotting; pages
// is nil when the entry fetch itself fails.
func (w *Walker) Walk(ctx context.Context, target analyzer.CrawlTarget, rules analyzer.RobotsRules) ([]analyzer.PageMetadata, []byte) {
	var (
		pages     []analyzer.PageMetadata
		entryBody []byte
	)

	visited := make(map[string]struct{})
	current := target.RootURL

	for hop := 0; hop < w.maxPages && current != ""; hop++ {
		if ctx.Err() != nil {
			break
		}

		visited[normalize(current)] = struct{}{}

		res := w.fetcher.Fetch(ctx, current)
		if !res.OK() {
			w.logger.Debug("pagination fetch failed",
				zap.String("url", current),
				zap.Int("hop", hop),
				zap.String("kind", string(res.Error)))
			break
		}
		if hop == 0 {
			entryBody = res.Body
		}

		meta := w.extractor.Extract(res)
		pages = append(pages, meta)

		next := meta.PaginationNext
		if next == "" {
			break
		}
		if _, again := visited[normalize(next)]; again {
			w.logger.Debug("pagination cycle detected", zap.String("url", next))
			break
		}
		if !w.allowed(target, rules, next) {
			w.logger.Debug("pagination blocked by robots", zap.String("url", next))
			break
		}

		if rules.HasCrawlDelay() {
			w.pauser.Pause(ctx, rules.CrawlDelay)
		}
		metrics.ObservePaginationHop()
		current = next
	}

	return pages, entryBody
}

// normalize standardizes a URL for the cycle guard; an unparseable URL is
// used as-is.
func normalize(rawURL string) string {
	norm, err := analyzer.NormalizeURL(rawURL)
	if err != nil {
		return rawURL
	}
	return norm
}

// allowed applies the robots gate to a next-hop candidate. Hops leaving the
// target host are never followed.
func (w *Walker) allowed(target analyzer.CrawlTarget, rules analyzer.RobotsRules, nextURL string) bool {
	next, err := analyzer.ParseTarget(nextURL)
	if err != nil {
		return false
	}
	if next.Host != target.Host {
		return false
	}
	return rules.CanFetch(next.Path)
}
