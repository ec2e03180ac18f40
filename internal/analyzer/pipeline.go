package analyzer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/crawlscope/crawlscope/internal/metrics"
)

// Pipeline states, logged as each run progresses. Fetching and Probing
// overlap in time; both must settle before Recommending.
type runState string

const (
	stateInit           runState = "init"
	stateCheckingRobots runState = "checking_robots"
	stateBlocked        runState = "blocked"
	stateFetching       runState = "fetching"
	stateProbing        runState = "probing"
	stateRecommending   runState = "recommending"
	stateDone           runState = "done"
)

// PipelineConfig bounds a single analysis run.
type PipelineConfig struct {
	// RunTimeout caps the whole run; pending branches are folded into
	// degraded results when it expires.
	RunTimeout time.Duration
	// ProbeTimeout caps the render-probe branch alone. A stalled probe
	// becomes EngineUnavailable, not a pipeline failure.
	ProbeTimeout time.Duration
}

func (c *PipelineConfig) applyDefaults() {
	if c.RunTimeout <= 0 {
		c.RunTimeout = 2 * time.Minute
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 45 * time.Second
	}
}

// Pipeline orchestrates one analysis run per call. It owns no mutable state
// across runs; every call builds and tears down its own run context.
type Pipeline struct {
	robots RobotsPolicy
	walker PageWalker
	prober RenderProber
	blobs  BlobStore
	clock  Clock
	ids    IDGenerator
	cfg    PipelineConfig
	logger *zap.Logger
}

// NewPipeline wires the pipeline collaborators. blobs may be nil, in which
// case no HTML snapshot is persisted.
func NewPipeline(
	robots RobotsPolicy,
	walker PageWalker,
	prober RenderProber,
	blobs BlobStore,
	clock Clock,
	ids IDGenerator,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		robots: robots,
		walker: walker,
		prober: prober,
		blobs:  blobs,
		clock:  clock,
		ids:    ids,
		cfg:    cfg,
		logger: logger,
	}
}

// Run analyzes a single entry URL and returns the terminal report. The only
// error it can return is ErrInvalidTarget; every downstream failure is
// recovered at its component boundary and recorded on the report.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (AnalysisReport, error) {
	target, err := ParseTarget(rawURL)
	if err != nil {
		return AnalysisReport{}, err
	}

	started := p.clock.Now()
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	log := p.logger.With(zap.String("url", target.RootURL))
	p.transition(log, stateInit, stateCheckingRobots)

	rules := p.robots.Load(runCtx, target)

	report := AnalysisReport{
		Target: target,
		Robots: rules,
	}

	if !rules.CanFetch(target.Path) {
		p.transition(log, stateCheckingRobots, stateBlocked)
		report.Render = RenderVerdict{}
		report.Recommendation = RecommendBlocked
		return p.finish(log, report, started)
	}

	p.transition(log, stateCheckingRobots, stateFetching)
	p.transition(log, stateCheckingRobots, stateProbing)

	type walkOutcome struct {
		pages     []PageMetadata
		entryBody []byte
	}
	walkCh := make(chan walkOutcome, 1)
	probeCh := make(chan RenderVerdict, 1)

	go func() {
		pages, body := p.walker.Walk(runCtx, target, rules)
		walkCh <- walkOutcome{pages: pages, entryBody: body}
	}()
	go func() {
		probeCtx, probeCancel := context.WithTimeout(runCtx, p.cfg.ProbeTimeout)
		defer probeCancel()
		probeCh <- p.prober.Probe(probeCtx, target)
	}()

	walk := walkOutcome{}
	verdict := DegradedVerdict()
	for pending := 2; pending > 0; {
		select {
		case walk = <-walkCh:
			pending--
		case verdict = <-probeCh:
			pending--
		case <-runCtx.Done():
			// Fold whatever is still pending into degraded results rather
			// than failing the whole report.
			log.Warn("run timeout reached; degrading pending branches",
				zap.Duration("timeout", p.cfg.RunTimeout))
			pending = 0
		}
	}

	report.Pages = walk.pages
	report.Render = verdict
	p.transition(log, stateFetching, stateRecommending)
	report.Recommendation = Recommend(target, rules, verdict)

	if p.blobs != nil && len(walk.entryBody) > 0 {
		p.snapshot(runCtx, log, &report, walk.entryBody)
	}

	return p.finish(log, report, started)
}

func (p *Pipeline) finish(log *zap.Logger, report AnalysisReport, started time.Time) (AnalysisReport, error) {
	report.GeneratedAt = p.clock.Now()
	if p.ids != nil {
		id, err := p.ids.NewID()
		if err != nil {
			log.Warn("report id generation failed", zap.Error(err))
		} else {
			report.ID = id
		}
	}
	p.transition(log, stateRecommending, stateDone)
	metrics.ObserveAnalysis(string(report.Recommendation), report.GeneratedAt.Sub(started))
	log.Info("analysis complete",
		zap.String("recommendation", string(report.Recommendation)),
		zap.Int("pages", len(report.Pages)),
		zap.Int("links", report.LinkCount()),
		zap.Bool("js_heavy", report.Render.IsJSHeavy),
	)
	return report, nil
}

func (p *Pipeline) snapshot(ctx context.Context, log *zap.Logger, report *AnalysisReport, body []byte) {
	name := snapshotObjectName(report.Target.RootURL, p.clock.Now())
	uri, err := p.blobs.PutObject(ctx, name, "text/html; charset=utf-8", body)
	if err != nil {
		log.Warn("snapshot save failed", zap.Error(err))
		return
	}
	report.SnapshotURI = uri
}

func (p *Pipeline) transition(log *zap.Logger, from, to runState) {
	log.Debug("pipeline transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
}

func snapshotObjectName(url string, fetchedAt time.Time) string {
	urlHash := fmt.Sprintf("%x", sha256.Sum256([]byte(url)))
	return path.Join(
		"snapshots",
		fetchedAt.UTC().Format("2006-01-02"),
		fmt.Sprintf("%s.html", urlHash),
	)
}
