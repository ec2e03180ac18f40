// Package robots fetches and interprets robots.txt for a crawl target.
package robots

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/crawlscope/crawlscope/internal/analyzer"
)

const maxRobotsBytes = 1 << 20

// Policy implements analyzer.RobotsPolicy backed by temoto/robotstxt.
//
// Failure semantics are fail-open: an absent, unreachable, or unparsable
// robots.txt is a normal condition and yields a permissive ruleset. There is
// deliberately no retry here; a missing robots file must not slow the run.
type Policy struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// New builds a Policy. client may be nil, in which case a 10s-timeout client
// is used.
func New(client *http.Client, userAgent string, logger *zap.Logger) *Policy {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Load fetches and parses robots.txt for the target host. It never fails;
// every error path returns permissive rules.
func (p *Policy) Load(ctx context.Context, target analyzer.CrawlTarget) analyzer.RobotsRules {
	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		p.logger.Warn("robots request build failed; allowing access",
			zap.String("host", target.Host), zap.Error(err))
		return analyzer.RobotsRules{}
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("robots fetch failed; allowing access",
			zap.String("host", target.Host), zap.Error(err))
		return analyzer.RobotsRules{}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.Debug("close robots body", zap.Error(cerr))
		}
	}()

	// Only a 2xx response carries rules. temoto treats 5xx as deny-all per
	// the Google spec, but this pipeline fails open on server errors: an
	// unhealthy origin should not mark a site as blocked.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Debug("no usable robots.txt",
			zap.String("host", target.Host), zap.Int("status", resp.StatusCode))
		return analyzer.RobotsRules{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		p.logger.Warn("robots read failed; allowing access",
			zap.String("host", target.Host), zap.Error(err))
		return analyzer.RobotsRules{}
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		p.logger.Warn("robots parse failed; allowing access",
			zap.String("host", target.Host), zap.Error(err))
		return analyzer.RobotsRules{}
	}

	rules := analyzer.RobotsRules{
		Sitemaps: data.Sitemaps,
	}
	allow, disallow := scanPatterns(body, p.userAgent)
	rules.AllowPatterns = allow
	rules.DisallowPatterns = disallow

	group := data.FindGroup(p.userAgent)
	if group != nil {
		rules.SetMatcher(group)
		rules.CrawlDelay = group.CrawlDelay
	}
	return rules
}

// scanPatterns collects the Allow/Disallow directives of the group matching
// userAgent (falling back to the wildcard group) so reports can show which
// patterns were in force. Matching decisions still go through the parser;
// this scan is informational only.
func scanPatterns(body []byte, userAgent string) (allow, disallow []string) {
	type group struct {
		agents   []string
		allow    []string
		disallow []string
	}

	var groups []group
	var cur *group
	inAgentRun := false

	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if !inAgentRun {
				groups = append(groups, group{})
				cur = &groups[len(groups)-1]
				inAgentRun = true
			}
			cur.agents = append(cur.agents, strings.ToLower(value))
		case "allow":
			if cur != nil && value != "" {
				cur.allow = append(cur.allow, value)
			}
			inAgentRun = false
		case "disallow":
			if cur != nil && value != "" {
				cur.disallow = append(cur.disallow, value)
			}
			inAgentRun = false
		default:
			inAgentRun = false
		}
	}

	agent := strings.ToLower(userAgent)
	var wildcard *group
	for i := range groups {
		g := &groups[i]
		for _, a := range g.agents {
			if a == "*" && wildcard == nil {
				wildcard = g
			}
			if a != "*" && agent != "" && strings.Contains(agent, a) {
				return g.allow, g.disallow
			}
		}
	}
	if wildcard != nil {
		return wildcard.allow, wildcard.disallow
	}
	return nil, nil
}
