package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type denyPrefixMatcher struct {
	prefix string
}

func (m denyPrefixMatcher) Test(path string) bool {
	return !strings.HasPrefix(path, m.prefix)
}

func TestRecommendBlockedWinsOverJSHeavy(t *testing.T) {
	t.Parallel()

	rules := RobotsRules{DisallowPatterns: []string{"/"}}
	rules.SetMatcher(denyPrefixMatcher{prefix: "/"})
	target := CrawlTarget{Path: "/"}

	got := Recommend(target, rules, RenderVerdict{IsJSHeavy: true})
	require.Equal(t, RecommendBlocked, got)
}

func TestRecommendRenderRequired(t *testing.T) {
	t.Parallel()

	got := Recommend(CrawlTarget{Path: "/"}, RobotsRules{}, RenderVerdict{IsJSHeavy: true})
	require.Equal(t, RecommendRenderRequired, got)
}

func TestRecommendStaticFetch(t *testing.T) {
	t.Parallel()

	got := Recommend(CrawlTarget{Path: "/"}, RobotsRules{}, RenderVerdict{})
	require.Equal(t, RecommendStaticFetch, got)

	// The degraded engine path still yields a usable recommendation.
	got = Recommend(CrawlTarget{Path: "/"}, RobotsRules{}, DegradedVerdict())
	require.Equal(t, RecommendStaticFetch, got)
}
