package analyzer

// Recommend combines policy, extraction, and probe results into a crawl
// method. Pure and deterministic:
//
//   - Blocked when robots disallows the target path for our agent.
//   - RenderRequired when the probe judged the page JS-heavy.
//   - StaticFetch otherwise, including the degraded engine-unavailable path.
func Recommend(target CrawlTarget, rules RobotsRules, render RenderVerdict) Recommendation {
	if !rules.CanFetch(target.Path) {
		return RecommendBlocked
	}
	if render.IsJSHeavy {
		return RecommendRenderRequired
	}
	return RecommendStaticFetch
}
