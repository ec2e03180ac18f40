// Package analyzer defines the core types, interfaces, and orchestration
// for a crawlability analysis run. A run takes a single entry URL, checks
// robots.txt, walks a bounded pagination chain, probes for JavaScript-rendered
// content and machine-readable alternatives, and produces an AnalysisReport.
package analyzer
