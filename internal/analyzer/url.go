package analyzer

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseTarget validates raw input and derives the immutable CrawlTarget for
// a run. It is the fail-fast boundary: a malformed URL is the only condition
// reported to the caller without producing a report.
func ParseTarget(raw string) (CrawlTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CrawlTarget{}, fmt.Errorf("%w: empty URL", ErrInvalidTarget)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return CrawlTarget{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return CrawlTarget{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}
	if u.Host == "" {
		return CrawlTarget{}, fmt.Errorf("%w: missing host", ErrInvalidTarget)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return CrawlTarget{
		RootURL: u.String(),
		Scheme:  u.Scheme,
		Host:    u.Host,
		Path:    u.Path,
	}, nil
}

// NormalizeURL standardizes a URL for the pagination cycle guard: lowercased
// scheme and host, default ports and fragments removed, query sorted.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawQuery = u.Query().Encode()
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}
