// Package extract parses fetched HTML into page metadata and walks
// pagination chains.
package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/crawlscope/crawlscope/internal/analyzer"
)

const (
	maxHeadings = 10
	maxLinks    = 50
)

// GoqueryExtractor parses page bodies with goquery.
type GoqueryExtractor struct{}

// NewExtractor constructs a goquery-backed extractor.
func NewExtractor() *GoqueryExtractor {
	return &GoqueryExtractor{}
}

// Extract parses the fetched body into metadata. Parsing is best effort:
// a body the HTML parser cannot make sense of still yields whatever fields
// could be recovered, never an error.
func (e *GoqueryExtractor) Extract(res analyzer.FetchResult) analyzer.PageMetadata {
	meta := analyzer.PageMetadata{URL: res.URL}
	if len(res.Body) == 0 {
		return meta
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return meta
	}

	base, baseErr := url.Parse(res.URL)
	if baseErr != nil {
		base = nil
	}

	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	}
	meta.Headings = collectHeadings(doc)
	meta.OutboundLinks = collectLinks(doc, base)
	meta.PaginationNext = findNextLink(doc, base)
	return meta
}

func collectHeadings(doc *goquery.Document) []string {
	var headings []string
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			headings = append(headings, text)
		}
		return len(headings) < maxHeadings
	})
	return headings
}

// collectLinks resolves hrefs against the page URL, keeping insertion order
// and dropping duplicates and non-HTTP schemes.
func collectLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		resolved := resolveLink(base, href)
		if resolved == "" {
			return true
		}
		if _, dup := seen[resolved]; dup {
			return true
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
		return len(links) < maxLinks
	})
	return links
}

// findNextLink locates the next pagination target, preferring rel="next"
// over anchors whose visible text is "next".
func findNextLink(doc *goquery.Document, base *url.URL) string {
	var next string
	doc.Find(`a[rel="next"], link[rel="next"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if href, ok := s.Attr("href"); ok {
			next = resolveLink(base, href)
		}
		return next == ""
	})
	if next != "" {
		return next
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.Text()), "next") {
			return true
		}
		if href, ok := s.Attr("href"); ok {
			next = resolveLink(base, href)
		}
		return next == ""
	})
	return next
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	ref.Fragment = ""
	return ref.String()
}
