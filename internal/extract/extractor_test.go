package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crawlscope/crawlscope/internal/analyzer"
)

func fetched(url, body string) analyzer.FetchResult {
	return analyzer.FetchResult{URL: url, StatusCode: 200, Body: []byte(body)}
}

func TestExtractMetadata(t *testing.T) {
	t.Parallel()
	body := `<html><head>
		<title> Example Store </title>
		<meta name="description" content="  Things for sale. ">
	</head><body>
		<h1>Welcome</h1>
		<h2>Featured</h2>
		<a href="/products">Products</a>
		<a href="/products">Products again</a>
		<a href="https://example.test/about">About</a>
		<a href="mailto:hi@example.test">Mail</a>
		<a href="#top">Top</a>
		<a rel="next" href="/page/2">older</a>
	</body></html>`

	meta := NewExtractor().Extract(fetched("https://example.test/", body))

	require.Equal(t, "Example Store", meta.Title)
	require.Equal(t, "Things for sale.", meta.Description)
	require.Equal(t, []string{"Welcome", "Featured"}, meta.Headings)
	require.Equal(t, []string{
		"https://example.test/products",
		"https://example.test/about",
		"https://example.test/page/2",
	}, meta.OutboundLinks)
	require.Equal(t, "https://example.test/page/2", meta.PaginationNext)
}

func TestExtractNextByAnchorText(t *testing.T) {
	t.Parallel()
	body := `<html><body>
		<a href="/prev">Prev</a>
		<a href="/page/3"> NEXT </a>
	</body></html>`

	meta := NewExtractor().Extract(fetched("https://example.test/page/2", body))
	require.Equal(t, "https://example.test/page/3", meta.PaginationNext)
}

func TestExtractCapsHeadingsAndLinks(t *testing.T) {
	t.Parallel()
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&sb, "<h2>Heading %d</h2>", i)
	}
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&sb, `<a href="/item/%d">item</a>`, i)
	}
	sb.WriteString("</body></html>")

	meta := NewExtractor().Extract(fetched("https://example.test/", sb.String()))
	require.Len(t, meta.Headings, maxHeadings)
	require.Len(t, meta.OutboundLinks, maxLinks)
}

func TestExtractMalformedBodyIsBestEffort(t *testing.T) {
	t.Parallel()
	body := `<html><head><title>Broken</tit<le><body><h1>Still here<a href="/x">x`

	meta := NewExtractor().Extract(fetched("https://example.test/", body))
	require.Equal(t, "https://example.test/", meta.URL)
	require.Empty(t, meta.PaginationNext)
}

func TestExtractEmptyBody(t *testing.T) {
	t.Parallel()
	meta := NewExtractor().Extract(analyzer.FetchResult{URL: "https://example.test/"})
	require.Equal(t, "https://example.test/", meta.URL)
	require.Empty(t, meta.Title)
	require.Empty(t, meta.OutboundLinks)
	require.Empty(t, meta.PaginationNext)
}
