package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTargetNormalizes(t *testing.T) {
	t.Parallel()

	target, err := ParseTarget("HTTPS://Example.TEST:443/Shop?q=1#frag")
	require.NoError(t, err)
	require.Equal(t, "https", target.Scheme)
	require.Equal(t, "example.test", target.Host)
	require.Equal(t, "/Shop", target.Path)
	require.Equal(t, "https://example.test/Shop?q=1", target.RootURL)

	target, err = ParseTarget("http://example.test")
	require.NoError(t, err)
	require.Equal(t, "/", target.Path)
	require.Equal(t, "http://example.test/", target.RootURL)
}

func TestParseTargetRejectsBadInput(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "notaurl", "ftp://example.test/x", "http://", "://missing"} {
		_, err := ParseTarget(raw)
		require.ErrorIs(t, err, ErrInvalidTarget, "input %q", raw)
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	norm, err := NormalizeURL("HTTP://Example.test:80/a?b=2&a=1#x")
	require.NoError(t, err)
	require.Equal(t, "http://example.test/a?a=1&b=2", norm)

	first, err := NormalizeURL("https://example.test/page")
	require.NoError(t, err)
	second, err := NormalizeURL("https://example.test:443/page#top")
	require.NoError(t, err)
	require.Equal(t, first, second)
}
