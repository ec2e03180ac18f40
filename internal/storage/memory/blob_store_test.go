package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutObjectStoresContent(t *testing.T) {
	t.Parallel()
	store := NewBlobStore()

	uri, err := store.PutObject(context.Background(), "snapshots/abc.html", "text/html", []byte("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, "memory://snapshots/abc.html", uri)

	data, ok := store.Object("snapshots/abc.html")
	require.True(t, ok)
	require.Equal(t, "<html></html>", string(data))
}
