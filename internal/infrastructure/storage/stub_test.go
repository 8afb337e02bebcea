package storage

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryObjectStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStorage()

	up, err := store.PresignUpload(ctx, "permits/a/b/scan.pdf", "application/pdf", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, up.Method)
	assert.True(t, strings.HasPrefix(up.URL, "http://storage.local/permits/a/b/scan.pdf?expires="))
	assert.WithinDuration(t, time.Now().Add(time.Minute), up.ExpiresAt, time.Second)

	_, err = store.PresignDownload(ctx, "", 0)
	assert.ErrorIs(t, err, ErrKeyRequired)

	data := []byte("%PDF-1.7")
	require.NoError(t, store.Put(ctx, "estimates/EST-1.pdf", data, "application/pdf"))
	data[0] = 'X'

	obj, ok := store.Get("estimates/EST-1.pdf")
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.7", string(obj.Data))
	assert.Equal(t, []string{"estimates/EST-1.pdf"}, store.Keys())

	exists, err := store.Exists(ctx, "estimates/EST-1.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "estimates/EST-1.pdf"))
	exists, err = store.Exists(ctx, "estimates/EST-1.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}
