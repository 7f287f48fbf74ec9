package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProofStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProofStorage()
	s.BaseURL = "https://files.test/proofs/"

	data := []byte("signature")
	require.NoError(t, s.Upload(ctx, "orders/a b/signature.png", "image/png", data))
	data[0] = 'X'

	got, contentType, ok := s.Get("orders/a b/signature.png")
	require.True(t, ok)
	assert.Equal(t, "signature", string(got))
	assert.Equal(t, "image/png", contentType)

	url, err := s.DownloadURL(ctx, "orders/a b/signature.png")
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/proofs/orders/a%20b/signature.png", url)

	require.NoError(t, s.Delete(ctx, "orders/a b/signature.png"))
	require.NoError(t, s.Delete(ctx, "missing"))
	assert.Equal(t, 0, s.Len())

	assert.ErrorIs(t, s.Upload(ctx, "", "image/png", nil), errKeyRequired)
}
