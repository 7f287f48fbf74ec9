package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/orderflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func validStorageConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Endpoint:     endpoint,
		Bucket:       "order-proofs",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
	}
}

func TestNewS3ProofStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{"nil config", nil, "configuration is required"},
		{"missing bucket", &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, "bucket is required"},
		{"missing access key", &config.StorageConfig{Bucket: "b", SecretKey: "s"}, "access key is required"},
		{"missing secret key", &config.StorageConfig{Bucket: "b", AccessKey: "k"}, "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3ProofStorage(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid config applies defaults", func(t *testing.T) {
		s, err := NewS3ProofStorage(validStorageConfig(""))
		require.NoError(t, err)
		assert.Equal(t, "order-proofs", s.Bucket())
		assert.Equal(t, 15*time.Minute, s.presignExpiry)
	})

	t.Run("options override config", func(t *testing.T) {
		s, err := NewS3ProofStorage(validStorageConfig(""),
			WithPresignExpiration(time.Minute),
			WithLogger(zaptest.NewLogger(t)),
		)
		require.NoError(t, err)
		assert.Equal(t, time.Minute, s.presignExpiry)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", false, "http://localhost:9000"},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(fmt.Errorf("head: %w", &smithy.GenericAPIError{Code: "NotFound"})))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("connection reset")))
}

func TestS3ProofStorage_EmptyKey(t *testing.T) {
	s, err := NewS3ProofStorage(validStorageConfig(""))
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, s.Upload(ctx, "", "image/png", []byte("x")), errKeyRequired)
	assert.ErrorIs(t, s.Delete(ctx, ""), errKeyRequired)
	_, err = s.DownloadURL(ctx, "")
	assert.ErrorIs(t, err, errKeyRequired)
	_, err = s.Exists(ctx, "")
	assert.ErrorIs(t, err, errKeyRequired)
}

func TestS3ProofStorage_DownloadURL(t *testing.T) {
	s, err := NewS3ProofStorage(validStorageConfig("http://localhost:9000"), WithPresignExpiration(5*time.Minute))
	require.NoError(t, err)

	url, err := s.DownloadURL(context.Background(), "orders/t/o/proof-1.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/order-proofs/orders/t/o/proof-1.png?"), url)
	assert.Contains(t, url, "X-Amz-Expires=300")
	assert.Contains(t, url, "X-Amz-Signature=")
}

// fakeS3 records requests and answers like a minimal path-style S3 endpoint
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	methods []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, r.Method)
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodHead:
		if _, ok := f.objects[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3ProofStorage_AgainstFakeEndpoint(t *testing.T) {
	fake := &fakeS3{objects: make(map[string][]byte)}
	server := httptest.NewServer(fake)
	defer server.Close()

	s, err := NewS3ProofStorage(validStorageConfig(server.URL))
	require.NoError(t, err)
	ctx := context.Background()
	key := "orders/tenant/order/proof-1.png"

	require.NoError(t, s.Upload(ctx, key, "image/png", []byte("png-bytes")))
	assert.Equal(t, []byte("png-bytes"), fake.objects["/order-proofs/"+key])

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, key))
	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
