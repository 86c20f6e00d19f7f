package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doganarif/vectordb/errs"
)

func TestEmbedRejectsMissingCredential(t *testing.T) {
	c := New("")
	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.Equal(t, errs.EmbeddingUnavailable, errs.KindOf(err))
}

func TestEmbedEmptyInputIsNoop(t *testing.T) {
	c := New("key")
	vectors, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedSucceedsOnFirstTry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2, 3}}})
	}))
	defer server.Close()

	c := New("key").WithBaseURL(server.URL)
	vectors, err := c.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, []float32{1, 2, 3}, vectors[0])
}

func TestEmbedRetriesTransientFailuresThenSucceeds(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.5}}})
	}))
	defer server.Close()

	c := New("key").WithBaseURL(server.URL)
	vectors, err := c.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestEmbedDoesNotRetryClientErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := New("key").WithBaseURL(server.URL)
	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.Equal(t, errs.EmbeddingUnavailable, errs.KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestEmbedGivesUpAfterMaxAttempts(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New("key").WithBaseURL(server.URL)
	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.Equal(t, errs.EmbeddingUnavailable, errs.KindOf(err))
	assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&attempts))
}
