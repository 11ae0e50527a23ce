package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBunny(t *testing.T, handler http.HandlerFunc) *BunnyStorage {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBunnyStorage(srv.URL, "test-zone", "secret-key", "https://cdn.example.com")
}

func TestBunnyUpload(t *testing.T) {
	var gotPath, gotAccessKey, gotContentType, gotBody string
	s := newTestBunny(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotAccessKey = r.Header.Get("AccessKey")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	})

	err := s.Upload(context.Background(), "alice/cat.jpg", strings.NewReader("jpeg bytes"), 10, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/test-zone/alice/cat.jpg", gotPath)
	assert.Equal(t, "secret-key", gotAccessKey)
	assert.Equal(t, "image/jpeg", gotContentType)
	assert.Equal(t, "jpeg bytes", gotBody)
}

func TestBunnyUploadNon2xxIsWriteFailed(t *testing.T) {
	s := newTestBunny(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := s.Upload(context.Background(), "alice/cat.jpg", strings.NewReader("x"), 1, "image/jpeg")
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestBunnyDeleteIdempotentOn404(t *testing.T) {
	s := newTestBunny(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})

	assert.NoError(t, s.Delete(context.Background(), "alice/gone.jpg"))
}

func TestBunnyDeleteHardFailure(t *testing.T) {
	s := newTestBunny(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.ErrorIs(t, s.Delete(context.Background(), "alice/cat.jpg"), ErrDeleteFailed)
}

func TestBunnyFetch(t *testing.T) {
	s := newTestBunny(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "secret-key", r.Header.Get("AccessKey"))
		_, _ = w.Write([]byte("object bytes"))
	})

	body, err := s.Fetch(context.Background(), "alice/cat.jpg")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "object bytes", string(data))
}

func TestBunnyFetchNotFound(t *testing.T) {
	s := newTestBunny(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := s.Fetch(context.Background(), "alice/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBunnyPublicURL(t *testing.T) {
	s := NewBunnyStorage("storage.bunnycdn.com", "zone", "key", "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/alice/cat.jpg", s.PublicURL("alice/cat.jpg"))
}

func TestBunnyObjectURLDefaultsToHTTPS(t *testing.T) {
	s := NewBunnyStorage("storage.bunnycdn.com", "zone", "key", "https://cdn.example.com")
	assert.Equal(t, "https://storage.bunnycdn.com/zone/a/b.jpg", s.objectURL("a/b.jpg"))
}
