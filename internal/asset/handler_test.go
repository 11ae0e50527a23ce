package asset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minicloud/service/internal/middleware"
)

func newTestServer(t *testing.T, fx *fixture) *httptest.Server {
	t.Helper()
	h := NewHandler(fx.svc, fx.tempDir, 50<<20, 20)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(fx.store, "test-secret"))
		r.Post("/upload", h.Upload)
		r.Post("/upload-bulk", h.UploadBulk)
		r.Put("/assets/{id}", h.Rename)
		r.Delete("/assets/{id}", h.Delete)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// multipartBody builds a multipart form with the given files under the
// "file" field plus optional extra fields.
func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
		contentType := "image/jpeg"
		if strings.HasSuffix(name, ".exe") {
			contentType = "application/x-msdownload"
		}
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doUpload(t *testing.T, srv *httptest.Server, path, apiKey string, body *bytes.Buffer, contentType string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	return resp, envelope
}

func TestUploadEndpoint(t *testing.T) {
	fx := newFixture(t, nil)
	srv := newTestServer(t, fx)

	body, contentType := multipartBody(t, map[string]string{"cat.jpg": "jpeg bytes"}, nil)
	resp, envelope := doUpload(t, srv, "/upload", "key-alice", body, contentType)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "cat.jpg", data["fileName"])
	assert.Equal(t, "https://cdn.test/alice/cat.jpg", data["url"])
	assert.True(t, fx.remote.has("alice/cat.jpg"))
}

func TestUploadEndpointRequiresFile(t *testing.T) {
	fx := newFixture(t, nil)
	srv := newTestServer(t, fx)

	body, contentType := multipartBody(t, nil, map[string]string{"optimize": "true"})
	resp, envelope := doUpload(t, srv, "/upload", "key-alice", body, contentType)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, envelope["success"])
}

func TestUploadEndpointRejectsDisallowedMime(t *testing.T) {
	fx := newFixture(t, nil)
	srv := newTestServer(t, fx)

	body, contentType := multipartBody(t, map[string]string{"evil.exe": "mz"}, nil)
	resp, _ := doUpload(t, srv, "/upload", "key-alice", body, contentType)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, fx.store.AssetsByOwnerFolder(fx.owner.ID, nil))
}

func TestUploadEndpointRequiresAuth(t *testing.T) {
	fx := newFixture(t, nil)
	srv := newTestServer(t, fx)

	body, contentType := multipartBody(t, map[string]string{"cat.jpg": "x"}, nil)
	resp, _ := doUpload(t, srv, "/upload", "bogus-key", body, contentType)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUploadBulkEndpointReportsPerFileResults(t *testing.T) {
	fx := newFixture(t, nil)
	fx.remote.failUpload["alice/b.jpg"] = true
	srv := newTestServer(t, fx)

	body, contentType := multipartBody(t, map[string]string{
		"a.jpg": "aaa",
		"b.jpg": "bbb",
	}, nil)
	resp, envelope := doUpload(t, srv, "/upload-bulk", "key-alice", body, contentType)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	files := envelope["data"].(map[string]interface{})["files"].([]interface{})
	require.Len(t, files, 2)

	byName := map[string]map[string]interface{}{}
	for _, f := range files {
		m := f.(map[string]interface{})
		byName[m["originalName"].(string)] = m
	}
	assert.NotEmpty(t, byName["a.jpg"]["url"])
	assert.Nil(t, byName["a.jpg"]["error"])
	assert.NotEmpty(t, byName["b.jpg"]["error"])
	assert.Nil(t, byName["b.jpg"]["url"])
}

func TestRenameEndpointStatusCodes(t *testing.T) {
	fx := newFixture(t, nil)
	srv := newTestServer(t, fx)
	a := seedAsset(t, fx, "old.jpg", "bytes")

	do := func(apiKey string, id int, payload string) *http.Response {
		req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/assets/%d", srv.URL, id), strings.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+apiKey)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusNotFound, do("key-alice", 999, `{"newName":"x.jpg"}`).StatusCode)
	assert.Equal(t, http.StatusForbidden, do("key-bob", a.ID, `{"newName":"x.jpg"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do("key-alice", a.ID, `{}`).StatusCode)
	assert.Equal(t, http.StatusOK, do("key-alice", a.ID, `{"newName":"fresh.jpg"}`).StatusCode)
	assert.True(t, fx.remote.has("alice/fresh.jpg"))
}

func TestDeleteEndpoint(t *testing.T) {
	fx := newFixture(t, nil)
	srv := newTestServer(t, fx)
	a := seedAsset(t, fx, "doomed.jpg", "bytes")

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/assets/%d", srv.URL, a.ID), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer key-alice")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, fx.remote.has("alice/doomed.jpg"))
}
