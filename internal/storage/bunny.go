package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// BunnyStorage implements Storage against Bunny Storage's HTTP API:
// PUT/GET/DELETE on https://<host>/<zone>/<key> authenticated with an
// AccessKey header. The API has no rename and no multipart support.
type BunnyStorage struct {
	httpClient *http.Client
	host       string
	zone       string
	accessKey  string
	publicBase string
}

// NewBunnyStorage returns a BunnyStorage for the given storage zone.
// publicBase is the pull-zone (CDN) base URL objects are served from.
func NewBunnyStorage(host, zone, accessKey, publicBase string) *BunnyStorage {
	return &BunnyStorage{
		httpClient: &http.Client{},
		host:       host,
		zone:       zone,
		accessKey:  accessKey,
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

// objectURL builds the storage endpoint for key. host is normally a bare
// hostname like "storage.bunnycdn.com"; a host carrying its own scheme is
// used verbatim.
func (s *BunnyStorage) objectURL(key string) string {
	base := s.host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return fmt.Sprintf("%s/%s/%s", base, s.zone, key)
}

// Upload streams reader to the zone under key with a single HTTP PUT.
// Any non-2xx status is a hard failure; retrying is the caller's call.
func (s *BunnyStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(key), reader)
	if err != nil {
		return fmt.Errorf("%w: build request for %q: %v", ErrWriteFailed, key, err)
	}
	req.ContentLength = size
	req.Header.Set("AccessKey", s.accessKey)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", ErrWriteFailed, key, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: put %q: status %d", ErrWriteFailed, key, resp.StatusCode)
	}
	return nil
}

// Fetch opens a streaming GET of the object at key. The caller must close
// the returned body.
func (s *BunnyStorage) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %q: %v", ErrReadFailed, key, err)
	}
	req.Header.Set("AccessKey", s.accessKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %q: %v", ErrReadFailed, key, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: get %q: status %d", ErrReadFailed, key, resp.StatusCode)
	}
	return resp.Body, nil
}

// Delete removes the object at key. A 404 counts as success: deleting an
// already-absent object is idempotent.
func (s *BunnyStorage) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(key), nil)
	if err != nil {
		return fmt.Errorf("%w: build request for %q: %v", ErrDeleteFailed, key, err)
	}
	req.Header.Set("AccessKey", s.accessKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: delete %q: %v", ErrDeleteFailed, key, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: delete %q: status %d", ErrDeleteFailed, key, resp.StatusCode)
	}
	return nil
}

// PublicURL returns the pull-zone URL for the given key.
func (s *BunnyStorage) PublicURL(key string) string {
	return s.publicBase + "/" + key
}
