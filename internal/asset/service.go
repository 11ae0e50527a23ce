// Package asset implements the ingestion pipeline that moves uploads from
// local staging through optional image optimization into remote storage
// and the metadata catalog, plus the rename and delete workflows that keep
// the two storage tiers coherent.
package asset

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/minicloud/service/internal/catalog"
	"github.com/minicloud/service/internal/storage"
	"github.com/minicloud/service/internal/transform"
)

// ErrNotFound is returned when the asset id does not exist.
var ErrNotFound = errors.New("asset not found")

// ErrForbidden is returned when the requester does not own the asset.
var ErrForbidden = errors.New("asset owned by another user")

// ErrFolderNotFound is returned when the target folder id does not exist
// or belongs to another user.
var ErrFolderNotFound = errors.New("target folder not found")

// Optimizer is the transform stage contract. Optimize never fails: it
// either produces a transformed file or hands back the original.
type Optimizer interface {
	Optimize(srcPath, mimeType string) transform.Result
}

// Service orchestrates staging, transformation, remote commit, and
// catalog bookkeeping for assets.
type Service struct {
	store     *catalog.Store
	remote    storage.Storage
	optimizer Optimizer
	tempDir   string
}

// NewService creates an asset Service.
func NewService(store *catalog.Store, remote storage.Storage, optimizer Optimizer, tempDir string) *Service {
	return &Service{store: store, remote: remote, optimizer: optimizer, tempDir: tempDir}
}

// BatchResult reports the outcome of one file in a bulk ingestion. Err is
// nil for committed files; failed files carry no catalog record.
type BatchResult struct {
	OriginalName string
	FileName     string
	URL          string
	MimeType     string
	Err          error
}

// committed is a fully uploaded asset awaiting its catalog row.
type committed struct {
	record catalog.Asset
}

// Ingest commits a single staged upload: sanitize the name, optionally
// optimize, stream the bytes to remote storage under the owner's
// namespace, clean up staging files, and append the catalog row. The
// staged file is removed on every path.
func (s *Service) Ingest(ctx context.Context, owner catalog.User, staged StagedFile, folderID *int, optimize bool) (catalog.Asset, error) {
	if err := s.checkFolder(owner, folderID); err != nil {
		removeTemp(staged.Path)
		return catalog.Asset{}, err
	}
	c, err := s.commit(ctx, owner, staged, folderID, optimize)
	if err != nil {
		return catalog.Asset{}, err
	}
	return s.store.AddAsset(c.record), nil
}

// IngestBatch commits each staged file independently and in order: one
// file's failure never rolls back siblings already committed. All catalog
// rows for the batch are appended with a single snapshot persist.
func (s *Service) IngestBatch(ctx context.Context, owner catalog.User, staged []StagedFile, folderID *int, optimize bool) []BatchResult {
	if err := s.checkFolder(owner, folderID); err != nil {
		results := make([]BatchResult, len(staged))
		for i, sf := range staged {
			removeTemp(sf.Path)
			results[i] = BatchResult{OriginalName: sf.OriginalName, Err: err}
		}
		return results
	}

	results := make([]BatchResult, len(staged))
	var records []catalog.Asset
	var indices []int

	for i, sf := range staged {
		results[i].OriginalName = sf.OriginalName
		if !AllowedMimeType(sf.MimeType) {
			removeTemp(sf.Path)
			results[i].Err = fmt.Errorf("unsupported file type %q", sf.MimeType)
			continue
		}
		c, err := s.commit(ctx, owner, sf, folderID, optimize)
		if err != nil {
			results[i].Err = err
			continue
		}
		records = append(records, c.record)
		indices = append(indices, i)
	}

	added := s.store.AddAssets(records)
	for j, a := range added {
		i := indices[j]
		results[i].FileName = a.FileName
		results[i].URL = a.URL
		results[i].MimeType = a.MimeType
	}
	return results
}

// commit runs the transform and remote-store stages for one staged file
// and builds the catalog record. Staging files (original and transformed)
// are removed on both success and failure.
func (s *Service) commit(ctx context.Context, owner catalog.User, staged StagedFile, folderID *int, optimize bool) (committed, error) {
	defer removeTemp(staged.Path)

	name := SanitizeName(staged.OriginalName)
	uploadPath := staged.Path
	mimeType := staged.MimeType

	if optimize && strings.HasPrefix(mimeType, "image/") {
		res := s.optimizer.Optimize(staged.Path, mimeType)
		if res.Transformed {
			defer removeTemp(res.Path)
			uploadPath = res.Path
			mimeType = res.MimeType
			// The encode may have changed the format (e.g. webp → jpeg),
			// so the key gets the output extension and the opt- prefix.
			name = transform.KeyPrefix + strings.TrimSuffix(name, filepath.Ext(name)) + filepath.Ext(res.Path)
		}
	}

	namespace := NamespaceFor(owner.Username)
	key := namespace + "/" + name

	if err := s.uploadFile(ctx, uploadPath, key, mimeType); err != nil {
		return committed{}, err
	}

	return committed{record: catalog.Asset{
		OwnerID:   owner.ID,
		FolderID:  folderID,
		FileName:  name,
		Namespace: namespace,
		URL:       s.remote.PublicURL(key),
		MimeType:  mimeType,
	}}, nil
}

// uploadFile streams the file at path to the remote store under key.
func (s *Service) uploadFile(ctx context.Context, path, key, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat staged file: %w", err)
	}
	return s.remote.Upload(ctx, key, f, info.Size(), contentType)
}

// Rename moves an asset to a new key. The remote store has no atomic
// rename, so this is a compensating sequence: fetch the current bytes to
// local staging, upload under the new key, delete the old key, then update
// the catalog. Any failure leaves the asset committed under its old key;
// failures after the new-key upload delete the new key again so no stray
// object survives.
func (s *Service) Rename(ctx context.Context, requester catalog.User, assetID int, newName string) (catalog.Asset, error) {
	a, ok := s.store.AssetByID(assetID)
	if !ok {
		return catalog.Asset{}, ErrNotFound
	}
	if a.OwnerID != requester.ID {
		return catalog.Asset{}, ErrForbidden
	}

	name := SanitizeName(newName)
	if filepath.Ext(name) == "" {
		name += filepath.Ext(a.FileName)
	}
	if name == a.FileName {
		return a, nil
	}

	oldKey := a.Namespace + "/" + a.FileName
	newKey := a.Namespace + "/" + name

	body, err := s.remote.Fetch(ctx, oldKey)
	if err != nil {
		return catalog.Asset{}, fmt.Errorf("fetch current object: %w", err)
	}
	staged, err := Stage(s.tempDir, body, name, a.MimeType)
	body.Close()
	if err != nil {
		return catalog.Asset{}, fmt.Errorf("stage current object: %w", err)
	}
	defer removeTemp(staged.Path)

	if err := s.uploadFile(ctx, staged.Path, newKey, a.MimeType); err != nil {
		return catalog.Asset{}, fmt.Errorf("upload under new key: %w", err)
	}

	if err := s.remote.Delete(ctx, oldKey); err != nil {
		s.compensate(ctx, newKey)
		return catalog.Asset{}, fmt.Errorf("delete old key: %w", err)
	}

	updated, err := s.store.UpdateAssetName(a.ID, name, s.remote.PublicURL(newKey))
	if err != nil {
		// The row vanished between the ownership check and the update
		// (e.g. a racing delete). Remove the freshly written object.
		s.compensate(ctx, newKey)
		return catalog.Asset{}, ErrNotFound
	}
	return updated, nil
}

// compensate removes the new key written by a rename whose later steps
// failed. Best effort: a failure here leaves an orphan object, which is
// logged rather than surfaced.
func (s *Service) compensate(ctx context.Context, newKey string) {
	if err := s.remote.Delete(ctx, newKey); err != nil {
		log.Printf("asset: rename compensation left orphan object %q: %v", newKey, err)
	}
}

// Delete removes an asset's remote object and then its catalog row. The
// remote delete is idempotent on absent objects; a hard remote failure
// keeps the row so the catalog never points at bytes it cannot reach
// while the object may still exist.
func (s *Service) Delete(ctx context.Context, requester catalog.User, assetID int) error {
	a, ok := s.store.AssetByID(assetID)
	if !ok {
		return ErrNotFound
	}
	if a.OwnerID != requester.ID {
		return ErrForbidden
	}

	if err := s.remote.Delete(ctx, a.Namespace+"/"+a.FileName); err != nil {
		return err
	}
	if err := s.store.RemoveAsset(a.ID); err != nil {
		return ErrNotFound
	}
	return nil
}

// checkFolder validates that a non-nil target folder exists and belongs
// to the owner.
func (s *Service) checkFolder(owner catalog.User, folderID *int) error {
	if folderID == nil {
		return nil
	}
	f, ok := s.store.FolderByID(*folderID)
	if !ok || f.OwnerID != owner.ID {
		return ErrFolderNotFound
	}
	return nil
}

// removeTemp deletes a staging file. Cleanup failures are logged, never
// escalated: the staging directory is best-effort scratch space.
func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("asset: remove temp file %s: %v", path, err)
	}
}
