package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestOpenInitializesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "catalog.json")

	s, err := Open(path)
	require.NoError(t, err)

	// The snapshot must exist on disk immediately, not after the first mutation.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 1, doc.NextUserID)
	assert.Equal(t, 1, doc.NextFolderID)
	assert.Equal(t, 1, doc.NextAssetID)
	assert.Equal(t, 0, s.UserCount())
}

func TestOpenReloadsExistingSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	s1, err := Open(path)
	require.NoError(t, err)
	u, err := s1.CreateUser("alice", "hash", "key-1")
	require.NoError(t, err)
	a := s1.AddAsset(Asset{OwnerID: u.ID, FileName: "cat.jpg", Namespace: "alice", URL: "http://cdn/alice/cat.jpg", MimeType: "image/jpeg"})

	s2, err := Open(path)
	require.NoError(t, err)
	got, ok := s2.AssetByID(a.ID)
	require.True(t, ok)
	assert.Equal(t, "cat.jpg", got.FileName)
	reloaded, ok := s2.UserByAPIKey("key-1")
	require.True(t, ok)
	assert.Equal(t, u.ID, reloaded.ID)
}

func TestOpenMigratesCountersFromExistingIDs(t *testing.T) {
	// Snapshots written before counters existed carry records but no
	// nextId fields; reopening must rebuild them so ids never collide.
	path := filepath.Join(t.TempDir(), "catalog.json")
	legacy := `{"users":[{"id":3,"username":"bob","apiKey":"k"}],"assets":[{"id":7,"ownerId":3,"fileName":"a.png"}]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s, err := Open(path)
	require.NoError(t, err)

	a := s.AddAsset(Asset{OwnerID: 3, FileName: "b.png"})
	assert.Equal(t, 8, a.ID)
	u, err := s.CreateUser("carol", "hash", "k2")
	require.NoError(t, err)
	assert.Equal(t, 4, u.ID)
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)

	_, err = s.CreateUser("alice", "h1", "k1")
	require.NoError(t, err)
	_, err = s.CreateUser("alice", "h2", "k2")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAddAssetsAllocatesSequentialIDs(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)

	added := s.AddAssets([]Asset{
		{OwnerID: 1, FileName: "a.jpg"},
		{OwnerID: 1, FileName: "b.jpg"},
		{OwnerID: 1, FileName: "c.jpg"},
	})
	require.Len(t, added, 3)
	assert.Equal(t, 1, added[0].ID)
	assert.Equal(t, 2, added[1].ID)
	assert.Equal(t, 3, added[2].ID)
}

func TestUpdateAssetName(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)

	a := s.AddAsset(Asset{OwnerID: 1, FileName: "old.jpg", URL: "http://cdn/u/old.jpg"})
	updated, err := s.UpdateAssetName(a.ID, "new.jpg", "http://cdn/u/new.jpg")
	require.NoError(t, err)
	assert.Equal(t, "new.jpg", updated.FileName)
	assert.Equal(t, "http://cdn/u/new.jpg", updated.URL)

	_, err = s.UpdateAssetName(999, "x.jpg", "u")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveAsset(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)

	a := s.AddAsset(Asset{OwnerID: 1, FileName: "a.jpg"})
	require.NoError(t, s.RemoveAsset(a.ID))
	_, ok := s.AssetByID(a.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, s.RemoveAsset(a.ID), ErrNotFound)
}

func TestAssetsByOwnerFolderFiltersExactly(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)

	f := s.AddFolder(1, "docs", nil)
	s.AddAsset(Asset{OwnerID: 1, FolderID: intPtr(f.ID), FileName: "in.jpg"})
	s.AddAsset(Asset{OwnerID: 1, FileName: "root.jpg"})
	s.AddAsset(Asset{OwnerID: 2, FolderID: intPtr(f.ID), FileName: "other-owner.jpg"})

	inFolder := s.AssetsByOwnerFolder(1, intPtr(f.ID))
	require.Len(t, inFolder, 1)
	assert.Equal(t, "in.jpg", inFolder[0].FileName)

	atRoot := s.AssetsByOwnerFolder(1, nil)
	require.Len(t, atRoot, 1)
	assert.Equal(t, "root.jpg", atRoot[0].FileName)
}

func TestRemoveFolderReparentMovesOnlyDirectAssets(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)

	doomed := s.AddFolder(1, "doomed", nil)
	sibling := s.AddFolder(1, "sibling", nil)
	child := s.AddFolder(1, "child", intPtr(doomed.ID))

	inDoomed := s.AddAsset(Asset{OwnerID: 1, FolderID: intPtr(doomed.ID), FileName: "a.jpg"})
	inSibling := s.AddAsset(Asset{OwnerID: 1, FolderID: intPtr(sibling.ID), FileName: "b.jpg"})
	inChild := s.AddAsset(Asset{OwnerID: 1, FolderID: intPtr(child.ID), FileName: "c.jpg"})

	reparented, err := s.RemoveFolderReparent(doomed.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reparented)

	_, ok := s.FolderByID(doomed.ID)
	assert.False(t, ok)

	got, _ := s.AssetByID(inDoomed.ID)
	assert.Nil(t, got.FolderID)

	// Assets in sibling and descendant folders are untouched, and the
	// child folder itself survives: deletion is shallow.
	got, _ = s.AssetByID(inSibling.ID)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, sibling.ID, *got.FolderID)
	got, _ = s.AssetByID(inChild.ID)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, child.ID, *got.FolderID)
	_, ok = s.FolderByID(child.ID)
	assert.True(t, ok)

	_, err = s.RemoveFolderReparent(doomed.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFoldersByOwnerParent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)

	root := s.AddFolder(1, "root-level", nil)
	s.AddFolder(1, "nested", intPtr(root.ID))
	s.AddFolder(2, "other-owner", nil)

	atRoot := s.FoldersByOwnerParent(1, nil)
	require.Len(t, atRoot, 1)
	assert.Equal(t, "root-level", atRoot[0].Name)

	nested := s.FoldersByOwnerParent(1, intPtr(root.ID))
	require.Len(t, nested, 1)
	assert.Equal(t, "nested", nested[0].Name)
}

func TestPersistFailureKeepsMemoryAuthoritative(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	s, err := Open(path)
	require.NoError(t, err)

	// Make the snapshot unwritable; mutations must still apply in memory.
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	a := s.AddAsset(Asset{OwnerID: 1, FileName: "kept.jpg"})
	got, ok := s.AssetByID(a.ID)
	require.True(t, ok)
	assert.Equal(t, "kept.jpg", got.FileName)
}
