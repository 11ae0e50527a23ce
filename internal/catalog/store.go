// Package catalog holds the in-memory metadata catalog and its durable
// JSON snapshot. All mutations go through the Store, which serializes
// writers behind a mutex and rewrites the full snapshot after each change.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotFound is returned when an asset, folder, or user does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ErrUsernameTaken is returned when provisioning a duplicate username.
var ErrUsernameTaken = errors.New("catalog: username already taken")

// Store is the single writer for catalog state. Readers get value copies,
// never pointers into the shared document.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// Open reads the snapshot at path. A missing file initializes an empty
// catalog and writes it immediately so the durable file always exists.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.doc = document{NextUserID: 1, NextFolderID: 1, NextAssetID: 1}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("write initial catalog: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}

	if err := json.Unmarshal(raw, &s.doc); err != nil {
		return nil, fmt.Errorf("decode catalog %q: %w", path, err)
	}
	s.migrate()
	return s, nil
}

// migrate fills in fields a pre-existing snapshot may predate: nil slices
// and id counters introduced after the file was first written. Counters are
// rebuilt from the highest id seen so re-allocation can never collide.
func (s *Store) migrate() {
	if s.doc.Users == nil {
		s.doc.Users = []User{}
	}
	if s.doc.Folders == nil {
		s.doc.Folders = []Folder{}
	}
	if s.doc.Assets == nil {
		s.doc.Assets = []Asset{}
	}
	for _, u := range s.doc.Users {
		if u.ID >= s.doc.NextUserID {
			s.doc.NextUserID = u.ID + 1
		}
	}
	for _, f := range s.doc.Folders {
		if f.ID >= s.doc.NextFolderID {
			s.doc.NextFolderID = f.ID + 1
		}
	}
	for _, a := range s.doc.Assets {
		if a.ID >= s.doc.NextAssetID {
			s.doc.NextAssetID = a.ID + 1
		}
	}
	if s.doc.NextUserID < 1 {
		s.doc.NextUserID = 1
	}
	if s.doc.NextFolderID < 1 {
		s.doc.NextFolderID = 1
	}
	if s.doc.NextAssetID < 1 {
		s.doc.NextAssetID = 1
	}
}

// persistLocked rewrites the whole snapshot. Callers must hold s.mu.
// The write goes to a temp file first so a crash mid-write cannot leave
// a truncated catalog behind.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace catalog file: %w", err)
	}
	return nil
}

// persistAndLog rewrites the snapshot and logs on failure. A failed write
// leaves the in-memory state authoritative for the rest of the process
// lifetime; the next successful write closes the durability gap.
func (s *Store) persistAndLog() {
	if err := s.persistLocked(); err != nil {
		log.Printf("catalog: snapshot persist failed (state kept in memory): %v", err)
	}
}

// CreateUser allocates the next user id and appends the account.
func (s *Store) CreateUser(username, credentialHash, apiKey string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.doc.Users {
		if u.Username == username {
			return User{}, ErrUsernameTaken
		}
	}

	u := User{
		ID:             s.doc.NextUserID,
		Username:       username,
		CredentialHash: credentialHash,
		APIKey:         apiKey,
		CreatedAt:      time.Now().UTC(),
	}
	s.doc.NextUserID++
	s.doc.Users = append(s.doc.Users, u)
	s.persistAndLog()
	return u, nil
}

// UserByAPIKey looks up an account by its bearer token.
func (s *Store) UserByAPIKey(key string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.doc.Users {
		if u.APIKey == key {
			return u, true
		}
	}
	return User{}, false
}

// UserByUsername looks up an account by username.
func (s *Store) UserByUsername(username string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.doc.Users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

// UserByID looks up an account by id.
func (s *Store) UserByID(id int) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.doc.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// UserCount reports how many accounts exist.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.Users)
}

// AddAsset allocates the next asset id, appends the record, and persists.
func (s *Store) AddAsset(a Asset) Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	a = s.appendAssetLocked(a)
	s.persistAndLog()
	return a
}

// AddAssets appends a batch of records with a single snapshot write, so a
// bulk upload causes exactly one persist instead of one per file.
func (s *Store) AddAssets(batch []Asset) []Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Asset, 0, len(batch))
	for _, a := range batch {
		out = append(out, s.appendAssetLocked(a))
	}
	s.persistAndLog()
	return out
}

func (s *Store) appendAssetLocked(a Asset) Asset {
	a.ID = s.doc.NextAssetID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.doc.NextAssetID++
	s.doc.Assets = append(s.doc.Assets, a)
	return a
}

// RemoveAsset deletes the catalog row for id.
func (s *Store) RemoveAsset(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.doc.Assets {
		if a.ID == id {
			s.doc.Assets = append(s.doc.Assets[:i], s.doc.Assets[i+1:]...)
			s.persistAndLog()
			return nil
		}
	}
	return ErrNotFound
}

// UpdateAssetName rewrites an asset's remote key and URL after a rename.
func (s *Store) UpdateAssetName(id int, fileName, url string) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Assets {
		if s.doc.Assets[i].ID == id {
			s.doc.Assets[i].FileName = fileName
			s.doc.Assets[i].URL = url
			s.persistAndLog()
			return s.doc.Assets[i], nil
		}
	}
	return Asset{}, ErrNotFound
}

// AssetByID returns the asset with the given id.
func (s *Store) AssetByID(id int) (Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.doc.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

// AssetsByOwnerFolder returns the owner's assets in the given folder.
// A nil folderID selects root-level assets.
func (s *Store) AssetsByOwnerFolder(ownerID int, folderID *int) []Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Asset{}
	for _, a := range s.doc.Assets {
		if a.OwnerID == ownerID && sameFolder(a.FolderID, folderID) {
			out = append(out, a)
		}
	}
	return out
}

// AddFolder allocates the next folder id, appends the node, and persists.
func (s *Store) AddFolder(ownerID int, name string, parentID *int) Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := Folder{
		ID:       s.doc.NextFolderID,
		OwnerID:  ownerID,
		Name:     name,
		ParentID: parentID,
	}
	s.doc.NextFolderID++
	s.doc.Folders = append(s.doc.Folders, f)
	s.persistAndLog()
	return f
}

// FolderByID returns the folder with the given id.
func (s *Store) FolderByID(id int) (Folder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.doc.Folders {
		if f.ID == id {
			return f, true
		}
	}
	return Folder{}, false
}

// FoldersByOwnerParent returns the owner's folders under the given parent.
// A nil parentID selects root-level folders.
func (s *Store) FoldersByOwnerParent(ownerID int, parentID *int) []Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Folder{}
	for _, f := range s.doc.Folders {
		if f.OwnerID == ownerID && sameFolder(f.ParentID, parentID) {
			out = append(out, f)
		}
	}
	return out
}

// RemoveFolderReparent deletes the folder row and moves its direct child
// assets to root. Child folders are left in place; the tree is shallow by
// design and deletion never touches asset bytes.
func (s *Store) RemoveFolderReparent(id int) (reparented int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, f := range s.doc.Folders {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, ErrNotFound
	}

	for i := range s.doc.Assets {
		if s.doc.Assets[i].FolderID != nil && *s.doc.Assets[i].FolderID == id {
			s.doc.Assets[i].FolderID = nil
			reparented++
		}
	}
	s.doc.Folders = append(s.doc.Folders[:idx], s.doc.Folders[idx+1:]...)
	s.persistAndLog()
	return reparented, nil
}

func sameFolder(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
