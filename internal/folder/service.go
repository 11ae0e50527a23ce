// Package folder manages the per-user folder tree and the browse listing.
package folder

import (
	"errors"

	"github.com/minicloud/service/internal/catalog"
)

// ErrNotFound is returned when the folder id does not exist.
var ErrNotFound = errors.New("folder not found")

// ErrForbidden is returned when the requester does not own the folder.
var ErrForbidden = errors.New("folder owned by another user")

// ErrParentNotFound is returned when a create names a parent that does
// not exist or belongs to another user.
var ErrParentNotFound = errors.New("parent folder not found")

// Service contains business logic for folder management.
type Service struct {
	store *catalog.Store
}

// NewService creates a folder Service.
func NewService(store *catalog.Store) *Service {
	return &Service{store: store}
}

// Listing is the content of one level of the tree: the folder being
// browsed (nil at root), its direct child folders, and its direct assets.
type Listing struct {
	CurrentFolder *catalog.Folder
	Folders       []catalog.Folder
	Assets        []catalog.Asset
}

// Create adds a folder under parentID (nil = root). A non-nil parent must
// exist and belong to the owner.
func (s *Service) Create(owner catalog.User, name string, parentID *int) (catalog.Folder, error) {
	if parentID != nil {
		p, ok := s.store.FolderByID(*parentID)
		if !ok || p.OwnerID != owner.ID {
			return catalog.Folder{}, ErrParentNotFound
		}
	}
	return s.store.AddFolder(owner.ID, name, parentID), nil
}

// ListChildren returns the owner's folders and assets directly under
// folderID. A nil folderID lists the root level.
func (s *Service) ListChildren(owner catalog.User, folderID *int) (Listing, error) {
	var current *catalog.Folder
	if folderID != nil {
		f, ok := s.store.FolderByID(*folderID)
		if !ok {
			return Listing{}, ErrNotFound
		}
		if f.OwnerID != owner.ID {
			return Listing{}, ErrForbidden
		}
		current = &f
	}
	return Listing{
		CurrentFolder: current,
		Folders:       s.store.FoldersByOwnerParent(owner.ID, folderID),
		Assets:        s.store.AssetsByOwnerFolder(owner.ID, folderID),
	}, nil
}

// Delete removes the folder row after reparenting its direct assets to
// root. Child folders are left where they are; deletion is shallow and
// never removes asset bytes or rows.
func (s *Service) Delete(requester catalog.User, folderID int) error {
	f, ok := s.store.FolderByID(folderID)
	if !ok {
		return ErrNotFound
	}
	if f.OwnerID != requester.ID {
		return ErrForbidden
	}
	if _, err := s.store.RemoveFolderReparent(folderID); err != nil {
		return ErrNotFound
	}
	return nil
}
