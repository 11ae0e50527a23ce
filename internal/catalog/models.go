package catalog

import "time"

// User is an account provisioned out of band. Credentials are stored as
// bcrypt hashes; the API key doubles as a bearer token.
type User struct {
	ID             int       `json:"id"`
	Username       string    `json:"username"`
	CredentialHash string    `json:"credentialHash"`
	APIKey         string    `json:"apiKey"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Folder is a node in a per-user tree. A nil ParentID means the folder
// sits at the root.
type Folder struct {
	ID       int    `json:"id"`
	OwnerID  int    `json:"ownerId"`
	Name     string `json:"name"`
	ParentID *int   `json:"parentId"`
}

// Asset describes one committed upload. FileName is the key inside the
// owner's namespace on the remote store; URL is the CDN-servable address.
// A nil FolderID places the asset at the root of the owner's tree.
type Asset struct {
	ID        int       `json:"id"`
	OwnerID   int       `json:"ownerId"`
	FolderID  *int      `json:"folderId"`
	FileName  string    `json:"fileName"`
	Namespace string    `json:"namespace"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
}

// document is the whole-catalog snapshot serialized to disk after every
// mutation. It is the single durable representation of the metadata.
type document struct {
	Users        []User   `json:"users"`
	Folders      []Folder `json:"folders"`
	Assets       []Asset  `json:"assets"`
	NextUserID   int      `json:"nextUserId"`
	NextFolderID int      `json:"nextFolderId"`
	NextAssetID  int      `json:"nextAssetId"`
}
