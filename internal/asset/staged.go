package asset

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// allowedMimeTypes is the upload allowlist: the image formats the
// transform stage may handle plus common video container formats.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":       true,
	"image/png":        true,
	"image/gif":        true,
	"image/webp":       true,
	"video/mp4":        true,
	"video/webm":       true,
	"video/ogg":        true,
	"video/quicktime":  true,
	"video/x-matroska": true,
}

// AllowedMimeType reports whether uploads of the given MIME type are accepted.
func AllowedMimeType(mimeType string) bool {
	return allowedMimeTypes[mimeType]
}

// StagedFile is an upload parked in the local staging directory, waiting
// for the ingestion pipeline. Whoever stages a file owns its removal.
type StagedFile struct {
	Path         string
	OriginalName string
	MimeType     string
	Size         int64
}

// Stage copies r into the staging directory under a random hex name that
// keeps the original extension, so concurrent uploads of equally named
// files never collide on disk.
func Stage(tempDir string, r io.Reader, originalName, mimeType string) (StagedFile, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return StagedFile{}, fmt.Errorf("create staging dir: %w", err)
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return StagedFile{}, fmt.Errorf("generate staging name: %w", err)
	}
	path := filepath.Join(tempDir, hex.EncodeToString(buf)+filepath.Ext(originalName))

	f, err := os.Create(path)
	if err != nil {
		return StagedFile{}, fmt.Errorf("create staging file: %w", err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		removeTemp(path)
		return StagedFile{}, fmt.Errorf("stage upload: %w", err)
	}

	return StagedFile{
		Path:         path,
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         size,
	}, nil
}
