// Package transform is the optional image optimization step applied before
// an upload is committed to remote storage. It never fails an upload: any
// problem degrades to "use the original bytes".
package transform

import (
	"log"
	"os"
	"strings"

	"github.com/disintegration/imaging"
)

// KeyPrefix distinguishes optimized objects from originals in remote keys.
const KeyPrefix = "opt-"

// Images wider than maxWidth are scaled down proportionally; narrower
// images are never upscaled.
const maxWidth = 1000

// jpegQuality is the encode quality for lossy re-optimization.
const jpegQuality = 80

// Result is the explicit two-branch outcome of an optimization attempt.
// When Transformed is false, Path and MimeType echo the original staged
// file and the upload proceeds unchanged.
type Result struct {
	Transformed bool
	Path        string
	MimeType    string
}

// Optimizer re-encodes and resizes staged images, writing output to fresh
// temp files in its staging directory. The caller owns cleanup of both the
// source and the output path.
type Optimizer struct {
	tempDir string
}

// NewOptimizer returns an Optimizer staging output under tempDir.
func NewOptimizer(tempDir string) *Optimizer {
	return &Optimizer{tempDir: tempDir}
}

// target maps a source MIME type to the encode format. Subtypes imaging
// cannot encode natively fall back to JPEG, the generic lossy format.
func target(mimeType string) (imaging.Format, string, string) {
	switch mimeType {
	case "image/jpeg":
		return imaging.JPEG, ".jpg", "image/jpeg"
	case "image/png":
		return imaging.PNG, ".png", "image/png"
	case "image/gif":
		return imaging.GIF, ".gif", "image/gif"
	default:
		return imaging.JPEG, ".jpg", "image/jpeg"
	}
}

// Optimize attempts to resize and re-encode the staged image at srcPath.
// Non-image inputs and any decode/encode failure return the untransformed
// branch; failures are logged, never surfaced.
func (o *Optimizer) Optimize(srcPath, mimeType string) Result {
	original := Result{Transformed: false, Path: srcPath, MimeType: mimeType}

	if !strings.HasPrefix(mimeType, "image/") {
		return original
	}

	img, err := imaging.Open(srcPath)
	if err != nil {
		log.Printf("transform: decode %s (%s) failed, uploading original: %v", srcPath, mimeType, err)
		return original
	}

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	format, ext, outMime := target(mimeType)

	out, err := os.CreateTemp(o.tempDir, "opt-*"+ext)
	if err != nil {
		log.Printf("transform: create temp file failed, uploading original: %v", err)
		return original
	}

	err = imaging.Encode(out, img, format, imaging.JPEGQuality(jpegQuality))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Printf("transform: encode %s failed, uploading original: %v", srcPath, err)
		if rmErr := os.Remove(out.Name()); rmErr != nil {
			log.Printf("transform: remove partial output %s: %v", out.Name(), rmErr)
		}
		return original
	}

	return Result{Transformed: true, Path: out.Name(), MimeType: outMime}
}
