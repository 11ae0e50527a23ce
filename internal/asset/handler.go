package asset

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/minicloud/service/internal/catalog"
	"github.com/minicloud/service/internal/middleware"
	"github.com/minicloud/service/internal/response"
)

// Handler holds HTTP handlers for upload, rename, and delete endpoints.
type Handler struct {
	svc            *Service
	tempDir        string
	maxUploadBytes int64
	maxBulkFiles   int
}

// NewHandler creates a new asset Handler.
func NewHandler(svc *Service, tempDir string, maxUploadBytes int64, maxBulkFiles int) *Handler {
	return &Handler{
		svc:            svc,
		tempDir:        tempDir,
		maxUploadBytes: maxUploadBytes,
		maxBulkFiles:   maxBulkFiles,
	}
}

type assetBody struct {
	ID        int       `json:"id"`
	FileName  string    `json:"fileName"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mimeType"`
	FolderID  *int      `json:"folderId"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAssetBody(a catalog.Asset) assetBody {
	return assetBody{
		ID:        a.ID,
		FileName:  a.FileName,
		URL:       a.URL,
		MimeType:  a.MimeType,
		FolderID:  a.FolderID,
		CreatedAt: a.CreatedAt,
	}
}

type bulkFileBody struct {
	OriginalName string `json:"originalName"`
	FileName     string `json:"fileName,omitempty"`
	URL          string `json:"url,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	Error        string `json:"error,omitempty"`
}

type renameRequest struct {
	NewName string `json:"newName" example:"holiday-photo.jpg"`
}

// partMimeType returns the client-declared content type of a multipart
// file, falling back to a guess from the extension.
func partMimeType(header textprotoHeader, filename string) string {
	if ct := header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// textprotoHeader is the subset of textproto.MIMEHeader the handler needs.
type textprotoHeader interface {
	Get(key string) string
}

// parseFolderID reads the optional folderId form field.
func parseFolderID(value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Upload a single image or video. With optimize=true, images are resized and re-encoded before storage.
//	@Tags			assets
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file		formData	file	true	"Image or video file"
//	@Param			folderId	formData	int		false	"Target folder id"
//	@Param			optimize	formData	bool	false	"Optimize images before storage"
//	@Success		201	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.BadRequest(w, "invalid multipart request or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		response.BadRequest(w, "file exceeds the maximum upload size")
		return
	}

	mimeType := partMimeType(header.Header, header.Filename)
	if !AllowedMimeType(mimeType) {
		response.BadRequest(w, "file must be an image (jpg, png, gif, webp) or video (mp4, webm, ogg, mov, mkv)")
		return
	}

	folderID, err := parseFolderID(r.FormValue("folderId"))
	if err != nil {
		response.BadRequest(w, "folderId must be an integer")
		return
	}
	optimize := r.FormValue("optimize") == "true"

	staged, err := Stage(h.tempDir, file, header.Filename, mimeType)
	if err != nil {
		response.InternalError(w)
		return
	}

	a, err := h.svc.Ingest(r.Context(), user, staged, folderID, optimize)
	if errors.Is(err, ErrFolderNotFound) {
		response.BadRequest(w, "target folder not found")
		return
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to upload to remote storage")
		return
	}

	response.Created(w, toAssetBody(a))
}

// UploadBulk godoc
//
//	@Summary		Upload multiple files
//	@Description	Upload up to 20 files in one request. Files are processed one by one; a failing file does not abort the others.
//	@Tags			assets
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file		formData	file	true	"Image or video files (repeat the field)"
//	@Param			folderId	formData	int		false	"Target folder id"
//	@Param			optimize	formData	bool	false	"Optimize images before storage"
//	@Success		200	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Router			/upload-bulk [post]
func (h *Handler) UploadBulk(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxBulkFiles)*h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.BadRequest(w, "invalid multipart request or payload too large")
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		response.BadRequest(w, "no files uploaded")
		return
	}
	if len(headers) > h.maxBulkFiles {
		response.BadRequest(w, "too many files in one request")
		return
	}

	folderID, err := parseFolderID(r.FormValue("folderId"))
	if err != nil {
		response.BadRequest(w, "folderId must be an integer")
		return
	}
	optimize := r.FormValue("optimize") == "true"

	staged := make([]StagedFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.maxUploadBytes {
			cleanupStaged(staged)
			response.BadRequest(w, "a file exceeds the maximum upload size")
			return
		}
		part, err := fh.Open()
		if err != nil {
			cleanupStaged(staged)
			response.InternalError(w)
			return
		}
		sf, err := Stage(h.tempDir, part, fh.Filename, partMimeType(fh.Header, fh.Filename))
		part.Close()
		if err != nil {
			cleanupStaged(staged)
			response.InternalError(w)
			return
		}
		staged = append(staged, sf)
	}

	results := h.svc.IngestBatch(r.Context(), user, staged, folderID, optimize)

	files := make([]bulkFileBody, len(results))
	for i, res := range results {
		files[i] = bulkFileBody{
			OriginalName: res.OriginalName,
			FileName:     res.FileName,
			URL:          res.URL,
			MimeType:     res.MimeType,
		}
		if res.Err != nil {
			files[i].Error = res.Err.Error()
		}
	}
	response.OK(w, map[string]interface{}{"files": files})
}

// Rename godoc
//
//	@Summary		Rename an asset
//	@Description	Re-uploads the object under the new name and deletes the old key; remote storage has no atomic rename.
//	@Tags			assets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int				true	"Asset id"
//	@Param			request	body		renameRequest	true	"New display name"
//	@Success		200	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/assets/{id} [put]
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid asset id")
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewName == "" {
		response.BadRequest(w, "newName is required")
		return
	}

	a, err := h.svc.Rename(r.Context(), user, id, req.NewName)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "asset not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, "you do not own this asset")
	case err != nil:
		response.Error(w, http.StatusInternalServerError, "rename failed; the asset keeps its current name")
	default:
		response.OK(w, toAssetBody(a))
	}
}

// Delete godoc
//
//	@Summary		Delete an asset
//	@Description	Removes the remote object first, then the catalog record. On remote failure the record is kept.
//	@Tags			assets
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Asset id"
//	@Success		200	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/assets/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid asset id")
		return
	}

	err = h.svc.Delete(r.Context(), user, id)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "asset not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, "you do not own this asset")
	case err != nil:
		response.Error(w, http.StatusInternalServerError, "failed to delete from remote storage")
	default:
		response.OK(w, map[string]bool{"deleted": true})
	}
}

// cleanupStaged removes staging files for a request that failed before
// reaching the pipeline.
func cleanupStaged(staged []StagedFile) {
	for _, sf := range staged {
		removeTemp(sf.Path)
	}
}
