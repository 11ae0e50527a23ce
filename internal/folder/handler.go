package folder

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/minicloud/service/internal/middleware"
	"github.com/minicloud/service/internal/response"
)

// Handler holds HTTP handlers for folder endpoints and the browse listing.
type Handler struct {
	svc *Service
}

// NewHandler creates a new folder Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createFolderRequest struct {
	Name     string `json:"name"     example:"vacation"`
	ParentID *int   `json:"parentId" example:"3"`
}

// Create godoc
//
//	@Summary		Create a folder
//	@Description	Creates a folder under parentId, or at the root when parentId is omitted.
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		createFolderRequest	true	"Folder name and optional parent"
//	@Success		201	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Router			/folders [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		response.BadRequest(w, "name is required")
		return
	}

	f, err := h.svc.Create(user, req.Name, req.ParentID)
	if errors.Is(err, ErrParentNotFound) {
		response.BadRequest(w, "parent folder not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, f)
}

// ListChildren godoc
//
//	@Summary		Browse a folder
//	@Description	Lists the folders and assets directly under folderId, or the root level when folderId is omitted.
//	@Tags			folders
//	@Produce		json
//	@Security		BearerAuth
//	@Param			folderId	query		int	false	"Folder id to browse"
//	@Success		200	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/assets [get]
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var folderID *int
	if raw := r.URL.Query().Get("folderId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "folderId must be an integer")
			return
		}
		folderID = &id
	}

	listing, err := h.svc.ListChildren(user, folderID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "folder not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, "you do not own this folder")
	case err != nil:
		response.InternalError(w)
	default:
		response.OK(w, map[string]interface{}{
			"currentFolder": listing.CurrentFolder,
			"folders":       listing.Folders,
			"assets":        listing.Assets,
		})
	}
}

// Delete godoc
//
//	@Summary		Delete a folder
//	@Description	Removes the folder and moves its direct assets to the root. Child folders and asset bytes are untouched.
//	@Tags			folders
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Folder id"
//	@Success		200	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/folders/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid folder id")
		return
	}

	err = h.svc.Delete(user, id)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "folder not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, "you do not own this folder")
	case err != nil:
		response.InternalError(w)
	default:
		response.OK(w, map[string]bool{"deleted": true})
	}
}
