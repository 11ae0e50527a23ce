package auth

import (
	"encoding/json"
	"net/http"

	"github.com/minicloud/service/internal/response"
)

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Username   string `json:"username"   example:"alice"`
	Credential string `json:"credential" example:"s3cret"`
}

type loginData struct {
	Token string `json:"token" example:"eyJhbGci..."`
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Exchange username and credential for a short-lived bearer token. The per-account API key works as a bearer token too.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	response.Envelope{data=loginData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Username == "" || req.Credential == "" {
		response.BadRequest(w, "username and credential are required")
		return
	}

	token, _, err := h.svc.Login(req.Username, req.Credential)
	if err != nil {
		response.Unauthorized(w, "invalid username or credential")
		return
	}

	response.OK(w, loginData{Token: token})
}
