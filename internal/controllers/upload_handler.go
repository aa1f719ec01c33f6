package controllers

import (
	"net/http"

	"github.com/bionicotaku/cast-services-portal/internal/controllers/dto"
	"github.com/bionicotaku/cast-services-portal/internal/services"

	"github.com/go-chi/chi/v5"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/google/uuid"
)

// UploadHandler 暴露上传凭证签发端点。
type UploadHandler struct {
	*BaseHandler
	svc *services.UploadService
}

// NewUploadHandler 构造 UploadHandler。
func NewUploadHandler(base *BaseHandler, svc *services.UploadService) *UploadHandler {
	return &UploadHandler{BaseHandler: base, svc: svc}
}

// Register 挂载路由。
func (h *UploadHandler) Register(r chi.Router) {
	r.Post("/api/videos/upload-credentials", h.IssueVideoCredential)
	r.Post("/api/videos/{videoID}/thumbnail-credentials", h.IssueThumbnailCredential)
}

// IssueVideoCredential 为登录用户签发视频直传凭证。
func (h *UploadHandler) IssueVideoCredential(w http.ResponseWriter, r *http.Request) {
	userID, err := h.RequireUser(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	var req dto.UploadCredentialRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}

	ctx, cancel := h.WithTimeout(r.Context(), HandlerTypeCommand)
	defer cancel()

	cred, err := h.svc.IssueVideoCredential(ctx, userID, req.Title)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, cred)
}

// IssueThumbnailCredential 为登录用户签发缩略图直传凭证。
func (h *UploadHandler) IssueThumbnailCredential(w http.ResponseWriter, r *http.Request) {
	userID, err := h.RequireUser(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	videoID, err := uuid.Parse(chi.URLParam(r, "videoID"))
	if err != nil {
		h.WriteError(w, r, kerrors.BadRequest(services.ReasonCredentialInput, "invalid video id"))
		return
	}

	var req dto.ThumbnailCredentialRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}

	ctx, cancel := h.WithTimeout(r.Context(), HandlerTypeCommand)
	defer cancel()

	cred, err := h.svc.IssueThumbnailCredential(ctx, userID, videoID, req.FileName)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, cred)
}
