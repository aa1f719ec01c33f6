package controllers

import (
	"net/http"

	"github.com/bionicotaku/cast-services-portal/internal/controllers/dto"
	"github.com/bionicotaku/cast-services-portal/internal/services"
	"github.com/bionicotaku/cast-services-portal/internal/views"

	"github.com/go-chi/chi/v5"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/google/uuid"
)

// VideoHandler 暴露视频元数据的读写端点。
type VideoHandler struct {
	*BaseHandler
	commands  *services.VideoCommandService
	queries   *services.VideoQueryService
	allowlist *views.ImageHostAllowlist
}

// NewVideoHandler 构造 VideoHandler。
func NewVideoHandler(base *BaseHandler, commands *services.VideoCommandService, queries *services.VideoQueryService, allowlist *views.ImageHostAllowlist) *VideoHandler {
	return &VideoHandler{
		BaseHandler: base,
		commands:    commands,
		queries:     queries,
		allowlist:   allowlist,
	}
}

// Register 挂载路由。
func (h *VideoHandler) Register(r chi.Router) {
	r.Post("/api/videos", h.SaveDetails)
	r.Get("/api/videos", h.ListVideos)
	r.Get("/api/videos/{videoID}", h.GetVideo)
	r.Patch("/api/videos/{videoID}/visibility", h.ChangeVisibility)
	r.Delete("/api/videos/{videoID}", h.DeleteVideo)
	r.Get("/api/users/{userID}/videos", h.ListUserVideos)
}

// SaveDetails 是上传编排的最终持久化步骤。
func (h *VideoHandler) SaveDetails(w http.ResponseWriter, r *http.Request) {
	userID, err := h.RequireUser(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	var req dto.SaveVideoRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}
	videoID, err := uuid.Parse(req.VideoID)
	if err != nil {
		h.WriteError(w, r, kerrors.BadRequest(services.ReasonVideoInvalid, "invalid video id"))
		return
	}

	ctx, cancel := h.WithTimeout(r.Context(), HandlerTypeCommand)
	defer cancel()

	saved, err := h.commands.SaveDetails(ctx, services.SaveVideoDetailsInput{
		UserID:          userID,
		VideoID:         videoID,
		Title:           req.Title,
		Description:     req.Description,
		Visibility:      req.Visibility,
		ThumbnailURL:    req.ThumbnailURL,
		DurationSeconds: req.Duration,
	})
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, views.NewVideoSavedResponse(saved))
}

// GetVideo 查询单个视频。
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	userID, err := h.RequireUser(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	videoID, err := uuid.Parse(chi.URLParam(r, "videoID"))
	if err != nil {
		h.WriteError(w, r, kerrors.BadRequest(services.ReasonVideoInvalid, "invalid video id"))
		return
	}

	ctx, cancel := h.WithTimeout(r.Context(), HandlerTypeQuery)
	defer cancel()

	detail, err := h.queries.GetVideo(ctx, userID, videoID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, views.NewVideoResponse(detail, h.allowlist))
}

// ListVideos 返回请求者可见的视频流。
func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	userID, err := h.RequireUser(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	ctx, cancel := h.WithTimeout(r.Context(), HandlerTypeQuery)
	defer cancel()

	details, err := h.queries.ListVideos(ctx, userID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, views.NewVideoListResponse(details, h.allowlist))
}

// ListUserVideos 返回指定上传者的视频流。
func (h *VideoHandler) ListUserVideos(w http.ResponseWriter, r *http.Request) {
	viewerID, err := h.RequireUser(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.WriteError(w, r, kerrors.BadRequest(services.ReasonVideoInvalid, "invalid user id"))
		return
	}

	ctx, cancel := h.WithTimeout(r.Context(), HandlerTypeQuery)
	defer cancel()

	details, err := h.queries.ListUserVideos(ctx, viewerID, userID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, views.NewVideoListResponse(details, h.allowlist))
}

// ChangeVisibility 变更视频可见性。
func (h *VideoHandler) ChangeVisibility(w http.ResponseWriter, r *http.Request) {
	userID, err := h.RequireUser(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	videoID, err := uuid.Parse(chi.URLParam(r, "videoID"))
	if err != nil {
		h.WriteError(w, r, kerrors.BadRequest(services.ReasonVideoInvalid, "invalid video id"))
		return
	}

	var req dto.ChangeVisibilityRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}

	ctx, cancel := h.WithTimeout(r.Context(), HandlerTypeCommand)
	defer cancel()

	detail, err := h.commands.ChangeVisibility(ctx, services.ChangeVisibilityInput{
		UserID:     userID,
		VideoID:    videoID,
		Visibility: req.Visibility,
	})
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, views.NewVideoResponse(detail, h.allowlist))
}

// DeleteVideo 删除视频。
func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	userID, err := h.RequireUser(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	videoID, err := uuid.Parse(chi.URLParam(r, "videoID"))
	if err != nil {
		h.WriteError(w, r, kerrors.BadRequest(services.ReasonVideoInvalid, "invalid video id"))
		return
	}

	ctx, cancel := h.WithTimeout(r.Context(), HandlerTypeCommand)
	defer cancel()

	if err := h.commands.DeleteVideo(ctx, services.DeleteVideoInput{UserID: userID, VideoID: videoID}); err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusNoContent, nil)
}
