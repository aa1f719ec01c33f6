// Package views 负责将内部 VO 对象转换为 HTTP JSON 响应。
// 该层作为传输层的序列化适配器，隔离业务逻辑与协议细节。
package views

import (
	"net/url"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/models/vo"
)

// VideoResponse 是对外的视频 JSON 形态。
type VideoResponse struct {
	VideoID      string    `json:"videoId"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Visibility   string    `json:"visibility"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Duration     int32     `json:"duration"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VideoListResponse 是视频流响应。
type VideoListResponse struct {
	Videos []*VideoResponse `json:"videos"`
}

// VideoSavedResponse 是持久化步骤的响应。
type VideoSavedResponse struct {
	VideoID    string    `json:"videoId"`
	EventID    string    `json:"eventId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ImageHostAllowlist 过滤远程图片地址，仅保留允许主机下的 URL。
type ImageHostAllowlist struct {
	hosts map[string]struct{}
}

// NewImageHostAllowlist 构造主机白名单。
func NewImageHostAllowlist(hosts []string) *ImageHostAllowlist {
	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if h != "" {
			allowed[h] = struct{}{}
		}
	}
	return &ImageHostAllowlist{hosts: allowed}
}

// Sanitize 返回可安全渲染的图片地址；主机不在白名单内时返回空串。
func (a *ImageHostAllowlist) Sanitize(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme != "https" {
		return ""
	}
	if _, ok := a.hosts[parsed.Hostname()]; !ok {
		return ""
	}
	return rawURL
}

// NewVideoResponse 将 VideoDetail 转换为 JSON DTO，缩略图地址经过白名单过滤。
func NewVideoResponse(detail *vo.VideoDetail, allowlist *ImageHostAllowlist) *VideoResponse {
	if detail == nil {
		return &VideoResponse{}
	}
	thumbnail := detail.ThumbnailURL
	if allowlist != nil {
		thumbnail = allowlist.Sanitize(thumbnail)
	}
	return &VideoResponse{
		VideoID:      detail.VideoID.String(),
		UserID:       detail.UserID.String(),
		Title:        detail.Title,
		Description:  detail.Description,
		Visibility:   string(detail.Visibility),
		ThumbnailURL: thumbnail,
		Duration:     detail.DurationSeconds,
		CreatedAt:    detail.CreatedAt,
		UpdatedAt:    detail.UpdatedAt,
	}
}

// NewVideoListResponse 转换视频流响应。
func NewVideoListResponse(details []*vo.VideoDetail, allowlist *ImageHostAllowlist) *VideoListResponse {
	videos := make([]*VideoResponse, 0, len(details))
	for _, d := range details {
		videos = append(videos, NewVideoResponse(d, allowlist))
	}
	return &VideoListResponse{Videos: videos}
}

// NewVideoSavedResponse 转换持久化结果响应。
func NewVideoSavedResponse(saved *vo.VideoSaved) *VideoSavedResponse {
	if saved == nil {
		return &VideoSavedResponse{}
	}
	return &VideoSavedResponse{
		VideoID:    saved.VideoID.String(),
		EventID:    saved.EventID.String(),
		OccurredAt: saved.OccurredAt,
	}
}
