// Package vo 定义视图对象（View Objects），用于向上层传递业务数据。
// VO 对象由 Service 层返回，经 Views 层转换为 API 响应，隔离内部数据结构。
package vo

import (
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/models/po"

	"github.com/google/uuid"
)

// VideoUploadCredential 封装视频上传凭证：服务端分配的 video_id、
// 一次性上传地址与访问密钥。凭证短时有效且不落库。
type VideoUploadCredential struct {
	VideoID   string    `json:"videoId"`
	UploadURL string    `json:"uploadUrl"`
	AccessKey string    `json:"accessKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ThumbnailUploadCredential 封装缩略图上传凭证，额外携带最终持久化用的 CDN 地址。
type ThumbnailUploadCredential struct {
	UploadURL string    `json:"uploadUrl"`
	AccessKey string    `json:"accessKey"`
	CDNURL    string    `json:"cdnUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VideoDetail 封装视频精简视图，仅包含前端展示需要的核心字段。
type VideoDetail struct {
	VideoID         uuid.UUID     `json:"videoId"`
	UserID          uuid.UUID     `json:"userId"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Visibility      po.Visibility `json:"visibility"`
	ThumbnailURL    string        `json:"thumbnailUrl"`
	DurationSeconds int32         `json:"duration"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// NewVideoDetail 从领域实体构造精简 VO。
func NewVideoDetail(video *po.Video) *VideoDetail {
	if video == nil {
		return nil
	}
	return &VideoDetail{
		VideoID:         video.VideoID,
		UserID:          video.UserID,
		Title:           video.Title,
		Description:     video.Description,
		Visibility:      video.Visibility,
		ThumbnailURL:    video.ThumbnailURL,
		DurationSeconds: video.DurationSeconds,
		CreatedAt:       video.CreatedAt,
		UpdatedAt:       video.UpdatedAt,
	}
}

// VideoSaved 描述元数据持久化成功后的结果。
type VideoSaved struct {
	VideoID    uuid.UUID `json:"videoId"`
	EventID    uuid.UUID `json:"eventId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewVideoSaved 构造持久化结果 VO。
func NewVideoSaved(video *po.Video, eventID uuid.UUID, occurredAt time.Time) *VideoSaved {
	if video == nil {
		return nil
	}
	return &VideoSaved{
		VideoID:    video.VideoID,
		EventID:    eventID,
		OccurredAt: occurredAt.UTC(),
	}
}
