// Package events 定义写入 Outbox 的领域事件及其序列化规则。
// 事件载荷以 JSON 编码，下游消费者按 event_type 属性路由。
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/models/po"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	// AggregateTypeVideo 标识视频聚合类型，供 Outbox headers / attributes 使用。
	AggregateTypeVideo = "video"
	// SchemaVersionV1 描述事件载荷的当前 schema 版本。
	SchemaVersionV1 = "v1"
)

// Kind 表示事件类别。
type Kind string

// 事件类别常量定义
const (
	KindVideoPublished         Kind = "video.published"
	KindVideoVisibilityChanged Kind = "video.visibility_changed"
	KindVideoDeleted           Kind = "video.deleted"
)

var (
	// ErrNilVideo 在构建事件时视频实体为空。
	ErrNilVideo = errors.New("event builder: video is nil")
	// ErrInvalidEventID 表示未提供合法的事件 ID。
	ErrInvalidEventID = errors.New("event builder: event id is required")
)

// DomainEvent 是写入 Outbox 的事件信封。
type DomainEvent struct {
	EventID       uuid.UUID      `json:"eventId"`
	Kind          Kind           `json:"kind"`
	AggregateID   uuid.UUID      `json:"aggregateId"`
	AggregateType string         `json:"aggregateType"`
	Version       int32          `json:"version"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Payload       map[string]any `json:"payload"`
}

// NewVideoPublished 基于持久化实体构建 video.published 事件。
func NewVideoPublished(video *po.Video, eventID uuid.UUID, occurredAt time.Time) (*DomainEvent, error) {
	if video == nil {
		return nil, ErrNilVideo
	}
	payload := map[string]any{
		"videoId":      video.VideoID.String(),
		"userId":       video.UserID.String(),
		"title":        video.Title,
		"visibility":   string(video.Visibility),
		"thumbnailUrl": video.ThumbnailURL,
		"duration":     video.DurationSeconds,
	}
	return newEvent(KindVideoPublished, video.VideoID, eventID, occurredAt, payload)
}

// NewVideoVisibilityChanged 构建可见性变更事件。
func NewVideoVisibilityChanged(video *po.Video, eventID uuid.UUID, occurredAt time.Time) (*DomainEvent, error) {
	if video == nil {
		return nil, ErrNilVideo
	}
	payload := map[string]any{
		"videoId":    video.VideoID.String(),
		"visibility": string(video.Visibility),
	}
	return newEvent(KindVideoVisibilityChanged, video.VideoID, eventID, occurredAt, payload)
}

// NewVideoDeleted 构建删除事件。
func NewVideoDeleted(videoID uuid.UUID, eventID uuid.UUID, occurredAt time.Time) (*DomainEvent, error) {
	payload := map[string]any{
		"videoId": videoID.String(),
	}
	return newEvent(KindVideoDeleted, videoID, eventID, occurredAt, payload)
}

func newEvent(kind Kind, aggregateID, eventID uuid.UUID, occurredAt time.Time, payload map[string]any) (*DomainEvent, error) {
	if eventID == uuid.Nil {
		return nil, ErrInvalidEventID
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return &DomainEvent{
		EventID:       eventID,
		Kind:          kind,
		AggregateID:   aggregateID,
		AggregateType: AggregateTypeVideo,
		Version:       1,
		OccurredAt:    occurredAt.UTC(),
		Payload:       payload,
	}, nil
}

// Marshal 序列化事件载荷为 JSON。
func (e *DomainEvent) Marshal() ([]byte, error) {
	if e == nil {
		return nil, ErrNilVideo
	}
	return json.Marshal(e)
}

// BuildAttributes 生成事件的消息属性，供 Pub/Sub attributes 与 Outbox headers 使用。
func BuildAttributes(e *DomainEvent, schemaVersion, traceID string) ([]byte, error) {
	attrs := map[string]string{
		"event_type":     string(e.Kind),
		"aggregate_type": e.AggregateType,
		"aggregate_id":   e.AggregateID.String(),
		"schema_version": schemaVersion,
	}
	if traceID != "" {
		attrs["trace_id"] = traceID
	}
	return json.Marshal(attrs)
}

// TraceIDFromContext 提取当前 Span 的 trace id，缺失时返回空串。
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
