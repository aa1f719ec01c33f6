package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/models/events"
	"github.com/bionicotaku/cast-services-portal/internal/models/po"
	"github.com/bionicotaku/cast-services-portal/internal/models/vo"
	"github.com/bionicotaku/cast-services-portal/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// VideoCommandRepo 定义写模型需要的持久化行为。
type VideoCommandRepo interface {
	Insert(ctx context.Context, sess txmanager.Session, video *po.Video) (*po.Video, error)
	FindByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
	UpdateVisibility(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, visibility po.Visibility) (*po.Video, error)
	Delete(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) error
}

// VideoOutboxWriter 定义 Outbox 写入行为。
type VideoOutboxWriter interface {
	Enqueue(ctx context.Context, sess txmanager.Session, msg repositories.OutboxMessage) error
}

// SaveVideoDetailsInput 表示上传编排最终持久化步骤的输入。
// video_id 与 thumbnail_url 来自此前的凭证签发与直传结果。
type SaveVideoDetailsInput struct {
	UserID          uuid.UUID
	VideoID         uuid.UUID
	Title           string
	Description     string
	Visibility      string
	ThumbnailURL    string
	DurationSeconds int32
}

// ChangeVisibilityInput 表示可见性变更输入。
type ChangeVisibilityInput struct {
	UserID     uuid.UUID
	VideoID    uuid.UUID
	Visibility string
}

// DeleteVideoInput 表示删除视频的输入。
type DeleteVideoInput struct {
	UserID  uuid.UUID
	VideoID uuid.UUID
}

// VideoCommandService 封装 Video 写模型用例。
type VideoCommandService struct {
	repo      VideoCommandRepo
	outbox    VideoOutboxWriter
	txManager txmanager.Manager
	log       *log.Helper
}

// NewVideoCommandService 构造一个 Video 写模型服务。
func NewVideoCommandService(repo VideoCommandRepo, outbox VideoOutboxWriter, tx txmanager.Manager, logger log.Logger) *VideoCommandService {
	return &VideoCommandService{
		repo:      repo,
		outbox:    outbox,
		txManager: tx,
		log:       log.NewHelper(logger),
	}
}

// SaveDetails 持久化上传完成的视频元数据并写入 video.published 事件。
// 标题与描述必填；visibility 为空时回退为 public；时长为 0 表示探测失败，允许落库。
func (s *VideoCommandService) SaveDetails(ctx context.Context, input SaveVideoDetailsInput) (*vo.VideoSaved, error) {
	if input.UserID == uuid.Nil {
		return nil, errors.Unauthorized(ReasonVideoInvalid, "user is required")
	}
	if input.VideoID == uuid.Nil {
		return nil, errors.BadRequest(ReasonVideoInvalid, "video id is required")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		return nil, errors.BadRequest(ReasonVideoInvalid, "title is required")
	}
	if description == "" {
		return nil, errors.BadRequest(ReasonVideoInvalid, "description is required")
	}
	if input.DurationSeconds < 0 {
		return nil, errors.BadRequest(ReasonVideoInvalid, "duration must be non-negative")
	}
	visibility, err := po.ParseVisibility(input.Visibility)
	if err != nil {
		return nil, errors.BadRequest(ReasonVideoInvalid, err.Error())
	}

	video := &po.Video{
		VideoID:         input.VideoID,
		UserID:          input.UserID,
		Title:           title,
		Description:     description,
		Visibility:      visibility,
		ThumbnailURL:    input.ThumbnailURL,
		DurationSeconds: input.DurationSeconds,
	}

	var saved *po.Video
	var eventID uuid.UUID
	var occurredAt time.Time

	err = s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		inserted, repoErr := s.repo.Insert(txCtx, sess, video)
		if repoErr != nil {
			return repoErr
		}

		occurredAt = inserted.CreatedAt.UTC()
		if occurredAt.IsZero() {
			occurredAt = time.Now().UTC()
		}
		eventID = uuid.New()
		event, buildErr := events.NewVideoPublished(inserted, eventID, occurredAt)
		if buildErr != nil {
			return fmt.Errorf("build video published event: %w", buildErr)
		}

		if err := s.enqueueOutbox(txCtx, sess, event, occurredAt); err != nil {
			return err
		}

		saved = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.WithContext(ctx).Warnf("save video details timeout: video_id=%s", input.VideoID)
			return nil, errors.GatewayTimeout(ReasonQueryTimeout, "save timeout")
		}
		s.log.WithContext(ctx).Errorf("save video details failed: video_id=%s err=%v", input.VideoID, err)
		return nil, errors.InternalServer(ReasonQueryFailed, "failed to save video").WithCause(fmt.Errorf("save video details: %w", err))
	}

	s.log.WithContext(ctx).Infof("SaveDetails: video_id=%s title=%s visibility=%s", saved.VideoID, saved.Title, saved.Visibility)
	return vo.NewVideoSaved(saved, eventID, occurredAt), nil
}

// ChangeVisibility 更新视频可见性，仅上传者本人可操作。
func (s *VideoCommandService) ChangeVisibility(ctx context.Context, input ChangeVisibilityInput) (*vo.VideoDetail, error) {
	visibility, err := po.ParseVisibility(input.Visibility)
	if err != nil {
		return nil, errors.BadRequest(ReasonVideoInvalid, err.Error())
	}

	var updated *po.Video
	err = s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		current, repoErr := s.repo.FindByID(txCtx, sess, input.VideoID)
		if repoErr != nil {
			return repoErr
		}
		if current.UserID != input.UserID {
			return ErrPermissionDenied
		}

		video, repoErr := s.repo.UpdateVisibility(txCtx, sess, input.VideoID, visibility)
		if repoErr != nil {
			return repoErr
		}

		occurredAt := time.Now().UTC()
		eventID := uuid.New()
		event, buildErr := events.NewVideoVisibilityChanged(video, eventID, occurredAt)
		if buildErr != nil {
			return fmt.Errorf("build visibility changed event: %w", buildErr)
		}
		if err := s.enqueueOutbox(txCtx, sess, event, occurredAt); err != nil {
			return err
		}

		updated = video
		return nil
	})
	if err != nil {
		return nil, s.mapCommandError(ctx, err, input.VideoID, "change visibility")
	}

	s.log.WithContext(ctx).Infof("ChangeVisibility: video_id=%s visibility=%s", updated.VideoID, updated.Visibility)
	return vo.NewVideoDetail(updated), nil
}

// DeleteVideo 删除视频记录并写入删除事件，仅上传者本人可操作。
func (s *VideoCommandService) DeleteVideo(ctx context.Context, input DeleteVideoInput) error {
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		current, repoErr := s.repo.FindByID(txCtx, sess, input.VideoID)
		if repoErr != nil {
			return repoErr
		}
		if current.UserID != input.UserID {
			return ErrPermissionDenied
		}

		if repoErr := s.repo.Delete(txCtx, sess, input.VideoID); repoErr != nil {
			return repoErr
		}

		occurredAt := time.Now().UTC()
		eventID := uuid.New()
		event, buildErr := events.NewVideoDeleted(input.VideoID, eventID, occurredAt)
		if buildErr != nil {
			return fmt.Errorf("build video deleted event: %w", buildErr)
		}
		return s.enqueueOutbox(txCtx, sess, event, occurredAt)
	})
	if err != nil {
		return s.mapCommandError(ctx, err, input.VideoID, "delete video")
	}

	s.log.WithContext(ctx).Infof("DeleteVideo: video_id=%s", input.VideoID)
	return nil
}

// enqueueOutbox 将领域事件写入 Outbox。
func (s *VideoCommandService) enqueueOutbox(ctx context.Context, sess txmanager.Session, event *events.DomainEvent, availableAt time.Time) error {
	payload, marshalErr := event.Marshal()
	if marshalErr != nil {
		return fmt.Errorf("marshal video event: %w", marshalErr)
	}

	attributes, attrErr := events.BuildAttributes(event, events.SchemaVersionV1, events.TraceIDFromContext(ctx))
	if attrErr != nil {
		return fmt.Errorf("build event attributes: %w", attrErr)
	}
	if availableAt.IsZero() {
		availableAt = time.Now().UTC()
	}

	msg := repositories.OutboxMessage{
		EventID:       event.EventID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     string(event.Kind),
		Payload:       payload,
		Headers:       attributes,
		AvailableAt:   availableAt,
	}
	if err := s.outbox.Enqueue(ctx, sess, msg); err != nil {
		return fmt.Errorf("enqueue outbox: %w", err)
	}
	return nil
}

func (s *VideoCommandService) mapCommandError(ctx context.Context, err error, videoID uuid.UUID, action string) error {
	switch {
	case errors.Is(err, repositories.ErrVideoNotFound):
		return ErrVideoNotFound
	case errors.Is(err, ErrPermissionDenied):
		return ErrPermissionDenied
	case errors.Is(err, context.DeadlineExceeded):
		s.log.WithContext(ctx).Warnf("%s timeout: video_id=%s", action, videoID)
		return errors.GatewayTimeout(ReasonQueryTimeout, action+" timeout")
	default:
		s.log.WithContext(ctx).Errorf("%s failed: video_id=%s err=%v", action, videoID, err)
		return errors.InternalServer(ReasonQueryFailed, "failed to "+action).WithCause(fmt.Errorf("%s: %w", action, err))
	}
}
