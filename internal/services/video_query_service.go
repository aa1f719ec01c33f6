package services

import (
	"context"
	"fmt"

	"github.com/bionicotaku/cast-services-portal/internal/models/po"
	"github.com/bionicotaku/cast-services-portal/internal/models/vo"
	"github.com/bionicotaku/cast-services-portal/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// VideoQueryRepo 定义读模型所需的访问接口。
type VideoQueryRepo interface {
	FindByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
	ListVisibleTo(ctx context.Context, sess txmanager.Session, viewerID uuid.UUID) ([]*po.Video, error)
	ListByUser(ctx context.Context, sess txmanager.Session, userID uuid.UUID) ([]*po.Video, error)
}

// VideoQueryService 封装视频只读用例。
type VideoQueryService struct {
	repo      VideoQueryRepo
	txManager txmanager.Manager
	log       *log.Helper
}

// NewVideoQueryService 构造视频查询服务。
func NewVideoQueryService(repo VideoQueryRepo, tx txmanager.Manager, logger log.Logger) *VideoQueryService {
	return &VideoQueryService{
		repo:      repo,
		txManager: tx,
		log:       log.NewHelper(logger),
	}
}

// GetVideo 查询单个视频详情。私有视频仅上传者可见，对他人表现为不存在。
func (s *VideoQueryService) GetVideo(ctx context.Context, viewerID, videoID uuid.UUID) (*vo.VideoDetail, error) {
	var video *po.Video
	err := s.txManager.WithinReadOnlyTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var repoErr error
		video, repoErr = s.repo.FindByID(txCtx, sess, videoID)
		return repoErr
	})
	if err != nil {
		return nil, s.mapQueryError(ctx, err, "get video")
	}
	if video.Visibility == po.VisibilityPrivate && video.UserID != viewerID {
		return nil, ErrVideoNotFound
	}

	s.log.WithContext(ctx).Debugf("GetVideo: video_id=%s visibility=%s", video.VideoID, video.Visibility)
	return vo.NewVideoDetail(video), nil
}

// ListVideos 返回 viewer 可见的视频流。
func (s *VideoQueryService) ListVideos(ctx context.Context, viewerID uuid.UUID) ([]*vo.VideoDetail, error) {
	var videos []*po.Video
	err := s.txManager.WithinReadOnlyTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var repoErr error
		videos, repoErr = s.repo.ListVisibleTo(txCtx, sess, viewerID)
		return repoErr
	})
	if err != nil {
		return nil, s.mapQueryError(ctx, err, "list videos")
	}
	return toDetails(videos), nil
}

// ListUserVideos 返回指定上传者的视频流，非本人时过滤私有视频。
func (s *VideoQueryService) ListUserVideos(ctx context.Context, viewerID, userID uuid.UUID) ([]*vo.VideoDetail, error) {
	var videos []*po.Video
	err := s.txManager.WithinReadOnlyTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var repoErr error
		videos, repoErr = s.repo.ListByUser(txCtx, sess, userID)
		return repoErr
	})
	if err != nil {
		return nil, s.mapQueryError(ctx, err, "list user videos")
	}

	if viewerID != userID {
		filtered := videos[:0]
		for _, v := range videos {
			if v.Visibility == po.VisibilityPublic {
				filtered = append(filtered, v)
			}
		}
		videos = filtered
	}
	return toDetails(videos), nil
}

func toDetails(videos []*po.Video) []*vo.VideoDetail {
	details := make([]*vo.VideoDetail, 0, len(videos))
	for _, v := range videos {
		details = append(details, vo.NewVideoDetail(v))
	}
	return details
}

func (s *VideoQueryService) mapQueryError(ctx context.Context, err error, action string) error {
	switch {
	case errors.Is(err, repositories.ErrVideoNotFound):
		return ErrVideoNotFound
	case errors.Is(err, context.DeadlineExceeded):
		s.log.WithContext(ctx).Warnf("%s timeout", action)
		return errors.GatewayTimeout(ReasonQueryTimeout, "query timeout")
	default:
		s.log.WithContext(ctx).Errorf("%s failed: err=%v", action, err)
		return errors.InternalServer(ReasonQueryFailed, "failed to query videos").WithCause(fmt.Errorf("%s: %w", action, err))
	}
}
