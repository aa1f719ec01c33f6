package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/bunny"
	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/configloader"
	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/gcs"
	"github.com/bionicotaku/cast-services-portal/internal/models/vo"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// CredentialIssuer 抽象对象存储后端的凭证签发能力。
type CredentialIssuer interface {
	// IssueVideo 分配 video_id 并返回视频直传地址与访问密钥。
	IssueVideo(ctx context.Context, userID uuid.UUID, title string) (videoID uuid.UUID, uploadURL, accessKey string, err error)
	// IssueThumbnail 返回缩略图直传地址、访问密钥与发布后的 CDN 地址。
	IssueThumbnail(ctx context.Context, userID, videoID uuid.UUID, fileName string) (uploadURL, accessKey, cdnURL string, err error)
}

// UploadService 实现上传凭证签发用例。凭证短时有效且不落库，
// 两段凭证（视频、缩略图）相互独立，由客户端按编排顺序请求。
type UploadService struct {
	issuer CredentialIssuer
	ttl    time.Duration
	now    func() time.Time
	log    *log.Helper
}

// NewUploadService 创建 UploadService。
func NewUploadService(issuer CredentialIssuer, ttl time.Duration, logger log.Logger) (*UploadService, error) {
	switch {
	case issuer == nil:
		return nil, errors.New("upload service: credential issuer is required")
	case ttl <= 0:
		return nil, errors.New("upload service: ttl must be positive")
	}
	return &UploadService{
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
		log:    log.NewHelper(logger),
	}, nil
}

// IssueVideoCredential 为登录用户签发视频上传凭证。
func (s *UploadService) IssueVideoCredential(ctx context.Context, userID uuid.UUID, title string) (*vo.VideoUploadCredential, error) {
	if userID == uuid.Nil {
		return nil, kerrors.Unauthorized(ReasonCredentialInput, "user is required")
	}

	videoID, uploadURL, accessKey, err := s.issuer.IssueVideo(ctx, userID, strings.TrimSpace(title))
	if err != nil {
		s.log.WithContext(ctx).Errorf("issue video credential failed: user_id=%s err=%v", userID, err)
		return nil, kerrors.InternalServer(ReasonCredentialFailed, "failed to issue upload credential").WithCause(fmt.Errorf("issue video credential: %w", err))
	}

	expiresAt := s.now().Add(s.ttl).UTC()
	s.log.WithContext(ctx).Infof("IssueVideoCredential: user_id=%s video_id=%s", userID, videoID)
	return &vo.VideoUploadCredential{
		VideoID:   videoID.String(),
		UploadURL: uploadURL,
		AccessKey: accessKey,
		ExpiresAt: expiresAt,
	}, nil
}

// IssueThumbnailCredential 为登录用户签发缩略图上传凭证。
func (s *UploadService) IssueThumbnailCredential(ctx context.Context, userID, videoID uuid.UUID, fileName string) (*vo.ThumbnailUploadCredential, error) {
	if userID == uuid.Nil {
		return nil, kerrors.Unauthorized(ReasonCredentialInput, "user is required")
	}
	if videoID == uuid.Nil {
		return nil, kerrors.BadRequest(ReasonCredentialInput, "video id is required")
	}

	uploadURL, accessKey, cdnURL, err := s.issuer.IssueThumbnail(ctx, userID, videoID, strings.TrimSpace(fileName))
	if err != nil {
		s.log.WithContext(ctx).Errorf("issue thumbnail credential failed: user_id=%s video_id=%s err=%v", userID, videoID, err)
		return nil, kerrors.InternalServer(ReasonCredentialFailed, "failed to issue upload credential").WithCause(fmt.Errorf("issue thumbnail credential: %w", err))
	}

	expiresAt := s.now().Add(s.ttl).UTC()
	s.log.WithContext(ctx).Infof("IssueThumbnailCredential: user_id=%s video_id=%s", userID, videoID)
	return &vo.ThumbnailUploadCredential{
		UploadURL: uploadURL,
		AccessKey: accessKey,
		CDNURL:    cdnURL,
		ExpiresAt: expiresAt,
	}, nil
}

// bunnyIssuer 基于 Bunny Stream / Edge Storage 签发凭证。
type bunnyIssuer struct {
	client *bunny.Client
}

func (b bunnyIssuer) IssueVideo(ctx context.Context, _ uuid.UUID, title string) (uuid.UUID, string, string, error) {
	guid, err := b.client.CreateVideo(ctx, title)
	if err != nil {
		return uuid.Nil, "", "", err
	}
	videoID, err := uuid.Parse(guid)
	if err != nil {
		return uuid.Nil, "", "", fmt.Errorf("parse bunny guid: %w", err)
	}
	uploadURL, accessKey, err := b.client.VideoUploadTarget(guid)
	if err != nil {
		return uuid.Nil, "", "", err
	}
	return videoID, uploadURL, accessKey, nil
}

func (b bunnyIssuer) IssueThumbnail(_ context.Context, _ uuid.UUID, videoID uuid.UUID, fileName string) (string, string, string, error) {
	return b.client.ThumbnailUploadTarget(videoID.String(), fileName)
}

// gcsIssuer 基于 GCS V4 Signed URL 签发凭证，访问密钥留空。
type gcsIssuer struct {
	signer  *gcs.PutSigner
	bucket  string
	cdnHost string
	ttl     time.Duration
}

func (g gcsIssuer) IssueVideo(ctx context.Context, userID uuid.UUID, _ string) (uuid.UUID, string, string, error) {
	videoID := uuid.New()
	object := fmt.Sprintf("videos/%s/%s.mp4", userID, videoID)
	signedURL, _, err := g.signer.SignedPutURL(ctx, g.bucket, object, "video/mp4", g.ttl)
	if err != nil {
		return uuid.Nil, "", "", err
	}
	return videoID, signedURL, "", nil
}

func (g gcsIssuer) IssueThumbnail(ctx context.Context, userID, videoID uuid.UUID, fileName string) (string, string, string, error) {
	if fileName == "" {
		fileName = "thumbnail.jpg"
	}
	object := fmt.Sprintf("thumbnails/%s/%s/%s", userID, videoID, fileName)
	signedURL, _, err := g.signer.SignedPutURL(ctx, g.bucket, object, "image/jpeg", g.ttl)
	if err != nil {
		return "", "", "", err
	}
	cdnURL := fmt.Sprintf("https://%s/%s", g.cdnHost, object)
	if g.cdnHost == "" {
		cdnURL = fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, object)
	}
	return signedURL, "", cdnURL, nil
}

// NewCredentialIssuer 按配置选择存储后端。
func NewCredentialIssuer(cfg configloader.StorageConfig, bundle *configloader.Bundle, bunnyClient *bunny.Client, signer *gcs.PutSigner) (CredentialIssuer, error) {
	switch cfg.Provider {
	case "bunny":
		if bunnyClient == nil {
			return nil, errors.New("credential issuer: bunny client is not configured")
		}
		return bunnyIssuer{client: bunnyClient}, nil
	case "gcs":
		if signer == nil {
			return nil, errors.New("credential issuer: gcs signer is not configured")
		}
		return gcsIssuer{
			signer:  signer,
			bucket:  cfg.GCS.Bucket,
			cdnHost: cfg.GCS.CDNHost,
			ttl:     bundle.StorageTTL(),
		}, nil
	default:
		return nil, fmt.Errorf("credential issuer: unknown storage provider %q", cfg.Provider)
	}
}
