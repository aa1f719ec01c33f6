// Package repositories 实现数据访问层，基于 pgx 封装对 PostgreSQL 的查询。
package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/cast-services-portal/internal/models/po"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrVideoNotFound 表示目标视频不存在。
var ErrVideoNotFound = errors.New("video not found")

// querier 抽象连接池与事务共有的查询能力。
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// VideoRepository 封装 videos 表的读写操作。
type VideoRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewVideoRepository 构造 VideoRepository 实例，由 Wire 注入连接池。
func NewVideoRepository(db *pgxpool.Pool, logger log.Logger) *VideoRepository {
	return &VideoRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

const videoColumns = "video_id, user_id, title, description, visibility, thumbnail_url, duration_seconds, created_at, updated_at"

// Insert 在指定事务内插入视频记录并返回落库结果。
func (r *VideoRepository) Insert(ctx context.Context, sess txmanager.Session, video *po.Video) (*po.Video, error) {
	q := r.exec(sess)
	row := q.QueryRow(ctx, `
		INSERT INTO videos (video_id, user_id, title, description, visibility, thumbnail_url, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+videoColumns,
		video.VideoID, video.UserID, video.Title, video.Description, video.Visibility, video.ThumbnailURL, video.DurationSeconds,
	)
	saved, err := scanVideo(row)
	if err != nil {
		r.log.WithContext(ctx).Errorf("insert video failed: video_id=%s err=%v", video.VideoID, err)
		return nil, fmt.Errorf("insert video: %w", err)
	}
	return saved, nil
}

// FindByID 根据 video_id 查询视频详情。
//
// 错误处理：
//   - pgx.ErrNoRows → ErrVideoNotFound
//   - 其他数据库错误原样返回
func (r *VideoRepository) FindByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	row := r.exec(sess).QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE video_id = $1`, videoID)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("find video: %w", err)
	}
	return video, nil
}

// ListVisibleTo 返回 viewer 可见的视频列表：公开视频加上其本人上传的私有视频。
func (r *VideoRepository) ListVisibleTo(ctx context.Context, sess txmanager.Session, viewerID uuid.UUID) ([]*po.Video, error) {
	rows, err := r.exec(sess).Query(ctx, `
		SELECT `+videoColumns+`
		FROM videos
		WHERE visibility = $1 OR user_id = $2
		ORDER BY created_at DESC`,
		po.VisibilityPublic, viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

// ListByUser 返回指定上传者的全部视频。
func (r *VideoRepository) ListByUser(ctx context.Context, sess txmanager.Session, userID uuid.UUID) ([]*po.Video, error) {
	rows, err := r.exec(sess).Query(ctx, `
		SELECT `+videoColumns+`
		FROM videos
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user videos: %w", err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

// UpdateVisibility 更新可见性并返回更新后的记录。
func (r *VideoRepository) UpdateVisibility(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, visibility po.Visibility) (*po.Video, error) {
	row := r.exec(sess).QueryRow(ctx, `
		UPDATE videos
		SET visibility = $2, updated_at = now()
		WHERE video_id = $1
		RETURNING `+videoColumns,
		videoID, visibility,
	)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("update visibility: %w", err)
	}
	return video, nil
}

// Delete 删除视频记录；目标不存在时返回 ErrVideoNotFound。
func (r *VideoRepository) Delete(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) error {
	tag, err := r.exec(sess).Exec(ctx, `DELETE FROM videos WHERE video_id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func (r *VideoRepository) exec(sess txmanager.Session) querier {
	if sess != nil {
		return sess.Tx()
	}
	return r.db
}

func scanVideo(row pgx.Row) (*po.Video, error) {
	var v po.Video
	if err := row.Scan(
		&v.VideoID, &v.UserID, &v.Title, &v.Description, &v.Visibility,
		&v.ThumbnailURL, &v.DurationSeconds, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVideos(rows pgx.Rows) ([]*po.Video, error) {
	var videos []*po.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}
