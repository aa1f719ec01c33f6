// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射数据库表结构，不直接暴露给上层业务逻辑。
package po

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Visibility 表示视频的可见性。
type Visibility string

// 可见性常量定义
const (
	VisibilityPublic  Visibility = "public"  // 所有登录用户可见
	VisibilityPrivate Visibility = "private" // 仅上传者本人可见
)

// ParseVisibility 解析可见性字符串，空值回退为 public。
func ParseVisibility(value string) (Visibility, error) {
	normalized := Visibility(strings.TrimSpace(strings.ToLower(value)))
	switch normalized {
	case "":
		return VisibilityPublic, nil
	case VisibilityPublic, VisibilityPrivate:
		return normalized, nil
	default:
		return "", fmt.Errorf("invalid visibility: %s", value)
	}
}

// Video 表示 portal.videos 表的数据库实体。
// 记录在上传编排的最后一步（视频与缩略图均已落库到对象存储之后）创建，
// video_id 由上传凭证签发阶段分配，客户端不生成标识。
type Video struct {
	VideoID         uuid.UUID  `db:"video_id"`         // 主键（凭证签发阶段分配）
	UserID          uuid.UUID  `db:"user_id"`          // 上传者用户 ID
	Title           string     `db:"title"`            // 视频标题（必填）
	Description     string     `db:"description"`      // 视频描述（必填）
	Visibility      Visibility `db:"visibility"`       // 可见性
	ThumbnailURL    string     `db:"thumbnail_url"`    // 缩略图 CDN 地址
	DurationSeconds int32      `db:"duration_seconds"` // 播放时长（秒，探测失败时为 0）
	CreatedAt       time.Time  `db:"created_at"`       // 记录创建时间
	UpdatedAt       time.Time  `db:"updated_at"`       // 最近更新时间
}
