// Package uploader 实现上传编排：按固定顺序申请凭证、直传二进制并持久化元数据。
// 任一步失败立即终止，以带步骤标识的结果返回而非异常。
package uploader

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/bionicotaku/cast-services-portal/internal/models/vo"
)

// Step 标识编排中的一个阶段。
type Step string

// 编排阶段常量定义
const (
	StepNone                Step = ""
	StepPrecondition        Step = "precondition"
	StepVideoCredential     Step = "video_credential"
	StepVideoTransfer       Step = "video_transfer"
	StepThumbnailCredential Step = "thumbnail_credential"
	StepThumbnailTransfer   Step = "thumbnail_transfer"
	StepPersist             Step = "persist"
)

// Result 是一次编排的终态。失败时 Step 指向出错阶段。
type Result struct {
	OK      bool
	Step    Step
	Message string
	VideoID string
}

func failure(step Step, format string, args ...any) Result {
	return Result{Step: step, Message: fmt.Sprintf(format, args...)}
}

// API 抽象服务端的凭证签发与元数据持久化端点。
type API interface {
	VideoCredential(ctx context.Context, title string) (*vo.VideoUploadCredential, error)
	ThumbnailCredential(ctx context.Context, videoID, fileName string) (*vo.ThumbnailUploadCredential, error)
	SaveDetails(ctx context.Context, details SaveDetails) error
}

// SaveDetails 是持久化步骤的载荷，字段与服务端契约一一对应。
type SaveDetails struct {
	VideoID      string `json:"videoId"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Visibility   string `json:"visibility"`
	Duration     int32  `json:"duration"`
}

// BinaryPutter 抽象对象存储直传：单次 PUT，携带 Content-Type 与 AccessKey。
type BinaryPutter interface {
	Put(ctx context.Context, uploadURL, accessKey string, file *FileInfo) error
}

// Input 聚合一次发布所需的全部输入。
type Input struct {
	Video       *Selection
	Thumbnail   *Selection
	Title       string
	Description string
	Visibility  string
}

// Orchestrator 驱动发布序列。同一实例在运行期间拒绝重复提交。
type Orchestrator struct {
	api      API
	putter   BinaryPutter
	inFlight atomic.Bool
}

// NewOrchestrator 构造编排器。
func NewOrchestrator(api API, putter BinaryPutter) *Orchestrator {
	return &Orchestrator{api: api, putter: putter}
}

// Run 执行发布序列：前置检查 → 视频凭证 → 视频直传 → 缩略图凭证 →
// 缩略图直传 → 元数据持久化。步骤间严格串行，缩略图凭证依赖视频 ID。
func (o *Orchestrator) Run(ctx context.Context, input Input) Result {
	if !o.inFlight.CompareAndSwap(false, true) {
		return failure(StepPrecondition, "a submission is already in flight")
	}
	defer o.inFlight.Store(false)

	if msg := checkPreconditions(input); msg != "" {
		return failure(StepPrecondition, "%s", msg)
	}
	videoFile := input.Video.File()
	thumbFile := input.Thumbnail.File()

	videoCred, err := o.api.VideoCredential(ctx, input.Title)
	if err != nil {
		return failure(StepVideoCredential, "request video credential: %v", err)
	}
	if videoCred == nil || videoCred.VideoID == "" || videoCred.UploadURL == "" {
		return failure(StepVideoCredential, "video credential response incomplete")
	}

	if err := o.putter.Put(ctx, videoCred.UploadURL, videoCred.AccessKey, videoFile); err != nil {
		return failure(StepVideoTransfer, "upload video: %v", err)
	}

	thumbCred, err := o.api.ThumbnailCredential(ctx, videoCred.VideoID, thumbFile.Name)
	if err != nil {
		return failure(StepThumbnailCredential, "request thumbnail credential: %v", err)
	}
	if thumbCred == nil || thumbCred.UploadURL == "" || thumbCred.CDNURL == "" {
		return failure(StepThumbnailCredential, "thumbnail credential response incomplete")
	}

	if err := o.putter.Put(ctx, thumbCred.UploadURL, thumbCred.AccessKey, thumbFile); err != nil {
		return failure(StepThumbnailTransfer, "upload thumbnail: %v", err)
	}

	details := SaveDetails{
		VideoID:      videoCred.VideoID,
		ThumbnailURL: thumbCred.CDNURL,
		Title:        input.Title,
		Description:  input.Description,
		Visibility:   input.Visibility,
		Duration:     input.Video.DurationSeconds(),
	}
	if err := o.api.SaveDetails(ctx, details); err != nil {
		return failure(StepPersist, "save video details: %v", err)
	}

	return Result{OK: true, VideoID: videoCred.VideoID}
}

func checkPreconditions(input Input) string {
	switch {
	case input.Video == nil || input.Video.File() == nil:
		return "please select a video file"
	case input.Thumbnail == nil || input.Thumbnail.File() == nil:
		return "please select a thumbnail"
	case strings.TrimSpace(input.Title) == "":
		return "please enter a title"
	case strings.TrimSpace(input.Description) == "":
		return "please enter a description"
	}
	return ""
}
