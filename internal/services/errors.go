package services

import "github.com/go-kratos/kratos/v2/errors"

// 错误原因常量，写入 kratos errors 的 reason 字段，供网关与客户端识别。
const (
	ReasonVideoNotFound    = "VIDEO_NOT_FOUND"
	ReasonVideoInvalid     = "VIDEO_INVALID"
	ReasonPermissionDenied = "VIDEO_PERMISSION_DENIED"
	ReasonQueryTimeout     = "QUERY_TIMEOUT"
	ReasonQueryFailed      = "QUERY_VIDEO_FAILED"
	ReasonCredentialFailed = "UPLOAD_CREDENTIAL_FAILED"
	ReasonCredentialInput  = "UPLOAD_CREDENTIAL_INVALID"
)

// 预构造的服务层错误，控制器层直接透传。
var (
	// ErrVideoNotFound 表示视频不存在或对请求者不可见。
	ErrVideoNotFound = errors.NotFound(ReasonVideoNotFound, "video not found")
	// ErrPermissionDenied 表示请求者不是视频上传者。
	ErrPermissionDenied = errors.Forbidden(ReasonPermissionDenied, "not the video owner")
)
