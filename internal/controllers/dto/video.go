// Package dto 定义 HTTP 请求体结构。
package dto

// UploadCredentialRequest 请求视频上传凭证。
type UploadCredentialRequest struct {
	Title string `json:"title"`
}

// ThumbnailCredentialRequest 请求缩略图上传凭证。
type ThumbnailCredentialRequest struct {
	FileName string `json:"fileName"`
}

// SaveVideoRequest 持久化上传完成的视频元数据。
// videoId 与 thumbnailUrl 来自此前凭证签发与直传的结果。
type SaveVideoRequest struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Visibility   string `json:"visibility"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Duration     int32  `json:"duration"`
}

// ChangeVisibilityRequest 变更视频可见性。
type ChangeVisibilityRequest struct {
	Visibility string `json:"visibility"`
}
