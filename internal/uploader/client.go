package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/models/vo"
)

// PortalClient 通过门户 HTTP 接口实现 API，携带会话 Cookie 认证。
type PortalClient struct {
	baseURL    string
	sessionKey string
	httpClient *http.Client
}

// PortalOption 配置 PortalClient。
type PortalOption func(*PortalClient)

// WithPortalHTTPClient 替换底层 HTTP 客户端。
func WithPortalHTTPClient(client *http.Client) PortalOption {
	return func(c *PortalClient) { c.httpClient = client }
}

// NewPortalClient 构造门户客户端。sessionToken 写入
// better-auth.session_token Cookie。
func NewPortalClient(baseURL, sessionToken string, opts ...PortalOption) *PortalClient {
	c := &PortalClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionKey: sessionToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VideoCredential 申请视频上传凭证。
func (c *PortalClient) VideoCredential(ctx context.Context, title string) (*vo.VideoUploadCredential, error) {
	var cred vo.VideoUploadCredential
	err := c.postJSON(ctx, "/api/videos/upload-credentials", map[string]string{"title": title}, &cred)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// ThumbnailCredential 申请缩略图上传凭证。
func (c *PortalClient) ThumbnailCredential(ctx context.Context, videoID, fileName string) (*vo.ThumbnailUploadCredential, error) {
	var cred vo.ThumbnailUploadCredential
	path := fmt.Sprintf("/api/videos/%s/thumbnail-credentials", videoID)
	if err := c.postJSON(ctx, path, map[string]string{"fileName": fileName}, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// SaveDetails 持久化视频元数据。
func (c *PortalClient) SaveDetails(ctx context.Context, details SaveDetails) error {
	return c.postJSON(ctx, "/api/videos", details, nil)
}

func (c *PortalClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionKey != "" {
		req.AddCookie(&http.Cookie{Name: "better-auth.session_token", Value: c.sessionKey})
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// HTTPPutter 以单次 HTTP PUT 完成对象直传。
type HTTPPutter struct {
	httpClient *http.Client
}

// NewHTTPPutter 构造直传客户端。上传无整体超时，由调用方 ctx 控制。
func NewHTTPPutter(client *http.Client) *HTTPPutter {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPPutter{httpClient: client}
}

// Put 将文件整体上传到 uploadURL。Content-Type 始终携带，
// AccessKey 仅在非空时携带（GCS 签名 URL 无需该头）。
func (p *HTTPPutter) Put(ctx context.Context, uploadURL, accessKey string, file *FileInfo) error {
	f, err := os.Open(file.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, f)
	if err != nil {
		return err
	}
	req.ContentLength = file.Size
	req.Header.Set("Content-Type", file.ContentType)
	if accessKey != "" {
		req.Header.Set("AccessKey", accessKey)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload %s: status %d: %s", file.Name, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
