// Package bunny 提供与 Bunny Stream / Edge Storage 交互的基础设施封装。
package bunny

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/configloader"
	"github.com/go-kratos/kratos/v2/log"
)

// Client 调用 Bunny Stream API 创建视频条目，并为浏览器直传构造目标地址。
type Client struct {
	streamAPIBase   string
	libraryID       string
	streamAccessKey string
	storageHost     string
	storageZone     string
	storagePassword string
	pullZoneHost    string
	httpClient      *http.Client
	log             *log.Helper
}

// Option 定义可选配置。
type Option func(*Client)

// WithHTTPClient 覆盖底层 HTTP 客户端，便于测试。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient 根据存储配置创建 Bunny 客户端。
func NewClient(cfg configloader.BunnyConfig, logger log.Logger, opts ...Option) (*Client, error) {
	if cfg.StreamAPIBase == "" {
		return nil, errors.New("bunny: stream_api_base is required")
	}
	if cfg.LibraryID == "" {
		return nil, errors.New("bunny: library_id is required")
	}
	if cfg.StreamAccessKey == "" {
		return nil, errors.New("bunny: stream_access_key is required")
	}

	client := &Client{
		streamAPIBase:   strings.TrimRight(cfg.StreamAPIBase, "/"),
		libraryID:       cfg.LibraryID,
		streamAccessKey: cfg.StreamAccessKey,
		storageHost:     cfg.StorageHost,
		storageZone:     cfg.StorageZone,
		storagePassword: cfg.StoragePassword,
		pullZoneHost:    cfg.PullZoneHost,
		httpClient:      &http.Client{Timeout: 15 * time.Second},
		log:             log.NewHelper(logger),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type createVideoRequest struct {
	Title string `json:"title"`
}

type createVideoResponse struct {
	GUID string `json:"guid"`
}

// CreateVideo 在视频库中创建占位条目并返回其 GUID。
func (c *Client) CreateVideo(ctx context.Context, title string) (string, error) {
	if title == "" {
		title = "Untitled"
	}

	payload, err := json.Marshal(createVideoRequest{Title: title})
	if err != nil {
		return "", fmt.Errorf("marshal create video request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/library/%s/videos", c.streamAPIBase, c.libraryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build create video request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("AccessKey", c.streamAccessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.WithContext(ctx).Errorf("bunny create video failed: status=%d body=%s", resp.StatusCode, string(body))
		return "", fmt.Errorf("bunny create video: unexpected status %d", resp.StatusCode)
	}

	var decoded createVideoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode create video response: %w", err)
	}
	if decoded.GUID == "" {
		return "", errors.New("bunny create video: response missing guid")
	}
	return decoded.GUID, nil
}

// VideoUploadTarget 返回视频二进制直传的 PUT 地址与访问密钥。
func (c *Client) VideoUploadTarget(videoID string) (uploadURL, accessKey string, err error) {
	if videoID == "" {
		return "", "", errors.New("video id is required")
	}
	return fmt.Sprintf("%s/library/%s/videos/%s", c.streamAPIBase, c.libraryID, url.PathEscape(videoID)), c.streamAccessKey, nil
}

// ThumbnailUploadTarget 返回封面图直传的 PUT 地址、访问密钥与发布后的 CDN 地址。
func (c *Client) ThumbnailUploadTarget(videoID, fileName string) (uploadURL, accessKey, cdnURL string, err error) {
	if videoID == "" {
		return "", "", "", errors.New("video id is required")
	}
	if c.storageHost == "" || c.storageZone == "" {
		return "", "", "", errors.New("bunny: storage host and zone are required for thumbnail upload")
	}
	if c.storagePassword == "" {
		return "", "", "", errors.New("bunny: storage_password is required for thumbnail upload")
	}
	if fileName == "" {
		fileName = "thumbnail.jpg"
	}

	object := fmt.Sprintf("thumbnails/%s/%s", url.PathEscape(videoID), url.PathEscape(fileName))
	uploadURL = fmt.Sprintf("https://%s/%s/%s", c.storageHost, c.storageZone, object)
	cdnURL = uploadURL
	if c.pullZoneHost != "" {
		cdnURL = fmt.Sprintf("https://%s/%s", c.pullZoneHost, object)
	}
	return uploadURL, c.storagePassword, cdnURL, nil
}
