// Package identity 封装外部身份提供方（better-auth 风格服务）的接入：
// 认证端点的反向代理转发，以及会话查询。会话本身由提供方签发与校验，
// 本服务只透传 Cookie，从不验证签名或有效期。
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

const defaultRequestTimeout = 10 * time.Second

// MountPrefix 是认证端点在本服务的挂载前缀。转发时先剥掉它，
// 再拼接 BaseURL 自带的路径，避免前缀重复。
const MountPrefix = "/api/auth"

// Session 描述提供方返回的会话身份。
type Session struct {
	UserID string
	Email  string
}

// Config 描述身份提供方的接入参数。
type Config struct {
	// BaseURL 是提供方认证端点的根地址（含认证前缀），
	// 例如 https://auth.internal/api/auth。
	BaseURL string
	Timeout time.Duration
}

// Provider 是身份提供方的进程级客户端，启动时构造一次。
type Provider struct {
	base   *url.URL
	proxy  *httputil.ReverseProxy
	client *http.Client
	log    *log.Helper
}

// NewProvider 构造 Provider。
func NewProvider(cfg Config, logger log.Logger) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("identity provider: base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("identity provider: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("identity provider: base url must be absolute: %s", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	p := &Provider{
		base:   base,
		client: &http.Client{Timeout: timeout},
		log:    log.NewHelper(logger),
	}
	p.proxy = &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(base)
			r.Out.URL.Path = joinProviderPath(base.Path, strings.TrimPrefix(r.In.URL.Path, MountPrefix))
			r.Out.URL.RawPath = ""
			r.Out.Host = base.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.log.WithContext(r.Context()).Errorf("identity proxy failed: path=%s err=%v", r.URL.Path, err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	return p, nil
}

func joinProviderPath(basePath, rest string) string {
	basePath = strings.TrimRight(basePath, "/")
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return basePath + rest
}

// Handler 返回透传提供方的反向代理。代理前的准入裁决由调用方完成，
// 放行后的请求原样转发，读写方法一视同仁。
func (p *Provider) Handler() http.Handler {
	return p.proxy
}

// getSessionResponse 对应提供方 GET /get-session 的响应结构。
type getSessionResponse struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// GetSession 以调用方的 Cookie 向提供方查询当前会话。
// 无会话（提供方返回 401 或空正文）时返回 (nil, nil)。
func (p *Provider) GetSession(ctx context.Context, header http.Header) (*Session, error) {
	endpoint := *p.base
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + "/get-session"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("get session: build request: %w", err)
	}
	if cookie := header.Get("Cookie"); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("get session: unexpected status %d", resp.StatusCode)
	}

	var body getSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// 提供方对匿名请求可能返回 200 + null 正文
		return nil, nil
	}
	if body.User.ID == "" {
		return nil, nil
	}
	return &Session{UserID: body.User.ID, Email: body.User.Email}, nil
}
