// Package controllers 实现 HTTP 入站适配层：请求解码、会话解析、
// 超时控制与错误映射。业务规则全部下沉到 services 层。
package controllers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/identity"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// HandlerType 表示 Handler 的语义类别，用于选择超时策略。
type HandlerType int

const (
	// HandlerTypeDefault 表示未显式区分的 Handler。
	HandlerTypeDefault HandlerType = iota
	// HandlerTypeCommand 表示写模型命令 Handler。
	HandlerTypeCommand
	// HandlerTypeQuery 表示读模型查询 Handler。
	HandlerTypeQuery
)

// HandlerTimeouts 聚合不同类型 Handler 的超时策略。
type HandlerTimeouts struct {
	Default time.Duration
	Command time.Duration
	Query   time.Duration
}

const (
	fallbackDefaultTimeout = 5 * time.Second
	fallbackQueryTimeout   = 3 * time.Second
)

// SessionResolver 抽象会话查询，便于测试替换身份提供方。
type SessionResolver interface {
	GetSession(ctx context.Context, header http.Header) (*identity.Session, error)
}

// BaseHandler 提供公共的超时、会话解析与响应编码能力，供具体 Handler 内嵌复用。
type BaseHandler struct {
	timeouts HandlerTimeouts
	sessions SessionResolver
	log      *log.Helper
}

// NewBaseHandler 构造基础 Handler，并为缺省值填充合理的回退策略。
func NewBaseHandler(timeouts HandlerTimeouts, sessions SessionResolver, logger log.Logger) *BaseHandler {
	if timeouts.Default <= 0 {
		if timeouts.Command > 0 {
			timeouts.Default = timeouts.Command
		} else if timeouts.Query > 0 {
			timeouts.Default = timeouts.Query
		} else {
			timeouts.Default = fallbackDefaultTimeout
		}
	}
	if timeouts.Command <= 0 {
		timeouts.Command = timeouts.Default
	}
	if timeouts.Query <= 0 {
		timeouts.Query = fallbackQueryTimeout
		if timeouts.Default > 0 {
			timeouts.Query = timeouts.Default
		}
	}
	return &BaseHandler{timeouts: timeouts, sessions: sessions, log: log.NewHelper(logger)}
}

// WithTimeout 根据 Handler 类型包装上下文，返回绑定超时的新 Context 与取消函数。
func (h *BaseHandler) WithTimeout(ctx context.Context, kind HandlerType) (context.Context, context.CancelFunc) {
	if h == nil {
		return context.WithTimeout(ctx, fallbackDefaultTimeout)
	}
	var timeout time.Duration
	switch kind {
	case HandlerTypeCommand:
		timeout = h.timeouts.Command
	case HandlerTypeQuery:
		timeout = h.timeouts.Query
	default:
		timeout = h.timeouts.Default
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// RequireUser 解析当前请求的登录用户。未登录返回 Unauthorized。
func (h *BaseHandler) RequireUser(r *http.Request) (uuid.UUID, error) {
	if h.sessions == nil {
		return uuid.Nil, kerrors.InternalServer("SESSION_RESOLVER_MISSING", "session resolver not available")
	}
	session, err := h.sessions.GetSession(r.Context(), r.Header)
	if err != nil {
		h.log.WithContext(r.Context()).Errorf("resolve session failed: err=%v", err)
		return uuid.Nil, kerrors.InternalServer("SESSION_LOOKUP_FAILED", "failed to resolve session").WithCause(err)
	}
	if session == nil {
		return uuid.Nil, kerrors.Unauthorized("SESSION_REQUIRED", "authentication required")
	}
	userID, err := uuid.Parse(session.UserID)
	if err != nil {
		return uuid.Nil, kerrors.Unauthorized("SESSION_INVALID", "invalid session identity")
	}
	return userID, nil
}

// WriteJSON 编码 JSON 响应。
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Errorf("encode response failed: err=%v", err)
	}
}

// WriteError 将服务层错误映射为 HTTP 状态与 JSON 错误体。
func (h *BaseHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	se := kerrors.FromError(err)
	status := int(se.Code)
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		h.log.WithContext(r.Context()).Errorf("request failed: path=%s err=%v", r.URL.Path, err)
	}
	h.WriteJSON(w, status, map[string]string{
		"error":  se.Reason,
		"detail": se.Message,
	})
}

// DecodeJSON 解析请求体；正文为空或非法 JSON 返回 BadRequest。
func (h *BaseHandler) DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := decoder.Decode(dst); err != nil {
		return kerrors.BadRequest("REQUEST_INVALID", "invalid request body")
	}
	return nil
}

// ClientIP 解析客户端地址，优先使用代理注入的转发头。
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
