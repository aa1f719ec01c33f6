package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/admission"
	"github.com/bionicotaku/cast-services-portal/internal/identity"

	"github.com/go-chi/chi/v5"
	"github.com/go-kratos/kratos/v2/log"
)

const maxAuthBodyBytes = 64 << 10

// AuthHandler 在身份提供方前置准入策略：登录请求先过邮箱校验、
// 滑动窗口限流与防护规则，放行后原样转发给提供方。
type AuthHandler struct {
	provider *identity.Provider
	policy   admission.AuthPolicy
	sessions SessionResolver
	log      *log.Helper
}

// NewAuthHandler 构造 AuthHandler。
func NewAuthHandler(provider *identity.Provider, policy admission.AuthPolicy, logger log.Logger) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		policy:   policy,
		sessions: provider,
		log:      log.NewHelper(logger),
	}
}

// Register 挂载认证端点，所有方法与子路径统一入口。
func (h *AuthHandler) Register(r chi.Router) {
	r.Handle(identity.MountPrefix+"/*", h)
}

// ServeHTTP 实现准入后转发。只读请求直接透传；写请求先评估策略。
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
		h.provider.Handler().ServeHTTP(w, r)
		return
	}

	info := admission.RequestInfo{
		Method:      r.Method,
		Path:        r.URL.Path,
		RawQuery:    r.URL.RawQuery,
		ClientIP:    ClientIP(r),
		UserAgent:   r.UserAgent(),
		Fingerprint: h.fingerprint(r),
		Email:       h.extractEmail(r),
		Header:      r.Header,
	}

	decision, err := h.policy.Evaluate(r.Context(), info)
	if err != nil {
		h.log.WithContext(r.Context()).Errorf("auth admission unavailable: path=%s err=%v", info.Path, err)
		writeDenial(w, http.StatusServiceUnavailable, "Service unavailable")
		return
	}
	if !decision.Allowed {
		h.log.WithContext(r.Context()).Infof("auth request denied: path=%s reason=%s ip=%s", info.Path, decision.Reason, info.ClientIP)
		if decision.RetryAfter > 0 {
			seconds := int64((decision.RetryAfter + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
		}
		writeDenial(w, decision.Reason.HTTPStatus(), decision.Reason.Message())
		return
	}

	h.provider.Handler().ServeHTTP(w, r)
}

// fingerprint 返回限流键：已登录用户用其用户 ID，匿名请求退回客户端 IP。
func (h *AuthHandler) fingerprint(r *http.Request) string {
	if h.sessions != nil {
		if session, err := h.sessions.GetSession(r.Context(), r.Header); err == nil && session != nil && session.UserID != "" {
			return session.UserID
		}
	}
	if ip := ClientIP(r); ip != "" {
		return ip
	}
	return "127.0.0.1"
}

// extractEmail 从登录请求体的 JSON email 字段提取邮箱，并还原请求体供转发。
// 仅登录路径参与邮箱校验，其余写请求走限流与防护规则。
func (h *AuthHandler) extractEmail(r *http.Request) string {
	if !strings.Contains(r.URL.Path, "/sign-in") {
		return ""
	}
	if r.Body == nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBodyBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Email)
}

func writeDenial(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
