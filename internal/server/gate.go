package server

import (
	"net/http"
	"strings"

	"github.com/bionicotaku/cast-services-portal/internal/admission"
	"github.com/bionicotaku/cast-services-portal/internal/controllers"
	"github.com/bionicotaku/cast-services-portal/internal/identity"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// gateBypassPrefixes 列出跳过页面网关的路径前缀。API、静态资源与登录页
// 不经过网关；/api 路由自带会话与准入检查。
var gateBypassPrefixes = []string{
	"/api",
	"/_next/static",
	"/_next/image",
	"/favicon.ico",
	"/sign-in",
	"/assets",
	"/healthz",
	"/readyz",
	"/metrics",
}

func gateBypassed(path string) bool {
	for _, prefix := range gateBypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// NewGateFilter 构造页面网关过滤器：先执行滥用过滤（机器人识别 + 防护规则），
// 再检查会话 Cookie 是否存在，缺失时 307 跳转登录页。Cookie 本身不做校验。
func NewGateFilter(policy admission.GatePolicy, logger log.Logger) khttp.FilterFunc {
	helper := log.NewHelper(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gateBypassed(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			info := admission.RequestInfo{
				Method:    r.Method,
				Path:      r.URL.Path,
				RawQuery:  r.URL.RawQuery,
				ClientIP:  controllers.ClientIP(r),
				UserAgent: r.UserAgent(),
				Header:    r.Header,
			}
			decision, err := policy.Evaluate(r.Context(), info)
			if err != nil {
				helper.WithContext(r.Context()).Errorf("gate admission unavailable: path=%s err=%v", r.URL.Path, err)
				http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
				return
			}
			if !decision.Allowed {
				helper.WithContext(r.Context()).Infof("gate denied: path=%s reason=%s ua=%q", r.URL.Path, decision.Reason, info.UserAgent)
				http.Error(w, decision.Reason.Message(), decision.Reason.HTTPStatus())
				return
			}

			if !identity.HasSessionCookie(r) {
				http.Redirect(w, r, identity.SignInPath, http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
