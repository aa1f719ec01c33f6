package identity

import "net/http"

// 会话 Cookie 的名称与前缀是外部契约的一部分，与身份提供方的默认值保持一致。
const (
	SessionCookieName   = "session_token"
	SessionCookiePrefix = "better-auth"

	// SignInPath 是未认证请求的重定向目标。
	SignInPath = "/sign-in"
)

// sessionCookieNames 列出可能出现的完整 Cookie 名。
// 提供方在 HTTPS 环境下会加 __Secure- 前缀。
var sessionCookieNames = []string{
	SessionCookiePrefix + "." + SessionCookieName,
	"__Secure-" + SessionCookiePrefix + "." + SessionCookieName,
}

// HasSessionCookie 判断请求是否携带会话 Cookie。
// 只检查存在性，签名与有效期由身份提供方在后续阶段校验。
func HasSessionCookie(r *http.Request) bool {
	for _, name := range sessionCookieNames {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return true
		}
	}
	return false
}
