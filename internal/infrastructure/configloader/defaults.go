package configloader

import "time"

const (
	// defaultConfPath is the fallback configuration directory when no overrides are provided.
	defaultConfPath = "configs"
	// defaultEnvironment is used when APP_ENV is missing.
	defaultEnvironment = "development"
	// defaultServiceName is used when the binary carries no -ldflags name.
	defaultServiceName = "cast-portal"

	defaultRateLimitInterval  = 2 * time.Minute
	defaultEmailLookupTimeout = 3 * time.Second
	defaultIdentityTimeout    = 10 * time.Second
	defaultCredentialTTL      = 15 * time.Minute
)

// 远程图片主机白名单的默认值：身份提供方头像域与 CDN 拉流域。
var defaultAllowedImageHosts = []string{
	"lh3.googleusercontent.com",
	"screen-recording-app-xuan.b-cdn.net",
}
