package admission

import "github.com/google/wire"

// ProviderSet 暴露准入策略构造器供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewGatePolicy,
	NewAuthPolicy,
	ProvideMXResolver,
)

// ProvideMXResolver 提供默认的 MX 解析器。
func ProvideMXResolver() MXResolver {
	return defaultResolver()
}
