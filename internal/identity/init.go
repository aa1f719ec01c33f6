package identity

import "github.com/google/wire"

// ProviderSet 暴露身份提供方客户端构造器供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(NewProvider)
