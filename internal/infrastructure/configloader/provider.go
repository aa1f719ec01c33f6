package configloader

import (
	"github.com/bionicotaku/cast-services-portal/internal/admission"
	"github.com/bionicotaku/cast-services-portal/internal/identity"

	"github.com/google/wire"
)

// ProviderSet 将 Bundle 拆解为各组件需要的强类型配置片段。
var ProviderSet = wire.NewSet(
	ProvideServerConfig,
	ProvideDatabaseConfig,
	ProvideAdmissionConfig,
	ProvideIdentityConfig,
	ProvideStorageConfig,
	ProvideMessagingConfig,
	ProvideRenderConfig,
	ProvideServiceMetadata,
)

// ProvideServerConfig 提取 HTTP 服务配置。
func ProvideServerConfig(b *Bundle) ServerConfig {
	return b.Bootstrap.Server
}

// ProvideDatabaseConfig 提取数据库配置。
func ProvideDatabaseConfig(b *Bundle) DatabaseConfig {
	return b.Bootstrap.Database
}

// ProvideAdmissionConfig 提取准入策略配置。
func ProvideAdmissionConfig(b *Bundle) admission.Config {
	return b.AdmissionRuntime()
}

// ProvideIdentityConfig 提取身份提供方配置。
func ProvideIdentityConfig(b *Bundle) identity.Config {
	return b.IdentityRuntime()
}

// ProvideStorageConfig 提取对象存储配置。
func ProvideStorageConfig(b *Bundle) StorageConfig {
	return b.Bootstrap.Storage
}

// ProvideMessagingConfig 提取消息发布配置。
func ProvideMessagingConfig(b *Bundle) MessagingConfig {
	return b.Bootstrap.Messaging
}

// ProvideRenderConfig 提取渲染期配置。
func ProvideRenderConfig(b *Bundle) RenderConfig {
	return b.Bootstrap.Render
}

// ProvideServiceMetadata 提取服务元信息。
func ProvideServiceMetadata(b *Bundle) ServiceMetadata {
	return b.Service
}
