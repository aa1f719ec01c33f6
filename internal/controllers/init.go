package controllers

import (
	"github.com/bionicotaku/cast-services-portal/internal/identity"
	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/configloader"
	"github.com/bionicotaku/cast-services-portal/internal/views"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet exposes controller/handler constructors for DI.
var ProviderSet = wire.NewSet(
	ProvideBaseHandler,
	ProvideImageHostAllowlist,
	NewUploadHandler,
	NewVideoHandler,
	NewAuthHandler,
	wire.Bind(new(SessionResolver), new(*identity.Provider)),
)

// ProvideBaseHandler 按服务端超时配置构造基础 Handler。
func ProvideBaseHandler(cfg configloader.ServerConfig, sessions SessionResolver, logger log.Logger) *BaseHandler {
	timeouts := HandlerTimeouts{}
	if d := configloader.ParseTimeout(cfg.Timeout); d > 0 {
		timeouts.Default = d
	}
	return NewBaseHandler(timeouts, sessions, logger)
}

// ProvideImageHostAllowlist 构造远程图片主机白名单。
func ProvideImageHostAllowlist(cfg configloader.RenderConfig) *views.ImageHostAllowlist {
	return views.NewImageHostAllowlist(cfg.AllowedImageHosts)
}
