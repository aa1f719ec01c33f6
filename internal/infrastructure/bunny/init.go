package bunny

import (
	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/configloader"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is bunny providers.
var ProviderSet = wire.NewSet(ProvideClient)

// ProvideClient 按配置构造 Bunny 客户端；当存储后端不是 bunny 时返回 nil。
func ProvideClient(cfg configloader.StorageConfig, logger log.Logger) (*Client, error) {
	if cfg.Provider != "bunny" {
		return nil, nil
	}
	return NewClient(cfg.Bunny, logger)
}
