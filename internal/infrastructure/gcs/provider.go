package gcs

import (
	"context"

	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/configloader"
	"github.com/go-kratos/kratos/v2/log"
)

// ProvidePutSigner 按配置构造 GCS 签名器；当存储后端不是 gcs 时返回 nil。
func ProvidePutSigner(ctx context.Context, cfg configloader.StorageConfig, logger log.Logger) (*PutSigner, error) {
	if cfg.Provider != "gcs" {
		return nil, nil
	}
	return NewPutSigner(ctx, cfg.GCS.SignerServiceAccount, logger)
}
