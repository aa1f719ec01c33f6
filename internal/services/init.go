// Package services contains application use case orchestration.
package services

import (
	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/configloader"
	"github.com/bionicotaku/cast-services-portal/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is services providers.
var ProviderSet = wire.NewSet(
	NewCredentialIssuer,
	ProvideUploadService,
	NewVideoCommandService,
	NewVideoQueryService,
	wire.Bind(new(VideoCommandRepo), new(*repositories.VideoRepository)),
	wire.Bind(new(VideoQueryRepo), new(*repositories.VideoRepository)),
	wire.Bind(new(VideoOutboxWriter), new(*repositories.OutboxRepository)),
)

// ProvideUploadService 按配置的凭证有效期构造 UploadService。
func ProvideUploadService(issuer CredentialIssuer, bundle *configloader.Bundle, logger log.Logger) (*UploadService, error) {
	return NewUploadService(issuer, bundle.StorageTTL(), logger)
}
