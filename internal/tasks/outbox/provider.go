package outbox

import (
	"context"

	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/configloader"
	"github.com/bionicotaku/cast-services-portal/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is outbox task providers.
var ProviderSet = wire.NewSet(ProvideTask)

// ProvideTask 按配置构造发布任务；未配置主题时返回 nil，服务以无事件发布模式运行。
func ProvideTask(ctx context.Context, cfg configloader.MessagingConfig, repo *repositories.OutboxRepository, logger log.Logger) (*Task, func(), error) {
	if cfg.ProjectID == "" || cfg.TopicID == "" {
		log.NewHelper(logger).Warn("outbox publisher disabled: messaging project or topic not configured")
		return nil, func() {}, nil
	}

	pub, cleanup, err := NewTopicPublisher(ctx, cfg.ProjectID, cfg.TopicID)
	if err != nil {
		return nil, nil, err
	}

	opts := Options{
		BatchSize:      cfg.BatchSize,
		TickInterval:   configloader.ParseTimeout(cfg.TickInterval),
		MaxAttempts:    cfg.MaxAttempts,
		PublishTimeout: configloader.ParseTimeout(cfg.PublishTimeout),
	}
	return NewTask(repo, pub, opts, logger), cleanup, nil
}
