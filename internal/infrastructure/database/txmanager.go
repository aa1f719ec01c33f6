package database

import (
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProvideTxManager 基于连接池构造事务管理器。
func ProvideTxManager(pool *pgxpool.Pool, logger log.Logger) (txmanager.Manager, error) {
	return txmanager.NewManager(pool, txmanager.Config{}, txmanager.Dependencies{Logger: logger})
}
