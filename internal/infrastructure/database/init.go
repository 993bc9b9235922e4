package database

import (
	"github.com/krishanmaan/maanedu-media/internal/clients/tenantdir"
	configloader "github.com/krishanmaan/maanedu-media/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProvideTenantPools 供 Wire 注入使用。
func ProvideTenantPools(dir *tenantdir.Directory, cfg configloader.DatabaseConfig, logger log.Logger) (*TenantPools, func(), error) {
	return NewTenantPools(dir, PoolConfig{
		MaxOpenConns:      cfg.MaxOpenConns,
		MinOpenConns:      cfg.MinOpenConns,
		MaxConnLifetime:   cfg.MaxConnLifetime,
		MaxConnIdleTime:   cfg.MaxConnIdleTime,
		HealthCheckPeriod: cfg.HealthCheckPeriod,
		PreparedStmts:     cfg.PreparedStatements,
	}, logger)
}

// ProviderSet 暴露按租户的数据库连接池构造器供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	ProvideTenantPools,
)
