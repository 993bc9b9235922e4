package configloader

import "github.com/google/wire"

// ProvideServerConfig 拆出 HTTP 服务配置。
func ProvideServerConfig(rc RuntimeConfig) ServerConfig { return rc.Server }

// ProvideDatabaseConfig 拆出连接池配置。
func ProvideDatabaseConfig(rc RuntimeConfig) DatabaseConfig { return rc.Database }

// ProvideMediakitConfig 拆出转码服务配置。
func ProvideMediakitConfig(rc RuntimeConfig) MediakitConfig { return rc.Mediakit }

// ProvideTenantDirConfig 拆出租户目录配置。
func ProvideTenantDirConfig(rc RuntimeConfig) TenantDirConfig { return rc.TenantDir }

// ProvideIngestConfig 拆出摄取流水线配置。
func ProvideIngestConfig(rc RuntimeConfig) IngestConfig { return rc.Ingest }

// ProviderSet 暴露配置片段的拆分函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	ProvideServerConfig,
	ProvideDatabaseConfig,
	ProvideMediakitConfig,
	ProvideTenantDirConfig,
	ProvideIngestConfig,
)
