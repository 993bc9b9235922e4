package tenantdir

import (
	configloader "github.com/krishanmaan/maanedu-media/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProvideDirectory 供 Wire 注入使用。
func ProvideDirectory(cfg configloader.TenantDirConfig, logger log.Logger) (*Directory, error) {
	return NewDirectory(Config{
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
		CacheTTL: cfg.CacheTTL,
	}, logger)
}

// ProviderSet 暴露租户目录客户端的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(ProvideDirectory)
