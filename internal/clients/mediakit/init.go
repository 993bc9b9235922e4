package mediakit

import (
	configloader "github.com/krishanmaan/maanedu-media/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProvideClient 供 Wire 注入使用。
func ProvideClient(cfg configloader.MediakitConfig, logger log.Logger) (*Client, error) {
	return NewClient(Config{
		BaseURL:     cfg.BaseURL,
		TokenID:     cfg.TokenID,
		TokenSecret: cfg.TokenSecret,
		Timeout:     cfg.RequestTimeout,
	}, logger)
}

// ProviderSet 暴露 mediakit 客户端的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(ProvideClient)
