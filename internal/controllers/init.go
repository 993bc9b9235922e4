package controllers

import "github.com/google/wire"

// ProviderSet 暴露接入层 Handler 的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewIngestHandler,
)
