package configloader

import "time"

// RuntimeConfig 聚合强类型的配置片段，供下游 Wire 注入使用。
type RuntimeConfig struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Mediakit  MediakitConfig
	TenantDir TenantDirConfig
	Ingest    IngestConfig
}

// ServerConfig 描述 HTTP 服务参数。
type ServerConfig struct {
	Addr    string
	Timeout time.Duration
}

// DatabaseConfig 描述应用到每个租户连接池的参数。
type DatabaseConfig struct {
	MaxOpenConns       int32
	MinOpenConns       int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	PreparedStatements bool
}

// MediakitConfig 描述转码服务接入与轮询参数。
type MediakitConfig struct {
	BaseURL         string
	TokenID         string
	TokenSecret     string
	RequestTimeout  time.Duration
	MaxUploadBytes  int64
	PollInterval    time.Duration
	PollMaxAttempts int
}

// TenantDirConfig 描述租户凭据目录接入参数。
type TenantDirConfig struct {
	Endpoint string
	APIKey   string
	CacheTTL time.Duration
}

// IngestConfig 描述摄取流水线参数。
type IngestConfig struct {
	FFprobePath             string
	ProbeTimeout            time.Duration
	ProbeFallbackTimeout    time.Duration
	FallbackDurationSeconds float64
}
