// Package logger 基于 gclog 构建全局结构化日志器，并注入 trace 上下文字段。
package logger

import (
	"context"
	"os"

	gclog "github.com/bionicotaku/lingo-utils/gclog"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"
)

// Config 描述日志器携带的服务元信息。
type Config struct {
	Service string
	Version string
	Env     string
	Labels  map[string]string
}

// DefaultConfig 从环境推导日志配置：APP_ENV 决定环境名，主机名作为实例标签。
func DefaultConfig(service, version string) Config {
	if service == "" {
		service = "maanedu-media"
	}
	if version == "" {
		version = "dev"
	}
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	host, _ := os.Hostname()
	return Config{
		Service: service,
		Version: version,
		Env:     env,
		Labels:  map[string]string{"service.id": host},
	}
}

// NewLogger 构建 Kratos 兼容的日志器；所有日志行自动附带 trace_id/span_id。
func NewLogger(cfg Config) (log.Logger, error) {
	base, err := gclog.NewLogger(
		gclog.WithService(cfg.Service),
		gclog.WithVersion(cfg.Version),
		gclog.WithEnvironment(cfg.Env),
		gclog.WithStaticLabels(cfg.Labels),
		gclog.EnableSourceLocation(),
	)
	if err != nil {
		return nil, err
	}
	return log.With(base,
		"trace_id", traceField(func(sc trace.SpanContext) (string, bool) {
			return sc.TraceID().String(), sc.HasTraceID()
		}),
		"span_id", traceField(func(sc trace.SpanContext) (string, bool) {
			return sc.SpanID().String(), sc.HasSpanID()
		}),
	), nil
}

// traceField 包装从 SpanContext 提取字段的逻辑；无活跃 span 时输出空串。
func traceField(extract func(trace.SpanContext) (string, bool)) log.Valuer {
	return func(ctx context.Context) interface{} {
		sc := trace.SpanContextFromContext(ctx)
		if v, ok := extract(sc); ok {
			return v
		}
		return ""
	}
}
