// Package httpserver wires the inbound HTTP server and its middleware stack.
package httpserver

import (
	stdhttp "net/http"

	"github.com/krishanmaan/maanedu-media/internal/controllers"
	configloader "github.com/krishanmaan/maanedu-media/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(cfg configloader.ServerConfig, ingest *controllers.IngestHandler, logger log.Logger) *http.Server {
	opts := []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if cfg.Addr != "" {
		opts = append(opts, http.Address(cfg.Addr))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, http.Timeout(cfg.Timeout))
	}

	srv := http.NewServer(opts...)

	srv.Handle("/healthz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
	}))

	srv.Handle("/readyz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		// 预留 readiness 校验钩子：租户池是懒创建的，这里暂不检查数据库。
		w.WriteHeader(stdhttp.StatusOK)
	}))

	r := srv.Route("/v1")
	r.POST("/ingest", ingest.Ingest)
	r.GET("/assets/{id}", ingest.GetAsset)

	return srv
}
