// Package main boots the Kratos HTTP entrypoint for the media ingestion service.
package main

import (
	"flag"
	"os"

	"github.com/krishanmaan/maanedu-media/internal/infrastructure/configloader"
	loginfra "github.com/krishanmaan/maanedu-media/internal/infrastructure/logger"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "maanedu-media"
	// Version is the version of the compiled software.
	Version string

	id, _ = os.Hostname()
)

func newApp(logger log.Logger, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
		),
	)
}

func main() {
	// Parse command-line flags (currently only -conf).
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	params, err := configloader.ParseConfPath(fs, os.Args[1:])
	if err != nil {
		panic(err)
	}

	// Load bootstrap configuration: config file, env overrides, defaults.
	runtimeCfg, cleanupConfig, err := configloader.Load(params)
	if err != nil {
		panic(err)
	}
	defer cleanupConfig()

	// Build the structured logger used by the entire application.
	loggr, err := loginfra.NewLogger(loginfra.DefaultConfig(Name, Version))
	if err != nil {
		panic(err)
	}

	// Assemble all dependencies (clients, pools, services, handlers) via Wire.
	app, cleanupApp, err := wireApp(runtimeCfg, loggr)
	if err != nil {
		panic(err)
	}
	defer cleanupApp()

	// Start the application and block until a stop signal is received.
	if err := app.Run(); err != nil {
		panic(err)
	}
}
