//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/krishanmaan/maanedu-media/internal/clients/mediakit"
	"github.com/krishanmaan/maanedu-media/internal/clients/tenantdir"
	"github.com/krishanmaan/maanedu-media/internal/controllers"
	"github.com/krishanmaan/maanedu-media/internal/infrastructure/configloader"
	"github.com/krishanmaan/maanedu-media/internal/infrastructure/database"
	"github.com/krishanmaan/maanedu-media/internal/infrastructure/httpserver"
	"github.com/krishanmaan/maanedu-media/internal/repositories"
	"github.com/krishanmaan/maanedu-media/internal/services"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(configloader.RuntimeConfig, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(configloader.ProviderSet, mediakit.ProviderSet, tenantdir.ProviderSet, database.ProviderSet, repositories.ProviderSet, services.ProviderSet, controllers.ProviderSet, httpserver.ProviderSet, newApp))
}
