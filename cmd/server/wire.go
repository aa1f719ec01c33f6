//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"github.com/bionicotaku/cast-services-portal/internal/admission"
	"github.com/bionicotaku/cast-services-portal/internal/controllers"
	"github.com/bionicotaku/cast-services-portal/internal/identity"
	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/bunny"
	configloader "github.com/bionicotaku/cast-services-portal/internal/infrastructure/configloader"
	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/database"
	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/gcs"
	"github.com/bionicotaku/cast-services-portal/internal/repositories"
	"github.com/bionicotaku/cast-services-portal/internal/server"
	"github.com/bionicotaku/cast-services-portal/internal/services"
	"github.com/bionicotaku/cast-services-portal/internal/tasks/outbox"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

// wireApp init kratos application.
func wireApp(context.Context, *configloader.Bundle, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		database.ProviderSet,
		admission.ProviderSet,
		identity.ProviderSet,
		gcs.ProviderSet,
		bunny.ProviderSet,
		repositories.ProviderSet,
		services.ProviderSet,
		controllers.ProviderSet,
		server.ProviderSet,
		outbox.ProviderSet,
		newApp,
	))
}
