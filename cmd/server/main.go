// Package main boots the Kratos HTTP entrypoint for the portal service.
package main

import (
	"context"
	"flag"
	"os"

	configloader "github.com/bionicotaku/cast-services-portal/internal/infrastructure/configloader"
	loginfra "github.com/bionicotaku/cast-services-portal/internal/infrastructure/logger"
	"github.com/bionicotaku/cast-services-portal/internal/tasks/outbox"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "cast-portal"
	// Version is the version of the compiled software.
	Version string
)

func newApp(meta configloader.ServiceMetadata, logger log.Logger, hs *http.Server, publisher *outbox.Task) *kratos.App {
	servers := []transport.Server{hs}
	if publisher != nil {
		servers = append(servers, publisher)
	}
	return kratos.New(
		kratos.ID(meta.InstanceID),
		kratos.Name(meta.Name),
		kratos.Version(meta.Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(servers...),
	)
}

func main() {
	// Parse command-line flags (currently only -conf).
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	confPath, err := configloader.ParseConfPath(fs, os.Args[1:])
	if err != nil {
		panic(err)
	}

	// Load bootstrap configuration and derive service metadata.
	bundle, cleanupConfig, err := configloader.Build(configloader.Params{
		ConfPath: confPath,
		Name:     Name,
		Version:  Version,
	})
	if err != nil {
		panic(err)
	}
	defer cleanupConfig()

	// Build the structured logger used by the entire application.
	logger, err := loginfra.NewLogger(bundle.Service)
	if err != nil {
		panic(err)
	}

	// Assemble all dependencies (pool, handlers, tasks, etc.) via Wire and create the Kratos app.
	app, cleanupApp, err := wireApp(context.Background(), bundle, logger)
	if err != nil {
		panic(err)
	}
	defer cleanupApp()

	// Start the application and block until a stop signal is received.
	if err := app.Run(); err != nil {
		panic(err)
	}
}
