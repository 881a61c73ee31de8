package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/skekre98/observers/actuator"
	"github.com/skekre98/observers/config"
	"github.com/skekre98/observers/config/source"
	"github.com/skekre98/observers/core"
	"github.com/skekre98/observers/events"
	"github.com/skekre98/observers/logging"
	"github.com/skekre98/observers/web"
)

func main() {
	// 1) config: defaults < configs/application[.profile].yaml < OBSERVERS_* env < flags
	cfg, mgr, err := config.Load(config.Options{AutoReload: true},
		&source.FileSource{BasePath: "configs", Profile: os.Getenv("APP_PROFILE")},
		&source.EnvSource{},
		&source.CLISource{},
	)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	defer mgr.Close()

	// 2) logging
	logger := logging.New(cfg.Logging).With(
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
	)
	slog.SetDefault(logger)

	// 3) domain objects
	store := newOrderStore()
	report := newSalesReport()
	ext := &ordersExtension{
		logger: logger,
		store:  store,
		stock:  newInventory(map[string]int{"book": 100, "lamp": 10, "desk": 2}),
		report: report,
		notify: func(o OrderPlaced) {
			logger.Info("confirmation sent", "order", o.ID, "region", o.Region)
		},
	}

	// 4) compose the app
	var app *core.App
	app = core.NewApp(
		logger,
		events.Module(ext),
		web.Module(
			web.WithRoutes(routes(func() *events.Bus { return events.FromContainer(app.Container) }, store, logger)),
		),
		actuator.Module(),
	)

	// 5) seed shared objects into the container
	core.Put[*config.Root](app.Container, cfg)
	core.Put[*config.Manager](app.Container, mgr)
	core.Put[*slog.Logger](app.Container, logger)
	core.Put[*salesReport](app.Container, report)

	// 6) run
	if err := app.Run(context.Background()); err != nil {
		logger.Error("app error", "error", err)
		os.Exit(1)
	}
}
