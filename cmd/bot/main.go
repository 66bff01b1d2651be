package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"turtle_bot/internal/modules/broker"
	"turtle_bot/internal/modules/config"
	"turtle_bot/internal/modules/engine"
	"turtle_bot/internal/modules/health"
	"turtle_bot/internal/modules/marketdata"
	"turtle_bot/internal/modules/notifier"
	"turtle_bot/internal/modules/postgres"
	"turtle_bot/internal/modules/snapshots"
	"turtle_bot/pkg/logger"
	"turtle_bot/pkg/tracing"
)

func main() {
	logger.SetServiceName("turtle_bot")
	tracing.SetServiceName("turtle_bot")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		engine.Module(),
		marketdata.Module(),
		broker.Module(),
		snapshots.Module(),
		notifier.Module(),
		health.Module(),

		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
			if cfg.Tracing.Host == "" {
				return
			}
			var closeTracer func()
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					_, c, err := tracing.InitTracer(tracing.Config{
						Host: cfg.Tracing.Host,
						Port: cfg.Tracing.Port,
					})
					if err != nil {
						return err
					}
					closeTracer = c
					return nil
				},
				OnStop: func(_ context.Context) error {
					if closeTracer != nil {
						closeTracer()
					}
					return nil
				},
			})
		}),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	<-app.Done()
	_ = app.Stop(context.Background())
}
