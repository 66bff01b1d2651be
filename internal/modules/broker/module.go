package broker

import (
	"context"
	"time"

	"go.uber.org/fx"

	"turtle_bot/internal/models"
	"turtle_bot/internal/modules/broker/service"
	"turtle_bot/internal/modules/config"
	enginesvc "turtle_bot/internal/modules/engine/service"
	healthsvc "turtle_bot/internal/modules/health/service"
	"turtle_bot/pkg/logger"
)

func newBroker(cfg *config.Config) service.Broker {
	if cfg.Broker.Paper {
		return service.NewPaper(cfg)
	}
	return service.NewRESTClient(cfg)
}

// Module поднимает исполнителя интентов и опрос эквити.
func Module() fx.Option {
	return fx.Module("broker",
		fx.Provide(
			newBroker,
			service.NewExecutor,
		),

		fx.Invoke(func(lc fx.Lifecycle, e *service.Executor, intents <-chan models.OrderIntent, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go e.Run(ctx, intents)
					return nil
				},
			})
		}),

		// Эквити тянем с брокера в бюджет. Если опрос молчит дольше
		// допуска, движок сам уходит в degraded по меткам времени, тут
		// только подсвечиваем это в health.
		fx.Invoke(func(
			lc fx.Lifecycle,
			cfg *config.Config,
			b service.Broker,
			budget *enginesvc.Budget,
			health *healthsvc.State,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go pollEquity(ctx, cfg, b, budget, health)
					return nil
				},
			})
		}),
	)
}

func pollEquity(ctx context.Context, cfg *config.Config, b service.Broker, budget *enginesvc.Budget, health *healthsvc.State) {
	poll := cfg.Broker.EquityPoll
	if poll <= 0 {
		poll = 30 * time.Second
	}

	fetch := func() {
		eq, err := b.Equity(ctx)
		if err != nil {
			logger.Error("[BROKER] equity poll: %v", err)
			return
		}
		now := time.Now()
		budget.SetEquity(eq, now)
		health.TouchEquity(now)
	}

	fetch()

	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fetch()
			tol := cfg.Engine.EquityStaleTolerance
			health.SetDegraded(tol > 0 && time.Since(health.LastEquity()) > tol)
		}
	}
}
