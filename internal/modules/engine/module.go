package engine

import (
	"context"

	"go.uber.org/fx"

	"turtle_bot/internal/models"
	"turtle_bot/internal/modules/config"
	"turtle_bot/internal/modules/engine/service"
	healthsvc "turtle_bot/internal/modules/health/service"
	"turtle_bot/pkg/logger"
)

func asReadyState(s *healthsvc.State) service.ReadyState { return s }

func newIntentsChan() chan models.OrderIntent {
	return make(chan models.OrderIntent, 4096)
}
func asSendOnlyIntents(ch chan models.OrderIntent) chan<- models.OrderIntent { return ch }
func asRecvOnlyIntents(ch chan models.OrderIntent) <-chan models.OrderIntent { return ch }

func newSnapshotsChan() chan models.PositionSnapshot {
	return make(chan models.PositionSnapshot, 4096)
}
func asSendOnlySnapshots(ch chan models.PositionSnapshot) chan<- models.PositionSnapshot { return ch }
func asRecvOnlySnapshots(ch chan models.PositionSnapshot) <-chan models.PositionSnapshot { return ch }

func newBudget(cfg *config.Config) *service.Budget {
	return service.NewBudget(
		cfg.Engine.RiskPct/100.0,
		cfg.Engine.EquityStaleTolerance,
		cfg.Engine.GroupCaps,
	)
}

func newEngine(cfg *config.Config, budget *service.Budget, ledger *service.Ledger) service.Engine {
	return service.NewTurtle(cfg, budget, ledger)
}

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			newIntentsChan,
			asSendOnlyIntents,
			asRecvOnlyIntents,
			newSnapshotsChan,
			asSendOnlySnapshots,
			asRecvOnlySnapshots,
			newBudget,
			asReadyState,
			service.NewLedger,
			newEngine, // service.Engine
			service.NewHub,
		),

		fx.Invoke(func(lc fx.Lifecycle, hub *service.Hub, bars <-chan models.Bar, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						logger.Info("[ENGINE] bar loop started")
						for {
							select {
							case <-ctx.Done():
								logger.Info("[ENGINE] bar loop stopped")
								return
							case b, ok := <-bars:
								if !ok {
									logger.Info("[ENGINE] bars channel closed")
									return
								}
								hub.OnBar(ctx, b)
							}
						}
					}()
					return nil
				},
			})
		}),
	)
}
