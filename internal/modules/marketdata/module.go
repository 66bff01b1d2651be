package marketdata

import (
	"context"

	"go.uber.org/fx"

	"turtle_bot/internal/models"
	healthsvc "turtle_bot/internal/modules/health/service"
	"turtle_bot/internal/modules/marketdata/service"
)

func asHealthState(s *healthsvc.State) service.HealthState { return s }

func newBarsChan() chan models.Bar {
	return make(chan models.Bar, 1024)
}
func asSendOnlyBars(ch chan models.Bar) chan<- models.Bar { return ch }
func asRecvOnlyBars(ch chan models.Bar) <-chan models.Bar { return ch }

// Module поднимает фид баров (WS или реплей из файла).
func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			service.NewClient,
			asHealthState,
			newBarsChan,
			asSendOnlyBars,
			asRecvOnlyBars,
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, out chan<- models.Bar, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go c.Start(ctx, out)
					return nil
				},
			})
		}),
	)
}
