package snapshots

import (
	"context"

	"go.uber.org/fx"

	"turtle_bot/internal/models"
	"turtle_bot/internal/modules/snapshots/service"
	"turtle_bot/pkg/logger"
)

// Module сохраняет поток снапшотов позиций.
func Module() fx.Option {
	return fx.Module("snapshots",
		fx.Provide(
			service.NewStore,
		),
		fx.Invoke(func(lc fx.Lifecycle, st *service.Store, snaps <-chan models.PositionSnapshot, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						for {
							select {
							case <-ctx.Done():
								return
							case snap, ok := <-snaps:
								if !ok {
									return
								}
								if err := st.Save(ctx, snap); err != nil {
									logger.Error("[SNAPSHOT] save %s: %v", snap.InstID, err)
								}
							}
						}
					}()
					return nil
				},
			})
		}),
	)
}
