package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"turtle_bot/internal/modules/config"
	"turtle_bot/pkg/db"
)

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				// без DSN живём без базы: снапшоты уходят только в лог
				if cfg.DB == "" {
					return nil, nil
				}
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					return nil, err
				}

				return db.NewPgTxManager(poolMaster), nil
			},
		),
	)
}
