package notifier

import (
	"context"

	"go.uber.org/fx"

	"turtle_bot/internal/modules/config"
	"turtle_bot/internal/notify"

	brokersvc "turtle_bot/internal/modules/broker/service"
	enginesvc "turtle_bot/internal/modules/engine/service"
	mdsvc "turtle_bot/internal/modules/marketdata/service"
)

func newTelegram(cfg *config.Config, ledger *enginesvc.Ledger) (*notify.Telegram, error) {
	return notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, ledger)
}

func Module() fx.Option {
	return fx.Module("notifier",
		fx.Provide(
			newTelegram,

			// адаптеры под локальные интерфейсы потребителей
			func(t *notify.Telegram) enginesvc.ServiceNotifier { return t },
			func(t *notify.Telegram) mdsvc.ServiceNotifier { return t },
			func(t *notify.Telegram) brokersvc.ServiceNotifier { return t },
		),
		fx.Invoke(func(lc fx.Lifecycle, t *notify.Telegram, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					return t.Start(ctx)
				},
			})
		}),
	)
}
