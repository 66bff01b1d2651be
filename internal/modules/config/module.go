package config

import (
	"go.uber.org/fx"

	"turtle_bot/pkg/logger"
)

// ProvideAppConfig регистрируем как fx-провайдер.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
		fx.Invoke(func(cfg *Config) {
			logger.Info("effective config:\n%s", cfg.Dump())
		}),
	)
}
