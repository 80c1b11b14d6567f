package config

import "go.uber.org/fx"

// Module ждёт Flags через fx.Supply.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
	)
}
