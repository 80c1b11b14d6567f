package strategy

import (
	"go.uber.org/fx"

	"jats/internal/modules/config"
)

func FromConfig(c config.StrategyConfig) (Params, Thresholds) {
	return Params{
			RSIPeriod:  c.RSIPeriod,
			MACDFast:   c.MACDFast,
			MACDSlow:   c.MACDSlow,
			MACDSignal: c.MACDSignal,
			MAWindows:  append([]int(nil), c.MAWindows...),
		}, Thresholds{
			Oversold:   c.RSIOversold,
			Overbought: c.RSIOverbought,
			FastMA:     c.MACrossFast,
			SlowMA:     c.MACrossSlow,
		}
}

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			func(cfg *config.Config) Engine {
				return NewAnalyzer(FromConfig(cfg.Strategy))
			},
		),
	)
}
