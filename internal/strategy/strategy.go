package strategy

import "jats/internal/models"

// Params: периоды индикаторов.
type Params struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	MAWindows  []int
}

func DefaultParams() Params {
	return Params{
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		MAWindows:  []int{5, 20, 60, 120},
	}
}

// Warmup: первый индекс, начиная с которого строка полностью определена.
func (p Params) Warmup() int {
	w := p.RSIPeriod
	for _, m := range p.MAWindows {
		if m-1 > w {
			w = m - 1
		}
	}
	return w
}

// Thresholds: пороги RSI и пара окон для пересечения MA.
type Thresholds struct {
	Oversold   float64
	Overbought float64
	FastMA     int
	SlowMA     int
}

func DefaultThresholds() Thresholds {
	return Thresholds{Oversold: 30, Overbought: 70, FastMA: 5, SlowMA: 20}
}

// Engine: то, что дергает раннер.
type Engine interface {
	Analyze(market string, bars []models.PriceBar) (models.Analysis, error)
}
