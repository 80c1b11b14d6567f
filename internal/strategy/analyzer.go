package strategy

import "jats/internal/models"

// Analyzer: индикаторы + сигналы по готовому набору свечей.
type Analyzer struct {
	params Params
	th     Thresholds
}

func NewAnalyzer(p Params, th Thresholds) *Analyzer {
	return &Analyzer{params: p, th: th}
}

func (a *Analyzer) Analyze(market string, bars []models.PriceBar) (models.Analysis, error) {
	if len(bars) <= a.params.Warmup()+1 {
		return models.Analysis{}, models.DataUnavailable("analyze "+market, "not enough candles for warm-up")
	}
	rows, err := Compute(bars, a.params)
	if err != nil {
		return models.Analysis{}, err
	}
	sig, idx, err := Latest(rows, a.th)
	if err != nil {
		return models.Analysis{}, err
	}
	last := bars[len(bars)-1]
	return models.Analysis{
		Market:  market,
		Price:   last.Close,
		Time:    last.Time,
		Latest:  rows[idx],
		Signals: sig,
	}, nil
}
