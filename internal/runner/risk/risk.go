package risk

import "jats/internal/models"

// Gate: стоп-лосс, трейлинг-стоп и дневной лимит убытка. Без состояния.
type Gate struct {
	StopLossPct     float64 // от цены входа
	TrailingStopPct float64 // от максимума
	MaxDailyLoss    float64 // в валюте котировки
}

// Verdict: результат проверки открытой позиции.
type Verdict struct {
	ProfitPct    float64
	DrawdownPct  float64
	StopLoss     bool
	TrailingStop bool
}

func (v Verdict) Triggered() bool { return v.StopLoss || v.TrailingStop }

func (v Verdict) Cause() string {
	switch {
	case v.StopLoss:
		return "stop_loss"
	case v.TrailingStop:
		return "trailing_stop"
	default:
		return ""
	}
}

// Evaluate проверяет позицию по текущей цене. TopPrice должен быть уже обновлён.
func (g Gate) Evaluate(pos models.Position, price float64) (Verdict, error) {
	pct, err := pos.ProfitPct(price)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{
		ProfitPct:   pct,
		DrawdownPct: pos.DrawdownPct(price),
	}
	v.StopLoss = pct <= -g.StopLossPct
	v.TrailingStop = v.DrawdownPct >= g.TrailingStopPct
	return v, nil
}

// CanOpen: дневной лимит убытка ещё не достигнут.
func (g Gate) CanOpen(stats models.RiskStats) bool {
	return stats.DailyLoss < g.MaxDailyLoss
}
