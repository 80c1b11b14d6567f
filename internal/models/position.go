package models

import "time"

// Position описывает единственную открытую позицию. TopPrice хранит максимум цены с момента входа.
type Position struct {
	Market     string
	EntryPrice float64
	Quantity   float64
	EntryTime  time.Time
	TopPrice   float64
}

// ProfitPct: нереализованный результат в процентах от цены входа.
func (p Position) ProfitPct(price float64) (float64, error) {
	if p.EntryPrice <= 0 {
		return 0, Invariant("position.profit_pct", "entry price must be positive")
	}
	return (price - p.EntryPrice) * 100 / p.EntryPrice, nil
}

// DrawdownPct: откат от максимума в процентах.
func (p Position) DrawdownPct(price float64) float64 {
	if p.TopPrice <= 0 {
		return 0
	}
	return (p.TopPrice - price) * 100 / p.TopPrice
}

func (p Position) Notional(price float64) float64 { return p.Quantity * price }
