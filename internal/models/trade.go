package models

import "time"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type Reason string

const (
	ReasonManual   Reason = "manual"
	ReasonStopLoss Reason = "stop_loss"
	ReasonSignal   Reason = "signal"
)

// TradeRecord: запись истории сделок. ProfitPct заполняется только для продаж.
type TradeRecord struct {
	Time      time.Time
	Market    string
	Side      Side
	Price     float64
	Quantity  float64
	Reason    Reason
	ProfitPct float64
}

func (r TradeRecord) Notional() float64 { return r.Price * r.Quantity }

// RiskStats: дневная статистика риска.
type RiskStats struct {
	DailyLoss   float64
	DayAnchor   time.Time
	Wins        int
	Losses      int
	TotalTrades int
	StatsAnchor time.Time
}

// WinRate: доля прибыльных сделок в процентах.
func (s RiskStats) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalTrades) * 100
}
