package models

import (
	"math"
	"time"
)

// IndicatorRow: значения индикаторов на индексе бара. Неопределённое значение = NaN.
type IndicatorRow struct {
	Time       time.Time
	Close      float64
	RSI        float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	MA         map[int]float64 // окно -> SMA
}

// MovingAverage возвращает SMA по окну или NaN, если окно не считалось.
func (r IndicatorRow) MovingAverage(window int) float64 {
	v, ok := r.MA[window]
	if !ok {
		return math.NaN()
	}
	return v
}

// Complete: все поля строки определены.
func (r IndicatorRow) Complete() bool {
	if isUndefined(r.RSI) || isUndefined(r.MACD) || isUndefined(r.MACDSignal) || isUndefined(r.MACDHist) {
		return false
	}
	for _, v := range r.MA {
		if isUndefined(v) {
			return false
		}
	}
	return true
}

func isUndefined(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

// Analysis: результат разбора свечей одного рынка.
type Analysis struct {
	Market  string
	Price   float64
	Time    time.Time
	Latest  IndicatorRow
	Signals SignalSet
}
