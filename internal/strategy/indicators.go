package strategy

import (
	"fmt"
	"math"

	"jats/internal/models"
)

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA: простое среднее; первые window-1 значений не определены.
func SMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA с alpha = 2/(span+1), первое значение: сам первый элемент.
func EMA(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if span <= 0 || len(values) == 0 {
		return out
	}
	k := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + k*(values[i]-out[i-1])
	}
	return out
}

// MACD: линия, сигнальная и гистограмма.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	ef := EMA(closes, fast)
	es := EMA(closes, slow)
	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = ef[i] - es[i]
	}
	sig = EMA(line, signal)
	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// RSI по Уайлдеру. Затравка: среднее приростов 1..period, значение определено с индекса period.
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}
	p := float64(period)

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		avgGain += g
		avgLoss += l
	}
	avgGain /= p
	avgLoss /= p
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func gainLoss(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

// нет потерь: 100, если был рост, и 50 на плоском ряду
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func (p Params) validate() error {
	if p.RSIPeriod <= 0 || p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0 {
		return models.Invariant("indicators.params", "periods must be positive")
	}
	if p.MACDFast >= p.MACDSlow {
		return models.Invariant("indicators.params", "macd fast period must be below slow period")
	}
	for _, w := range p.MAWindows {
		if w <= 0 {
			return models.Invariant("indicators.params", fmt.Sprintf("invalid ma window %d", w))
		}
	}
	return nil
}

// Compute считает строки индикаторов 1:1 с барами. Неопределённые значения: NaN.
func Compute(bars []models.PriceBar, p Params) ([]models.IndicatorRow, error) {
	if len(bars) == 0 {
		return nil, models.DataUnavailable("indicators.compute", "no price bars")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	closes := models.Closes(bars)
	rsi := RSI(closes, p.RSIPeriod)
	line, sig, hist := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	mas := make(map[int][]float64, len(p.MAWindows))
	for _, w := range p.MAWindows {
		mas[w] = SMA(closes, w)
	}

	rows := make([]models.IndicatorRow, len(bars))
	for i, b := range bars {
		ma := make(map[int]float64, len(mas))
		for w, v := range mas {
			ma[w] = v[i]
		}
		rows[i] = models.IndicatorRow{
			Time:       b.Time,
			Close:      b.Close,
			RSI:        rsi[i],
			MACD:       line[i],
			MACDSignal: sig[i],
			MACDHist:   hist[i],
			MA:         ma,
		}
	}
	return rows, nil
}
