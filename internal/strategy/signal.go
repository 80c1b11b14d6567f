package strategy

import "jats/internal/models"

// Generate сравнивает последнюю строку с предыдущей.
func Generate(cur, prev models.IndicatorRow, th Thresholds) models.SignalSet {
	fastCur, slowCur := cur.MovingAverage(th.FastMA), cur.MovingAverage(th.SlowMA)
	fastPrev, slowPrev := prev.MovingAverage(th.FastMA), prev.MovingAverage(th.SlowMA)

	s := models.SignalSet{
		RSIOversold:   cur.RSI < th.Oversold,
		RSIOverbought: cur.RSI > th.Overbought,
		MACDCrossUp:   cur.MACD > cur.MACDSignal && prev.MACD <= prev.MACDSignal,
		MACDCrossDown: cur.MACD < cur.MACDSignal && prev.MACD >= prev.MACDSignal,
		MACrossUp:     fastCur > slowCur && fastPrev <= slowPrev,
		MACrossDown:   fastCur < slowCur && fastPrev >= slowPrev,
	}
	s.Buy = s.RSIOversold || s.MACDCrossUp || s.MACrossUp
	s.Sell = s.RSIOverbought || s.MACDCrossDown || s.MACrossDown
	// сильные сигналы: все три условия одновременно, без пересечений
	s.StrongBuy = s.RSIOversold && cur.MACD > cur.MACDSignal && fastCur > slowCur
	s.StrongSell = s.RSIOverbought && cur.MACD < cur.MACDSignal && fastCur < slowCur
	return s
}

// Latest: сигналы по двум последним полностью определённым строкам.
func Latest(rows []models.IndicatorRow, th Thresholds) (models.SignalSet, int, error) {
	for i := len(rows) - 1; i >= 1; i-- {
		if rows[i].Complete() && rows[i-1].Complete() {
			return Generate(rows[i], rows[i-1], th), i, nil
		}
	}
	return models.SignalSet{}, -1, models.DataUnavailable("signals.latest", "fewer than two complete indicator rows")
}
