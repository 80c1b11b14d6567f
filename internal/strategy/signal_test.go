package strategy

import (
	"math"
	"testing"

	"jats/internal/models"
)

func row(rsi, macd, signal, ma5, ma20 float64) models.IndicatorRow {
	return models.IndicatorRow{
		RSI:        rsi,
		MACD:       macd,
		MACDSignal: signal,
		MACDHist:   macd - signal,
		MA:         map[int]float64{5: ma5, 20: ma20},
	}
}

func TestGenerate(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		name      string
		prev, cur models.IndicatorRow
		check     func(models.SignalSet) bool
	}{
		{
			name: "oversold with macd above signal and ma5 above ma20 is strong buy",
			prev: row(25, 0.5, 0.2, 11, 10),
			cur:  row(25, 0.6, 0.3, 11, 10),
			check: func(s models.SignalSet) bool {
				return s.RSIOversold && s.StrongBuy && s.Buy && !s.MACDCrossUp && !s.Sell
			},
		},
		{
			name: "oversold macd cross up below ma20 is not strong",
			prev: row(28, -1.0, -0.5, 10, 11),
			cur:  row(25, -0.2, -0.4, 10, 11),
			check: func(s models.SignalSet) bool {
				return s.RSIOversold && s.MACDCrossUp && s.Buy && !s.StrongBuy
			},
		},
		{
			name: "overbought with macd below signal and ma5 below ma20 is strong sell",
			prev: row(75, 0.2, 0.4, 10, 11),
			cur:  row(75, 0.1, 0.3, 10, 11),
			check: func(s models.SignalSet) bool {
				return s.RSIOverbought && s.StrongSell && s.Sell && !s.MACDCrossDown && !s.Buy
			},
		},
		{
			name: "overbought macd cross down above ma20 is not strong",
			prev: row(72, 1.0, 0.5, 11, 10),
			cur:  row(75, 0.2, 0.4, 11, 10),
			check: func(s models.SignalSet) bool {
				return s.RSIOverbought && s.MACDCrossDown && s.Sell && !s.StrongSell
			},
		},
		{
			name: "ma cross up alone is plain buy",
			prev: row(50, 0.1, 0.2, 9.9, 10),
			cur:  row(52, 0.1, 0.2, 10.1, 10),
			check: func(s models.SignalSet) bool {
				return s.MACrossUp && s.Buy && !s.StrongBuy && !s.MACDCrossUp
			},
		},
		{
			name: "ma cross down alone is plain sell",
			prev: row(50, 0.1, 0.2, 10, 10),
			cur:  row(48, 0.1, 0.2, 9.9, 10),
			check: func(s models.SignalSet) bool {
				return s.MACrossDown && s.Sell && !s.StrongSell
			},
		},
		{
			name: "steady state has no signals",
			prev: row(50, 0.3, 0.2, 11, 10),
			cur:  row(51, 0.35, 0.25, 11.1, 10),
			check: func(s models.SignalSet) bool {
				return s == models.SignalSet{}
			},
		},
		{
			name: "thresholds are strict",
			prev: row(30, 0.3, 0.2, 11, 10),
			cur:  row(30, 0.3, 0.2, 11, 10),
			check: func(s models.SignalSet) bool {
				return !s.RSIOversold && !s.RSIOverbought
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Generate(c.cur, c.prev, th)
			if !c.check(got) {
				t.Errorf("unexpected signals: %+v", got)
			}
		})
	}
}

func TestLatestNeedsTwoCompleteRows(t *testing.T) {
	th := DefaultThresholds()
	incomplete := row(math.NaN(), 0, 0, 1, 1)
	_, _, err := Latest([]models.IndicatorRow{incomplete, row(50, 0, 0, 1, 1)}, th)
	if models.KindOf(err) != models.KindDataUnavailable {
		t.Fatalf("expected data unavailable, got %v", err)
	}
	_, idx, err := Latest([]models.IndicatorRow{incomplete, row(50, 0, 0, 1, 1), row(50, 0, 0, 1, 1)}, th)
	if err != nil || idx != 2 {
		t.Fatalf("expected last index 2, got %d, %v", idx, err)
	}
}

func TestAnalyzerOnRisingMarket(t *testing.T) {
	a := NewAnalyzer(DefaultParams(), DefaultThresholds())
	bars := barsFrom(ramp(200, 1000, 5)...)
	an, err := a.Analyze("KRW-BTC", bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if an.Price != bars[199].Close || !an.Time.Equal(bars[199].Time) {
		t.Errorf("analysis must carry last close and time")
	}
	if an.Latest.RSI != 100 {
		t.Errorf("rising market RSI = %v want 100", an.Latest.RSI)
	}
	if !an.Signals.RSIOverbought || !an.Signals.Sell || an.Signals.Buy || an.Signals.StrongSell {
		t.Errorf("unexpected signals: %+v", an.Signals)
	}
}

func TestAnalyzerNotEnoughCandles(t *testing.T) {
	a := NewAnalyzer(DefaultParams(), DefaultThresholds())
	_, err := a.Analyze("KRW-BTC", barsFrom(ramp(120, 1, 1)...))
	if models.KindOf(err) != models.KindDataUnavailable {
		t.Fatalf("expected data unavailable, got %v", err)
	}
}
