package models

import "strings"

// SignalSet: флаги сигналов для последней пары строк индикаторов.
type SignalSet struct {
	RSIOversold   bool
	RSIOverbought bool
	MACDCrossUp   bool
	MACDCrossDown bool
	MACrossUp     bool
	MACrossDown   bool
	Buy           bool
	Sell          bool
	StrongBuy     bool
	StrongSell    bool
}

// Kinds: сработавшие флаги в фиксированном порядке (для логов и метрик).
func (s SignalSet) Kinds() []string {
	var out []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{s.RSIOversold, "rsi_oversold"},
		{s.RSIOverbought, "rsi_overbought"},
		{s.MACDCrossUp, "macd_cross_up"},
		{s.MACDCrossDown, "macd_cross_down"},
		{s.MACrossUp, "ma_cross_up"},
		{s.MACrossDown, "ma_cross_down"},
		{s.StrongBuy, "strong_buy"},
		{s.StrongSell, "strong_sell"},
	} {
		if f.on {
			out = append(out, f.name)
		}
	}
	return out
}

func (s SignalSet) String() string {
	k := s.Kinds()
	if len(k) == 0 {
		return "none"
	}
	return strings.Join(k, ",")
}
