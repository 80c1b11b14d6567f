package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"jats/internal/models"
)

func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func TestCollectors(t *testing.T) {
	m := New()
	m.Trade(models.TradeRecord{Side: models.SideSell, Reason: models.ReasonStopLoss})
	m.Trade(models.TradeRecord{Side: models.SideSell, Reason: models.ReasonStopLoss})
	m.SetPosition(true)
	m.SetDailyLoss(1500)
	m.ObserveTick("short", 200*time.Millisecond)
	m.ExchangeError(models.FatalAuth("op", nil))
	m.ExchangeError(nil)
	m.Signals(models.SignalSet{Buy: true, StrongBuy: true})

	mf := gather(t, m)

	trades := mf["jats_trades_total"]
	if trades == nil || len(trades.Metric) != 1 || trades.Metric[0].GetCounter().GetValue() != 2 {
		t.Fatalf("unexpected trades: %v", trades)
	}
	if v := mf["jats_position_open"].Metric[0].GetGauge().GetValue(); v != 1 {
		t.Errorf("position_open = %v", v)
	}
	if v := mf["jats_daily_loss"].Metric[0].GetGauge().GetValue(); v != 1500 {
		t.Errorf("daily_loss = %v", v)
	}
	if h := mf["jats_tick_duration_seconds"].Metric[0].GetHistogram(); h.GetSampleCount() != 1 {
		t.Errorf("tick samples = %d", h.GetSampleCount())
	}
	errs := mf["jats_exchange_errors_total"]
	if len(errs.Metric) != 1 || errs.Metric[0].Label[0].GetValue() != "fatal_auth" {
		t.Errorf("unexpected exchange errors: %v", errs)
	}
	if n := len(mf["jats_signals_total"].Metric); n != 2 {
		t.Errorf("expected buy and strong_buy signal series, got %d", n)
	}
}
