package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	"jats/internal/models"
)

const namespace = "jats"

// Metrics: коллекторы раннера на собственном реестре.
type Metrics struct {
	Registry *prometheus.Registry

	trades         *prometheus.CounterVec
	positionOpen   prometheus.Gauge
	dailyLoss      prometheus.Gauge
	tickDuration   *prometheus.HistogramVec
	exchangeErrors *prometheus.CounterVec
	signals        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Confirmed trades by side and reason",
		}, []string{"side", "reason"}),
		positionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_open",
			Help:      "1 while a position is held",
		}),
		dailyLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_loss",
			Help:      "Realized loss since local midnight, quote currency",
		}),
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Scheduler tick duration",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"interval"}),
		exchangeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_errors_total",
			Help:      "Exchange call failures by error kind",
		}, []string{"kind"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Evaluated signals by kind",
		}, []string{"kind"}),
	}
	m.Registry.MustRegister(
		m.trades, m.positionOpen, m.dailyLoss, m.tickDuration, m.exchangeErrors, m.signals,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Trade(rec models.TradeRecord) {
	m.trades.WithLabelValues(string(rec.Side), string(rec.Reason)).Inc()
}

func (m *Metrics) SetPosition(open bool) {
	if open {
		m.positionOpen.Set(1)
		return
	}
	m.positionOpen.Set(0)
}

func (m *Metrics) SetDailyLoss(v float64) { m.dailyLoss.Set(v) }

func (m *Metrics) ObserveTick(interval string, d time.Duration) {
	m.tickDuration.WithLabelValues(interval).Observe(d.Seconds())
}

func (m *Metrics) ExchangeError(err error) {
	if err == nil {
		return
	}
	m.exchangeErrors.WithLabelValues(models.KindOf(err).String()).Inc()
}

func (m *Metrics) Signals(s models.SignalSet) {
	if s.Buy {
		m.signals.WithLabelValues("buy").Inc()
	}
	if s.Sell {
		m.signals.WithLabelValues("sell").Inc()
	}
	for _, k := range s.Kinds() {
		m.signals.WithLabelValues(k).Inc()
	}
}

func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(New),
	)
}
