package health

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"jats/internal/modules/config"
	"jats/internal/modules/health/service"
	"jats/internal/modules/metrics"
)

type Config struct {
	Addr string // например ":8080"; пусто: сервер не поднимается
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: cfg.Service.HealthAddr}
}

type healthResponse struct {
	Ready        bool    `json:"ready"`
	State        string  `json:"state"`
	Market       string  `json:"market,omitempty"`
	EntryPrice   float64 `json:"entryPrice,omitempty"`
	LastPrice    float64 `json:"lastPrice,omitempty"`
	DailyLoss    float64 `json:"dailyLoss"`
	Markets      int     `json:"markets"`
	Outstanding  int     `json:"outstandingOrders"`
	UptimeSec    int64   `json:"uptimeSec"`
	LastTickUnix int64   `json:"lastTickUnix"`
}

func NewMux(state *service.State, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// готов после первой успешной сверки с биржей
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Ready:     state.Ready(),
			State:     "FLAT",
			UptimeSec: int64(state.Uptime().Seconds()),
		}
		if snap, ok := state.Snapshot(); ok {
			resp.State = snap.State()
			resp.LastPrice = snap.LastPrice
			resp.DailyLoss = snap.Stats.DailyLoss
			resp.Markets = snap.Markets
			resp.Outstanding = snap.Outstanding
			resp.LastTickUnix = snap.UpdatedAt.Unix()
			if snap.Holding {
				resp.Market = snap.Position.Market
				resp.EntryPrice = snap.Position.EntryPrice
			}
		}
		body, err := sonic.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry}))

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux, log *zap.Logger) {
	if cfg.Addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			log.Info("health-сервер запущен", zap.String("addr", ln.Addr().String()))
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
