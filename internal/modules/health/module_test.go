package health

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"jats/internal/models"
	"jats/internal/modules/health/service"
	"jats/internal/modules/metrics"
)

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, _ := io.ReadAll(rec.Body)
	return rec.Code, string(body)
}

func TestReadiness(t *testing.T) {
	state := service.NewState()
	mux := NewMux(state, metrics.New())

	if code, _ := get(t, mux, "/livez"); code != http.StatusOK {
		t.Errorf("livez = %d", code)
	}
	if code, _ := get(t, mux, "/readyz"); code != http.StatusServiceUnavailable {
		t.Errorf("readyz before first reconcile = %d", code)
	}
	state.SetReady(true)
	if code, _ := get(t, mux, "/readyz"); code != http.StatusOK {
		t.Errorf("readyz = %d", code)
	}
}

func TestHealthzReportsSnapshot(t *testing.T) {
	state := service.NewState()
	mux := NewMux(state, metrics.New())
	at := time.Unix(1717400000, 0)
	state.Publish(models.Snapshot{
		Holding:   true,
		Position:  models.Position{Market: "KRW-BTC", EntryPrice: 100, Quantity: 1},
		LastPrice: 103,
		Stats:     models.RiskStats{DailyLoss: 20},
		Markets:   3,
		UpdatedAt: at,
	})

	code, body := get(t, mux, "/healthz")
	if code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
	var resp healthResponse
	if err := sonic.UnmarshalString(body, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.State != "HOLDING" || resp.Market != "KRW-BTC" || resp.LastPrice != 103 ||
		resp.DailyLoss != 20 || resp.LastTickUnix != at.Unix() {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.SetPosition(true)
	code, body := get(t, NewMux(service.NewState(), m), "/metrics")
	if code != http.StatusOK || !strings.Contains(body, "jats_position_open 1") {
		t.Errorf("metrics endpoint: %d %s", code, body)
	}
}
