package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"jats/internal/models"
	"jats/internal/runner/ledger"
	"jats/internal/runner/risk"
)

type placed struct {
	id     string
	market string
	amount float64 // сумма для покупки, количество для продажи
}

type fakeExchange struct {
	venue    models.Venue
	prices   map[string]float64
	balances map[string]models.Balance

	autoFill bool
	statuses map[string]models.OrderStatus
	orders   map[string]placed

	balErr     error
	priceErr   error
	candlesErr error
	placeErr   error

	buys        []placed
	sells       []placed
	cancels     []string
	candleCalls int
	instruments []models.Instrument
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		venue:    models.Venue{Name: "Fake", QuoteCurrency: "KRW", MinOrderNotional: 5000, QuantityStep: 1e-8},
		prices:   map[string]float64{},
		balances: map[string]models.Balance{"KRW": {Currency: "KRW", Quantity: 1_000_000}},
		statuses: map[string]models.OrderStatus{},
		orders:   map[string]placed{},
	}
}

func (f *fakeExchange) Name() string        { return "Fake" }
func (f *fakeExchange) Venue() models.Venue { return f.venue }

func (f *fakeExchange) AssetOf(market string) string {
	if i := strings.IndexByte(market, '-'); i >= 0 {
		return market[i+1:]
	}
	return market
}

func (f *fakeExchange) CurrentPrice(_ context.Context, market string) (float64, error) {
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	px, ok := f.prices[market]
	if !ok {
		return 0, models.DataUnavailable("price", "no price for "+market)
	}
	return px, nil
}

func (f *fakeExchange) Candles(_ context.Context, market string, _ models.Timeframe, _ int) ([]models.PriceBar, error) {
	f.candleCalls++
	if f.candlesErr != nil {
		return nil, f.candlesErr
	}
	return []models.PriceBar{{Close: f.prices[market]}}, nil
}

func (f *fakeExchange) Balances(context.Context) ([]models.Balance, error) {
	if f.balErr != nil {
		return nil, f.balErr
	}
	out := make([]models.Balance, 0, len(f.balances))
	for _, b := range f.balances {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (f *fakeExchange) setHolding(market string, qty, avg float64) {
	asset := f.AssetOf(market)
	if qty <= 0 {
		delete(f.balances, asset)
		return
	}
	f.balances[asset] = models.Balance{Currency: asset, Quantity: qty, AvgCost: avg}
}

func (f *fakeExchange) PlaceMarketBuy(_ context.Context, market string, notional float64) (string, error) {
	if f.placeErr != nil {
		return "", f.placeErr
	}
	p := placed{id: fmt.Sprintf("buy-%d", len(f.buys)+1), market: market, amount: notional}
	f.buys = append(f.buys, p)
	f.orders[p.id] = p
	if f.autoFill {
		px := f.prices[market]
		f.fill(p.id, notional/px, px)
	}
	return p.id, nil
}

func (f *fakeExchange) PlaceMarketSell(_ context.Context, market string, qty float64) (string, error) {
	if f.placeErr != nil {
		return "", f.placeErr
	}
	p := placed{id: fmt.Sprintf("sell-%d", len(f.sells)+1), market: market, amount: qty}
	f.sells = append(f.sells, p)
	f.orders[p.id] = p
	if f.autoFill {
		f.fill(p.id, qty, f.prices[market])
	}
	return p.id, nil
}

// fill исполняет ордер и двигает балансы.
func (f *fakeExchange) fill(id string, qty, px float64) {
	p := f.orders[id]
	f.statuses[id] = models.OrderStatus{ID: id, State: models.OrderFilled, FilledQty: qty, AvgFillPrice: px}
	asset := f.AssetOf(p.market)
	cur := f.balances[asset]
	if strings.HasPrefix(id, "buy") {
		f.setHolding(p.market, cur.Quantity+qty, px)
	} else {
		f.setHolding(p.market, cur.Quantity-qty, cur.AvgCost)
	}
}

func (f *fakeExchange) OrderStatus(_ context.Context, id string) (models.OrderStatus, error) {
	if st, ok := f.statuses[id]; ok {
		return st, nil
	}
	return models.OrderStatus{ID: id, State: models.OrderPending}, nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, id string) (bool, error) {
	f.cancels = append(f.cancels, id)
	f.statuses[id] = models.OrderStatus{ID: id, State: models.OrderCancelled}
	return true, nil
}

func (f *fakeExchange) Instruments(context.Context) ([]models.Instrument, error) {
	return f.instruments, nil
}

type fakeEngine struct {
	analyses map[string]models.Analysis
}

func (e *fakeEngine) Analyze(market string, _ []models.PriceBar) (models.Analysis, error) {
	a, ok := e.analyses[market]
	if !ok {
		return models.Analysis{}, models.DataUnavailable("analyze "+market, "no data")
	}
	return a, nil
}

func (e *fakeEngine) set(market string, price float64, s models.SignalSet, at time.Time) {
	e.analyses[market] = models.Analysis{Market: market, Price: price, Time: at, Signals: s}
}

type message struct {
	text     string
	critical bool
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []message
}

func (n *fakeNotifier) Send(_ context.Context, msg string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, message{text: msg})
	return true
}

func (n *fakeNotifier) Sendf(ctx context.Context, format string, args ...any) bool {
	return n.Send(ctx, fmt.Sprintf(format, args...))
}

func (n *fakeNotifier) SendCritical(_ context.Context, msg string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, message{text: msg, critical: true})
	return true
}

func (n *fakeNotifier) count(substr string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.msgs {
		if strings.Contains(m.text, substr) {
			c++
		}
	}
	return c
}

var t0 = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type harness struct {
	r      *Runner
	ex     *fakeExchange
	eng    *fakeEngine
	notify *fakeNotifier
	clock  time.Time
	fatal  []error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ex:     newFakeExchange(),
		eng:    &fakeEngine{analyses: map[string]models.Analysis{}},
		notify: &fakeNotifier{},
		clock:  t0,
	}
	cfg := Config{
		Markets:         []string{"KRW-BTC", "KRW-ETH"},
		Timeframe:       models.Timeframe{Minutes: 60},
		CandleCount:     200,
		MaxInvestment:   100000,
		ShortInterval:   10 * time.Second,
		MediumInterval:  time.Minute,
		LongInterval:    time.Hour,
		PollAttempts:    3,
		StaleOrderAge:   5 * time.Minute,
		Cooldown:        5 * time.Minute,
		MaxServerErrors: 3,
		Location:        time.UTC,
	}
	h.r = New(cfg, Deps{
		Exchange: h.ex,
		Engine:   h.eng,
		Gate:     risk.Gate{StopLossPct: 3, TrailingStopPct: 2, MaxDailyLoss: 50000},
		Ledger:   ledger.New(ledger.Config{HistoryLimit: 100, Location: time.UTC}, t0),
		Notifier: h.notify,
		Log:      zaptest.NewLogger(t),
		OnFatal:  func(err error) { h.fatal = append(h.fatal, err) },
	})
	h.r.now = func() time.Time { return h.clock }
	h.r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return h
}

func (h *harness) step() { h.r.step(context.Background()) }

func (h *harness) advance(d time.Duration) {
	h.clock = h.clock.Add(d)
	h.step()
}
