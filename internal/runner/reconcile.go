package runner

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"jats/internal/models"
)

type holding struct {
	market string
	qty    float64
	avg    float64
	value  float64
}

func (r *Runner) balances(ctx context.Context) ([]models.Balance, error) {
	bals, err := r.Exchange.Balances(ctx)
	if err = r.observe(ctx, "balances", err); err != nil {
		return nil, err
	}
	return bals, nil
}

// holdings: ненулевые остатки по известным рынкам, крупнейшие первыми. Пыль ниже минимального ордера отбрасывается.
func (r *Runner) holdings(ctx context.Context, bals []models.Balance) []holding {
	venue := r.Exchange.Venue()
	byAsset := make(map[string]models.Balance, len(bals))
	for _, b := range bals {
		byAsset[b.Currency] = b
	}

	var out []holding
	for _, m := range r.markets {
		b, ok := byAsset[r.Exchange.AssetOf(m)]
		if !ok || b.Quantity <= 0 || b.Currency == venue.QuoteCurrency {
			continue
		}
		px := r.priceHint(ctx, m, b)
		value := px * b.Quantity
		if px <= 0 || value < venue.MinOrderNotional {
			continue
		}
		out = append(out, holding{market: m, qty: b.Quantity, avg: b.AvgCost, value: value})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].value > out[j].value })
	return out
}

func (r *Runner) priceHint(ctx context.Context, market string, b models.Balance) float64 {
	if a, ok := r.analyses[market]; ok && a.Price > 0 {
		return a.Price
	}
	if b.AvgCost > 0 {
		return b.AvgCost
	}
	px, err := r.Exchange.CurrentPrice(ctx, market)
	if r.observe(ctx, "current_price", err) != nil {
		return 0
	}
	return px
}

// reconcile сверяет леджер с балансами биржи. Пока есть висящий ордер, сверка не выполняется.
func (r *Runner) reconcile(ctx context.Context, bals []models.Balance, now time.Time) {
	if len(r.outstanding) > 0 {
		return
	}
	hs := r.holdings(ctx, bals)
	pos, holdingPos := r.Ledger.Position()

	switch {
	case holdingPos:
		var own *holding
		for i := range hs {
			if hs[i].market == pos.Market {
				own = &hs[i]
			}
		}
		if own == nil {
			r.Ledger.Clear()
			r.Log.Warn("позиция исчезла с баланса", zap.String("market", pos.Market))
			r.Notifier.Sendf(ctx, "ℹ️ Позиция %s закрыта вне бота, состояние сброшено", pos.Market)
			break
		}
		if r.Ledger.Sync(own.qty, own.avg) {
			r.Log.Info("позиция синхронизирована с биржей",
				zap.String("market", own.market), zap.Float64("qty", own.qty), zap.Float64("avg", own.avg))
		}

	case len(hs) > 0:
		h := hs[0]
		price := h.avg
		if price <= 0 {
			price = h.value / h.qty
		}
		if err := r.Ledger.Adopt(h.market, price, h.qty, now); err != nil {
			r.observe(ctx, "ledger_adopt", err)
			break
		}
		r.Log.Info("позиция подхвачена с биржи",
			zap.String("market", h.market), zap.Float64("qty", h.qty), zap.Float64("entry", price))
		r.Notifier.Sendf(ctx, "📥 Найдена позиция %s: %s по %.2f", h.market, formatQty(h.qty), price)
		for _, extra := range hs[1:] {
			r.Log.Error("вторая позиция на счёте, бот её не трогает",
				zap.String("market", extra.market), zap.Float64("qty", extra.qty))
		}
	}

	if !r.State.Ready() {
		r.State.SetReady(true)
	}
}

func (r *Runner) mediumTick(ctx context.Context, now time.Time) error {
	if len(r.markets) == 0 {
		if err := r.resolveMarkets(ctx); err != nil {
			return err
		}
	}
	r.refresh(ctx)
	if r.stopped(ctx) {
		return nil
	}
	r.pollOutstanding(ctx, now)

	if err := r.Guard.Extend(ctx); err != nil {
		r.Log.Error("не удалось продлить замок экземпляра", zap.Error(err))
		r.Notifier.SendCritical(ctx, fmt.Sprintf("⚠️ Замок экземпляра не продлён: %v", err))
	}
	return nil
}

// resolveMarkets: рынки в валюте котировки из листинга биржи, первые MaxMarkets.
func (r *Runner) resolveMarkets(ctx context.Context) error {
	list, err := r.Exchange.Instruments(ctx)
	if err = r.observe(ctx, "instruments", err); err != nil {
		return err
	}
	prefix := r.Exchange.Venue().QuoteCurrency + "-"
	var markets []string
	for _, in := range list {
		if !strings.HasPrefix(in.Market, prefix) {
			continue
		}
		markets = append(markets, in.Market)
		if r.cfg.MaxMarkets > 0 && len(markets) >= r.cfg.MaxMarkets {
			break
		}
	}
	r.markets = markets
	r.Log.Info("список рынков", zap.Strings("markets", markets))
	return nil
}

// refresh: свежие свечи и сигналы по каждому рынку; сбой одного рынка не мешает остальным.
func (r *Runner) refresh(ctx context.Context) {
	for _, m := range r.markets {
		bars, err := r.Exchange.Candles(ctx, m, r.cfg.Timeframe, r.cfg.CandleCount)
		if r.observe(ctx, "candles", err) != nil {
			if r.stopped(ctx) {
				return
			}
			delete(r.analyses, m)
			continue
		}
		a, err := r.Engine.Analyze(m, bars)
		if err != nil {
			r.Log.Debug("анализ пропущен", zap.String("market", m), zap.Error(err))
			delete(r.analyses, m)
			continue
		}
		r.analyses[m] = a
		r.Metrics.Signals(a.Signals)
		r.Log.Debug("анализ",
			zap.String("market", m),
			zap.Float64("price", a.Price),
			zap.Float64("rsi", a.Latest.RSI),
			zap.Float64("macd", a.Latest.MACD),
			zap.Float64("macdSignal", a.Latest.MACDSignal),
			zap.Stringer("signals", a.Signals),
		)
	}
}

func (r *Runner) longTick(ctx context.Context, now time.Time) error {
	bals, err := r.balances(ctx)
	if err != nil {
		return err
	}
	r.reconcile(ctx, bals, now)
	r.Notifier.Send(ctx, r.summary(ctx, bals, now))
	return nil
}

// summary: сводка портфеля для длинного тика и /status.
func (r *Runner) summary(ctx context.Context, bals []models.Balance, now time.Time) string {
	venue := r.Exchange.Venue()
	var cash float64
	for _, b := range bals {
		if b.Currency == venue.QuoteCurrency {
			cash = b.Quantity
		}
	}

	var sb strings.Builder
	stats := r.Ledger.Stats()
	holdingValue := 0.0
	pos, ok := r.Ledger.Position()
	if ok {
		price := r.lastPrice
		if px, err := r.Exchange.CurrentPrice(ctx, pos.Market); r.observe(ctx, "current_price", err) == nil {
			price = px
			r.lastPrice = px
		}
		holdingValue = pos.Notional(price)
		pct, _ := pos.ProfitPct(price)
		fmt.Fprintf(&sb, "📊 Портфель\nНаличные: %.0f %s\nПозиция: %.0f\nИтого: %.0f\n\n",
			cash, venue.QuoteCurrency, holdingValue, cash+holdingValue)
		fmt.Fprintf(&sb, "%s: %s по %.2f, сейчас %.2f (%+.2f%%), максимум %.2f\n",
			pos.Market, formatQty(pos.Quantity), pos.EntryPrice, price, pct, pos.TopPrice)
	} else {
		fmt.Fprintf(&sb, "📊 Портфель\nНаличные: %.0f %s\nИтого: %.0f\n\nПозиций нет\n", cash, venue.QuoteCurrency, cash)
	}
	fmt.Fprintf(&sb, "\nСделок сегодня: %d\nПобед: %.1f%% (%d/%d)\nДневной убыток: %.0f / %.0f",
		r.Ledger.TradesOn(now), stats.WinRate(), stats.Wins, stats.TotalTrades, stats.DailyLoss, r.Gate.MaxDailyLoss)
	if len(r.outstanding) > 0 {
		fmt.Fprintf(&sb, "\nВисящих ордеров: %d", len(r.outstanding))
	}
	return sb.String()
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
