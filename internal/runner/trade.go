package runner

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"jats/internal/helper"
	"jats/internal/models"
)

func (r *Runner) shortTick(ctx context.Context, now time.Time) error {
	r.resetStats(ctx, now)

	bals, err := r.balances(ctx)
	if err != nil {
		return err
	}
	r.reconcile(ctx, bals, now)

	if r.Ledger.Holding() {
		return r.manage(ctx, now)
	}
	return r.seek(ctx, now)
}

func (r *Runner) resetStats(ctx context.Context, now time.Time) {
	if r.Ledger.ResetDailyLoss(now) {
		r.Log.Info("дневной убыток сброшен", zap.Time("day", r.Ledger.Stats().DayAnchor))
	}
	if r.Ledger.ResetWinStats(now) {
		r.Log.Info("статистика сделок сброшена", zap.Time("anchor", r.Ledger.Stats().StatsAnchor))
	}
}

// manage ведёт открытую позицию: максимум цены, стоп-лосс, трейлинг, выход по сильному сигналу.
func (r *Runner) manage(ctx context.Context, now time.Time) error {
	if r.hasOutstanding(models.SideSell) {
		return nil
	}
	pos, _ := r.Ledger.Position()
	price, err := r.Exchange.CurrentPrice(ctx, pos.Market)
	if err = r.observe(ctx, "current_price", err); err != nil {
		return err
	}
	r.lastPrice = price
	r.Ledger.UpdateHighWater(price)
	pos, _ = r.Ledger.Position()

	v, err := r.Gate.Evaluate(pos, price)
	if err != nil {
		return r.observe(ctx, "risk_evaluate", err)
	}
	if v.Triggered() {
		r.Log.Warn("сработал стоп",
			zap.String("market", pos.Market),
			zap.String("cause", v.Cause()),
			zap.Float64("price", price),
			zap.Float64("top", pos.TopPrice),
			zap.Float64("profitPct", v.ProfitPct),
			zap.Float64("drawdownPct", v.DrawdownPct),
		)
		r.Notifier.Sendf(ctx, "🛑 %s: %s\nЦена: %.2f (вход %.2f, максимум %.2f)\nРезультат: %.2f%%",
			stopTitle(v.Cause()), pos.Market, price, pos.EntryPrice, pos.TopPrice, v.ProfitPct)
		return r.sell(ctx, pos, price, models.ReasonStopLoss, now)
	}

	if r.cfg.ExitOnStrongSell {
		if a, ok := r.analyses[pos.Market]; ok && a.Signals.StrongSell && a.Time.After(pos.EntryTime) {
			r.Log.Info("сильный сигнал на продажу", zap.String("market", pos.Market), zap.Stringer("signals", a.Signals))
			return r.sell(ctx, pos, price, models.ReasonSignal, now)
		}
	}
	return nil
}

func stopTitle(cause string) string {
	if cause == "trailing_stop" {
		return "Трейлинг-стоп"
	}
	return "Стоп-лосс"
}

// seek ищет вход, когда позиции нет: дневной лимит, выбор рынка, покупка.
func (r *Runner) seek(ctx context.Context, now time.Time) error {
	if r.hasOutstanding(models.SideBuy) {
		return nil
	}
	stats := r.Ledger.Stats()
	if !r.Gate.CanOpen(stats) {
		if day := helper.StartOfDay(now.In(r.cfg.Location)); !r.capNotified.Equal(day) {
			r.capNotified = day
			r.Log.Warn("дневной лимит убытка достигнут, покупки остановлены", zap.Float64("dailyLoss", stats.DailyLoss))
			r.Notifier.Sendf(ctx, "⚠️ Дневной лимит убытка достигнут: %.0f ≥ %.0f\nНовые покупки до завтра остановлены",
				stats.DailyLoss, r.Gate.MaxDailyLoss)
		}
		return nil
	}

	market, strong, ok := r.pick(now)
	if !ok {
		return nil
	}
	alloc := r.cfg.MaxInvestment
	if !strong {
		alloc /= 2
	}

	venue := r.Exchange.Venue()
	price, err := r.Exchange.CurrentPrice(ctx, market)
	if err = r.observe(ctx, "current_price", err); err != nil {
		return err
	}
	r.lastPrice = price
	if price <= 0 {
		return r.observe(ctx, "size", models.DataUnavailable("size "+market, "non-positive price"))
	}
	qty := helper.RoundDownToTick(alloc/price, venue.QuantityStep)
	if qty <= 0 || alloc < venue.MinOrderNotional {
		r.Log.Info("объём ниже минимального, покупка пропущена",
			zap.String("market", market), zap.Float64("alloc", alloc), zap.Float64("qty", qty))
		return nil
	}
	notional := qty * price
	if notional < venue.MinOrderNotional {
		r.Log.Info("сумма ниже минимальной, покупка пропущена", zap.String("market", market), zap.Float64("notional", notional))
		return nil
	}
	return r.buy(ctx, market, price, qty, notional, now)
}

// pick: первый рынок с strong_buy, иначе первый с buy. Рынки на паузе после выхода пропускаются.
func (r *Runner) pick(now time.Time) (market string, strong, ok bool) {
	var plain string
	for _, m := range r.markets {
		if until, cool := r.cooldown[m]; cool && now.Before(until) {
			continue
		}
		a, found := r.analyses[m]
		if !found {
			continue
		}
		if a.Signals.StrongBuy {
			return m, true, true
		}
		if a.Signals.Buy && plain == "" {
			plain = m
		}
	}
	return plain, false, plain != ""
}

func (r *Runner) buy(ctx context.Context, market string, price, qty, notional float64, now time.Time) error {
	a := r.analyses[market]
	r.Log.Info("покупка",
		zap.String("market", market),
		zap.Float64("price", price),
		zap.Float64("qty", qty),
		zap.Float64("notional", notional),
		zap.Stringer("signals", a.Signals),
	)
	id, err := r.Exchange.PlaceMarketBuy(ctx, market, notional)
	if err = r.observe(ctx, "place_buy", err); err != nil {
		r.Notifier.Sendf(ctx, "❗️ Ошибка покупки %s: %v", market, err)
		return err
	}
	o := &order{ID: id, Market: market, Side: models.SideBuy, Reason: models.ReasonSignal, Price: price, Quantity: qty, PlacedAt: now}
	r.await(ctx, o)
	return nil
}

func (r *Runner) sell(ctx context.Context, pos models.Position, price float64, reason models.Reason, now time.Time) error {
	id, err := r.Exchange.PlaceMarketSell(ctx, pos.Market, pos.Quantity)
	if err = r.observe(ctx, "place_sell", err); err != nil {
		r.Notifier.Sendf(ctx, "❗️ Ошибка продажи %s: %v", pos.Market, err)
		return err
	}
	o := &order{ID: id, Market: pos.Market, Side: models.SideSell, Reason: reason, Price: price, Quantity: pos.Quantity, PlacedAt: now}
	r.await(ctx, o)
	return nil
}

// await ждёт исполнения; неподтверждённый ордер остаётся висеть, повторно не отправляется.
func (r *Runner) await(ctx context.Context, o *order) {
	st, ok := r.confirm(ctx, o)
	if !ok {
		if r.stopped(ctx) {
			return
		}
		r.outstanding = append(r.outstanding, o)
		r.Log.Warn("ордер не подтверждён, оставлен на сверку", zap.String("id", o.ID), zap.String("market", o.Market))
		r.Notifier.Sendf(ctx, "⏳ Ордер %s %s не подтверждён за %d попыток, проверю позже", o.Side, o.Market, r.cfg.PollAttempts)
		return
	}
	r.settle(ctx, o, st)
}

func (r *Runner) confirm(ctx context.Context, o *order) (models.OrderStatus, bool) {
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, r.Tracer, "runner.confirm_order")
	defer span.Finish()
	span.SetTag("order.id", o.ID)
	span.SetTag("order.side", string(o.Side))

	for i := 0; i < r.cfg.PollAttempts; i++ {
		if i > 0 {
			if err := r.sleep(ctx, r.cfg.PollInterval); err != nil {
				return models.OrderStatus{}, false
			}
		}
		st, err := r.Exchange.OrderStatus(ctx, o.ID)
		if r.observe(ctx, "order_status", err) != nil {
			if r.stopped(ctx) {
				return models.OrderStatus{}, false
			}
			continue
		}
		if st.State == models.OrderFilled || st.State == models.OrderCancelled {
			span.SetTag("order.state", string(st.State))
			return st, true
		}
	}
	return models.OrderStatus{}, false
}

// settle применяет окончательный статус ордера к леджеру.
func (r *Runner) settle(ctx context.Context, o *order, st models.OrderStatus) {
	now := r.now()
	if st.State == models.OrderCancelled || st.FilledQty <= 0 {
		r.Log.Warn("ордер отменён без исполнения", zap.String("id", o.ID), zap.String("market", o.Market))
		r.Notifier.Sendf(ctx, "❌ Ордер %s %s отменён биржей", o.Side, o.Market)
		return
	}
	price := st.AvgFillPrice
	if price <= 0 {
		price = o.Price
	}

	switch o.Side {
	case models.SideBuy:
		rec, err := r.Ledger.Enter(o.Market, price, st.FilledQty, now)
		if err != nil {
			r.observe(ctx, "ledger_enter", err)
			return
		}
		r.lastPrice = price
		r.record(rec)
		r.Notifier.Sendf(ctx, "✅ Покупка %s\nЦена: %.2f\nКоличество: %s\nСумма: %.0f",
			o.Market, price, formatQty(st.FilledQty), rec.Notional())

	case models.SideSell:
		if !r.Ledger.Holding() {
			r.Log.Warn("продажа исполнена, но позиции уже нет", zap.String("market", o.Market))
			return
		}
		rec, err := r.Ledger.Exit(price, st.FilledQty, o.Reason, now)
		if err != nil {
			r.observe(ctx, "ledger_exit", err)
			return
		}
		r.lastPrice = price
		r.record(rec)
		if rest, open := r.Ledger.Position(); open {
			if rest.Notional(price) >= r.Exchange.Venue().MinOrderNotional {
				r.Log.Warn("продажа исполнена частично, остаток в позиции",
					zap.String("market", o.Market), zap.Float64("filled", st.FilledQty), zap.Float64("rest", rest.Quantity))
				r.Notifier.Sendf(ctx, "⚠️ Продажа %s исполнена частично: %s, остаток %s",
					o.Market, formatQty(st.FilledQty), formatQty(rest.Quantity))
				return
			}
			r.Ledger.Clear()
		}
		if r.cfg.Cooldown > 0 {
			r.cooldown[o.Market] = now.Add(r.cfg.Cooldown)
		}
		stats := r.Ledger.Stats()
		r.Notifier.Sendf(ctx, "💰 Продажа %s (%s)\nЦена: %.2f\nРезультат: %.2f%%\nДневной убыток: %.0f\nПобед: %.1f%%",
			o.Market, o.Reason, price, rec.ProfitPct, stats.DailyLoss, stats.WinRate())
	}
}

func (r *Runner) record(rec models.TradeRecord) {
	r.Log.Info("сделка",
		zap.String("market", rec.Market),
		zap.String("side", string(rec.Side)),
		zap.String("reason", string(rec.Reason)),
		zap.Float64("price", rec.Price),
		zap.Float64("qty", rec.Quantity),
		zap.Float64("profitPct", rec.ProfitPct),
	)
	r.Metrics.Trade(rec)
	r.Journal.Record(rec)
}

func (r *Runner) hasOutstanding(side models.Side) bool {
	for _, o := range r.outstanding {
		if o.Side == side {
			return true
		}
	}
	return false
}

// pollOutstanding проверяет висящие ордера; старые отменяет.
func (r *Runner) pollOutstanding(ctx context.Context, now time.Time) {
	kept := r.outstanding[:0]
	for _, o := range r.outstanding {
		st, err := r.Exchange.OrderStatus(ctx, o.ID)
		if r.observe(ctx, "order_status", err) != nil {
			kept = append(kept, o)
			continue
		}
		switch st.State {
		case models.OrderFilled, models.OrderCancelled:
			r.settle(ctx, o, st)
			continue
		}
		if r.cfg.StaleOrderAge > 0 && now.Sub(o.PlacedAt) >= r.cfg.StaleOrderAge {
			ok, err := r.Exchange.CancelOrder(ctx, o.ID)
			if r.observe(ctx, "cancel_order", err) == nil && ok {
				r.Log.Warn("висящий ордер отменён", zap.String("id", o.ID), zap.Duration("age", now.Sub(o.PlacedAt)))
				r.Notifier.Sendf(ctx, "🗑 Ордер %s %s отменён: не исполнен за %s", o.Side, o.Market, now.Sub(o.PlacedAt).Round(time.Second))
				continue
			}
		}
		kept = append(kept, o)
	}
	r.outstanding = kept
}
