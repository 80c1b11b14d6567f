package ledger

import (
	"time"

	"jats/internal/helper"
	"jats/internal/models"
)

type Config struct {
	HistoryLimit int
	StatsResetAt helper.ClockTime
	Location     *time.Location
}

// Ledger: позиция, история сделок и дневная статистика.
// Не потокобезопасен: им владеет горутина раннера.
type Ledger struct {
	cfg     Config
	pos     *models.Position
	history []models.TradeRecord
	stats   models.RiskStats
}

func New(cfg Config, now time.Time) *Ledger {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 1000
	}
	local := now.In(cfg.Location)
	return &Ledger{
		cfg: cfg,
		stats: models.RiskStats{
			DayAnchor:   helper.StartOfDay(local),
			StatsAnchor: cfg.StatsResetAt.LastBoundary(local),
		},
	}
}

func (l *Ledger) Position() (models.Position, bool) {
	if l.pos == nil {
		return models.Position{}, false
	}
	return *l.pos, true
}

func (l *Ledger) Holding() bool { return l.pos != nil }

func (l *Ledger) Stats() models.RiskStats { return l.stats }

func (l *Ledger) History() []models.TradeRecord {
	return append([]models.TradeRecord(nil), l.history...)
}

// Enter открывает позицию по подтверждённой покупке и пишет запись buy.
func (l *Ledger) Enter(market string, price, qty float64, t time.Time) (models.TradeRecord, error) {
	if err := l.open("ledger.enter", market, price, qty, t); err != nil {
		return models.TradeRecord{}, err
	}
	rec := models.TradeRecord{
		Time:     t,
		Market:   market,
		Side:     models.SideBuy,
		Price:    price,
		Quantity: qty,
		Reason:   models.ReasonSignal,
	}
	l.appendRecord(rec)
	return rec, nil
}

// Adopt принимает позицию, найденную на бирже при сверке. В историю не пишется.
func (l *Ledger) Adopt(market string, price, qty float64, t time.Time) error {
	return l.open("ledger.adopt", market, price, qty, t)
}

func (l *Ledger) open(op, market string, price, qty float64, t time.Time) error {
	if l.pos != nil {
		return models.Invariant(op, "position already open for "+l.pos.Market)
	}
	if price <= 0 || qty <= 0 {
		return models.Invariant(op, "entry price and quantity must be positive")
	}
	l.pos = &models.Position{
		Market:     market,
		EntryPrice: price,
		Quantity:   qty,
		EntryTime:  t,
		TopPrice:   price,
	}
	return nil
}

// Sync подтягивает количество и среднюю цену с биржи. avgCost<=0: цену не трогаем.
func (l *Ledger) Sync(qty, avgCost float64) bool {
	if l.pos == nil || qty <= 0 {
		return false
	}
	changed := false
	if qty != l.pos.Quantity {
		l.pos.Quantity = qty
		changed = true
	}
	if avgCost > 0 && avgCost != l.pos.EntryPrice {
		l.pos.EntryPrice = avgCost
		if l.pos.TopPrice < avgCost {
			l.pos.TopPrice = avgCost
		}
		changed = true
	}
	return changed
}

// Clear сбрасывает позицию без записи в историю (продана вне бота).
func (l *Ledger) Clear() (models.Position, bool) {
	if l.pos == nil {
		return models.Position{}, false
	}
	p := *l.pos
	l.pos = nil
	return p, true
}

// UpdateHighWater поднимает максимум цены; вниз не двигается.
func (l *Ledger) UpdateHighWater(price float64) {
	if l.pos != nil && price > l.pos.TopPrice {
		l.pos.TopPrice = price
	}
}

func (l *Ledger) CurrentProfitPct(price float64) (float64, error) {
	if l.pos == nil {
		return 0, models.Invariant("ledger.profit_pct", "no open position")
	}
	return l.pos.ProfitPct(price)
}

// Exit закрывает позицию по подтверждённой продаже. При частичном исполнении
// остаток остаётся открытым с прежними входом и максимумом.
func (l *Ledger) Exit(price, qty float64, reason models.Reason, t time.Time) (models.TradeRecord, error) {
	if l.pos == nil {
		return models.TradeRecord{}, models.Invariant("ledger.exit", "no open position")
	}
	if price <= 0 {
		return models.TradeRecord{}, models.Invariant("ledger.exit", "exit price must be positive")
	}
	pct, err := l.pos.ProfitPct(price)
	if err != nil {
		return models.TradeRecord{}, err
	}
	if qty <= 0 {
		qty = l.pos.Quantity
	}

	rec := models.TradeRecord{
		Time:      t,
		Market:    l.pos.Market,
		Side:      models.SideSell,
		Price:     price,
		Quantity:  qty,
		Reason:    reason,
		ProfitPct: pct,
	}
	switch {
	case pct > 0:
		l.stats.Wins++
	case pct < 0:
		l.stats.Losses++
		l.stats.DailyLoss += (l.pos.EntryPrice - price) * qty
	}
	l.stats.TotalTrades++

	l.appendRecord(rec)
	if rest := l.pos.Quantity - qty; rest > l.pos.Quantity*1e-9 {
		l.pos.Quantity = rest
		return rec, nil
	}
	l.pos = nil
	return rec, nil
}

func (l *Ledger) appendRecord(rec models.TradeRecord) {
	l.history = append(l.history, rec)
	if over := len(l.history) - l.cfg.HistoryLimit; over > 0 {
		l.history = append(l.history[:0:0], l.history[over:]...)
	}
}

// TradesOn: сколько сделок пришлось на сутки t.
func (l *Ledger) TradesOn(t time.Time) int {
	day := helper.StartOfDay(t.In(l.cfg.Location))
	n := 0
	for _, r := range l.history {
		if helper.StartOfDay(r.Time.In(l.cfg.Location)).Equal(day) {
			n++
		}
	}
	return n
}

// ResetDailyLoss обнуляет дневной убыток при смене даты. Повторный вызов в те же сутки ничего не делает.
func (l *Ledger) ResetDailyLoss(now time.Time) bool {
	day := helper.StartOfDay(now.In(l.cfg.Location))
	if !day.After(l.stats.DayAnchor) {
		return false
	}
	l.stats.DailyLoss = 0
	l.stats.DayAnchor = day
	return true
}

// ResetWinStats обнуляет счётчики сделок, когда пройдена очередная граница StatsResetAt.
func (l *Ledger) ResetWinStats(now time.Time) bool {
	b := l.cfg.StatsResetAt.LastBoundary(now.In(l.cfg.Location))
	if !b.After(l.stats.StatsAnchor) {
		return false
	}
	l.ResetStats()
	l.stats.StatsAnchor = b
	return true
}

// ResetStats: ручной сброс (команда оператора). Дневной убыток не трогает.
func (l *Ledger) ResetStats() {
	l.stats.Wins = 0
	l.stats.Losses = 0
	l.stats.TotalTrades = 0
}
