package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"jats/internal/exchange"
	"jats/internal/models"
	"jats/internal/modules/health/service"
	"jats/internal/modules/journal"
	"jats/internal/modules/lock"
	"jats/internal/modules/metrics"
	"jats/internal/notify"
	"jats/internal/runner/ledger"
	"jats/internal/runner/risk"
	"jats/internal/strategy"
)

type Config struct {
	Markets     []string
	MaxMarkets  int
	Timeframe   models.Timeframe
	CandleCount int

	MaxInvestment    float64
	ExitOnStrongSell bool

	ShortInterval  time.Duration
	MediumInterval time.Duration
	LongInterval   time.Duration

	PollInterval    time.Duration
	PollAttempts    int
	StaleOrderAge   time.Duration
	Cooldown        time.Duration
	MaxServerErrors int

	Location *time.Location
}

// Deps: внешние зависимости раннера.
type Deps struct {
	Exchange exchange.Client
	Engine   strategy.Engine
	Gate     risk.Gate
	Ledger   *ledger.Ledger
	Notifier notify.Notifier
	Commands notify.CommandSource
	Journal  journal.Recorder
	Guard    lock.Guard
	Metrics  *metrics.Metrics
	State    *service.State
	Tracer   opentracing.Tracer
	Log      *zap.Logger
	// OnFatal вызывается один раз после критического уведомления.
	OnFatal func(err error)
}

// order: отправленный, но ещё не подтверждённый ордер.
type order struct {
	ID       string
	Market   string
	Side     models.Side
	Reason   models.Reason
	Price    float64 // цена на момент отправки
	Quantity float64
	PlacedAt time.Time
}

// Runner: однопоточный планировщик торговли. Всё состояние меняется только в горутине Run.
type Runner struct {
	cfg Config
	Deps

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	markets     []string
	analyses    map[string]models.Analysis
	outstanding []*order
	cooldown    map[string]time.Time
	lastPrice   float64
	capNotified time.Time

	serverErrors int
	lastShort    time.Time
	lastMedium   time.Time
	lastLong     time.Time

	cancel    context.CancelFunc
	done      chan struct{}
	fatalOnce sync.Once
	fatalErr  error
}

func New(cfg Config, d Deps) *Runner {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 15
	}
	if cfg.MaxServerErrors <= 0 {
		cfg.MaxServerErrors = 5
	}
	if d.Tracer == nil {
		d.Tracer = opentracing.NoopTracer{}
	}
	if d.Journal == nil {
		d.Journal = journal.Nop{}
	}
	if d.Guard == nil {
		d.Guard = lock.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.State == nil {
		d.State = service.NewState()
	}
	d.Log = d.Log.Named("runner")
	return &Runner{
		cfg:      cfg,
		Deps:     d,
		now:      time.Now,
		sleep:    sleepCtx,
		markets:  append([]string(nil), cfg.Markets...),
		analyses: make(map[string]models.Analysis),
		cooldown: make(map[string]time.Time),
		done:     make(chan struct{}),
	}
}

// Start запускает цикл в отдельной горутине.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.Run(ctx)
}

// Stop останавливает цикл и ждёт его завершения. Отправленные ордера не отменяются.
func (r *Runner) Stop(ctx context.Context) {
	if r.cancel == nil {
		return
	}
	r.cancel()
	select {
	case <-r.done:
	case <-ctx.Done():
	}
	if r.fatalErr == nil {
		r.Notifier.SendCritical(ctx, "🛑 Бот остановлен")
	}
}

func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)
	r.Log.Info("старт раннера",
		zap.String("venue", r.Exchange.Name()),
		zap.Strings("markets", r.markets),
		zap.Stringer("timeframe", r.cfg.Timeframe),
		zap.Duration("short", r.cfg.ShortInterval),
		zap.Duration("medium", r.cfg.MediumInterval),
		zap.Duration("long", r.cfg.LongInterval),
	)
	r.Notifier.Sendf(ctx, "🚀 Бот запущен\nТаймфрейм: %s\nЛимит на сделку: %.0f", r.cfg.Timeframe, r.cfg.MaxInvestment)

	r.step(ctx)

	ticker := time.NewTicker(r.cfg.ShortInterval)
	defer ticker.Stop()

	var commands <-chan models.Command
	if r.Commands != nil {
		commands = r.Commands.Commands()
	}
	for {
		select {
		case <-ctx.Done():
			r.Log.Info("раннер остановлен")
			return
		case cmd := <-commands:
			r.handleCommand(ctx, cmd)
			r.publish()
		case <-ticker.C:
			r.step(ctx)
		}
	}
}

// step: один проход планировщика. Средний и длинный интервалы считаются по часам, а не по счётчику тиков.
func (r *Runner) step(ctx context.Context) {
	if r.stopped(ctx) {
		return
	}
	now := r.now()
	if due(r.lastMedium, now, r.cfg.MediumInterval) {
		r.lastMedium = now
		r.tick(ctx, "medium", r.mediumTick)
	}
	if r.stopped(ctx) {
		return
	}
	r.lastShort = now
	r.tick(ctx, "short", r.shortTick)
	if r.stopped(ctx) {
		return
	}
	if due(r.lastLong, now, r.cfg.LongInterval) {
		r.lastLong = now
		r.tick(ctx, "long", r.longTick)
	}
	r.publish()
}

func due(last, now time.Time, every time.Duration) bool {
	return last.IsZero() || now.Sub(last) >= every
}

func (r *Runner) stopped(ctx context.Context) bool {
	return ctx.Err() != nil || r.fatalErr != nil
}

func (r *Runner) tick(ctx context.Context, interval string, fn func(ctx context.Context, now time.Time) error) {
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, r.Tracer, "runner.tick."+interval)
	defer span.Finish()

	start := time.Now()
	err := fn(ctx, r.now())
	r.Metrics.ObserveTick(interval, time.Since(start))
	if err != nil {
		span.SetTag("error", true)
		r.Log.Warn("тик прерван", zap.String("interval", interval), zap.Error(err))
	}
}

// observe классифицирует ошибку внешнего вызова. nil сбрасывает счётчик 5xx подряд.
func (r *Runner) observe(ctx context.Context, op string, err error) error {
	if err == nil {
		r.serverErrors = 0
		return nil
	}
	r.Metrics.ExchangeError(err)
	switch {
	case models.IsFatal(err):
		r.escalate(ctx, err)
	case models.IsServer(err):
		r.serverErrors++
		r.Log.Warn("ошибка сервера биржи", zap.String("op", op), zap.Int("inRow", r.serverErrors), zap.Error(err))
		if r.serverErrors >= r.cfg.MaxServerErrors {
			r.escalate(ctx, fmt.Errorf("%d server errors in a row, last: %w", r.serverErrors, err))
		}
	case models.KindOf(err) == models.KindInvariant:
		r.Log.Error("нарушение инварианта", zap.String("op", op), zap.Error(err))
	default:
		r.Log.Warn("ошибка вызова", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (r *Runner) escalate(ctx context.Context, err error) {
	r.fatalOnce.Do(func() {
		r.fatalErr = err
		r.Log.Error("фатальная ошибка, остановка", zap.Error(err))
		r.Notifier.SendCritical(context.WithoutCancel(ctx), fmt.Sprintf("⛔️ Фатальная ошибка: %v\nБот остановлен", err))
		if r.cancel != nil {
			r.cancel()
		}
		if r.OnFatal != nil {
			r.OnFatal(err)
		}
	})
}

// Err: фатальная ошибка, остановившая раннер.
func (r *Runner) Err() error { return r.fatalErr }

func (r *Runner) publish() {
	pos, holding := r.Ledger.Position()
	stats := r.Ledger.Stats()
	r.Metrics.SetPosition(holding)
	r.Metrics.SetDailyLoss(stats.DailyLoss)
	r.State.Publish(models.Snapshot{
		Holding:     holding,
		Position:    pos,
		LastPrice:   r.lastPrice,
		Stats:       stats,
		Markets:     len(r.markets),
		Outstanding: len(r.outstanding),
		UpdatedAt:   r.now(),
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
