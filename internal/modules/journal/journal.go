package journal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"jats/internal/models"
	"jats/pkg/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id          BIGSERIAL PRIMARY KEY,
	venue       TEXT             NOT NULL,
	market      TEXT             NOT NULL,
	side        TEXT             NOT NULL,
	reason      TEXT             NOT NULL,
	price       DOUBLE PRECISION NOT NULL,
	quantity    DOUBLE PRECISION NOT NULL,
	profit_pct  DOUBLE PRECISION NOT NULL DEFAULT 0,
	executed_at TIMESTAMPTZ      NOT NULL,
	created_at  TIMESTAMPTZ      NOT NULL DEFAULT now()
)`

const insertTrade = `
INSERT INTO trades (venue, market, side, reason, price, quantity, profit_pct, executed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Recorder: приёмник подтверждённых сделок. Не блокирует раннер.
type Recorder interface {
	Record(rec models.TradeRecord)
}

type Nop struct{}

func (Nop) Record(models.TradeRecord) {}

// Journal пишет сделки в Postgres из отдельной горутины.
type Journal struct {
	tx      db.TxManager
	venue   string
	log     *zap.Logger
	timeout time.Duration

	queue chan models.TradeRecord
	done  chan struct{}
}

func New(tx db.TxManager, venue string, log *zap.Logger) *Journal {
	return &Journal{
		tx:      tx,
		venue:   venue,
		log:     log.Named("journal"),
		timeout: 5 * time.Second,
		queue:   make(chan models.TradeRecord, 256),
		done:    make(chan struct{}),
	}
}

// EnsureSchema создаёт таблицу trades, если её нет.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	return j.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Execer) error {
		_, err := tx.Exec(ctxTx, schema)
		return errors.Wrap(err, "create trades table")
	})
}

func (j *Journal) Start() {
	go j.run()
}

// Close дожидается записи очереди.
func (j *Journal) Close() {
	close(j.queue)
	<-j.done
}

func (j *Journal) Record(rec models.TradeRecord) {
	select {
	case j.queue <- rec:
	default:
		j.log.Warn("очередь журнала переполнена, сделка не записана",
			zap.String("market", rec.Market), zap.String("side", string(rec.Side)))
	}
}

func (j *Journal) run() {
	defer close(j.done)
	for rec := range j.queue {
		if err := j.insert(rec); err != nil {
			j.log.Error("не удалось записать сделку", zap.String("market", rec.Market), zap.Error(err))
		}
	}
}

func (j *Journal) insert(rec models.TradeRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Execer) error {
		_, err := tx.Exec(ctxTx, insertTrade,
			j.venue, rec.Market, string(rec.Side), string(rec.Reason),
			rec.Price, rec.Quantity, rec.ProfitPct, rec.Time.UTC(),
		)
		return errors.Wrap(err, "insert trade")
	})
}
