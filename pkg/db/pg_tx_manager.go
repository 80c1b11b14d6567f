package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Execer: то, что журналу нужно от транзакции.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// TxManager выполняет fn в транзакции на мастере.
type TxManager interface {
	RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx Execer) error) error
}

type PoolConfig struct {
	DSN      string
	MaxConns int32
}

func NewPool(ctx context.Context, conf PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(conf.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	if conf.MaxConns > 0 {
		pc.MaxConns = conf.MaxConns
	}
	return pgxpool.NewWithConfig(ctx, pc)
}

type PgTxManager struct {
	pool *pgxpool.Pool
}

func NewPgTxManager(pool *pgxpool.Pool) *PgTxManager {
	return &PgTxManager{pool: pool}
}

func (m *PgTxManager) Ping(ctx context.Context) error { return m.pool.Ping(ctx) }

func (m *PgTxManager) Close() { m.pool.Close() }

// RunMaster: read committed, откат при ошибке или панике fn.
func (m *PgTxManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx Execer) error) (err error) {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = errors.Wrap(tx.Commit(ctx), "commit tx")
	}()

	return errors.Wrap(fn(ctx, tx), "run tx")
}
