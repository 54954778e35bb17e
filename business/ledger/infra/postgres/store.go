// Package postgres implements the ledger store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/business/ledger/app"
	"github.com/fd1az/crosschain-arb/business/ledger/domain"
)

// Schema is the DDL for the ledger tables. Applied with CREATE IF NOT
// EXISTS at startup so a fresh database needs no migration step.
const Schema = `
CREATE TABLE IF NOT EXISTS attempts (
	id            TEXT PRIMARY KEY,
	buy_venue     TEXT NOT NULL,
	sell_venue    TEXT NOT NULL,
	spread_pct    NUMERIC NOT NULL,
	size          NUMERIC NOT NULL,
	outcome       TEXT NOT NULL,
	failure_class TEXT NOT NULL DEFAULT '',
	realized_pnl  NUMERIC NOT NULL DEFAULT 0,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS attempts_finished_at_idx ON attempts (finished_at);

CREATE TABLE IF NOT EXISTS trades (
	id          TEXT PRIMARY KEY,
	attempt_id  TEXT NOT NULL REFERENCES attempts (id),
	venue       TEXT NOT NULL,
	side        TEXT NOT NULL,
	tx_hash     TEXT NOT NULL,
	amount_in   NUMERIC NOT NULL,
	amount_out  NUMERIC NOT NULL,
	gas_used    BIGINT NOT NULL,
	executed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS trades_attempt_id_idx ON trades (attempt_id);
`

// Store implements app.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ app.Store = (*Store)(nil)

// New connects to PostgreSQL and ensures the ledger schema exists.
func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ensure schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// SaveAttempt inserts one finished attempt.
func (s *Store) SaveAttempt(ctx context.Context, attempt domain.AttemptRecord) error {
	const query = `
		INSERT INTO attempts (
			id, buy_venue, sell_venue, spread_pct, size,
			outcome, failure_class, realized_pnl, started_at, finished_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)`

	_, err := s.pool.Exec(ctx, query,
		attempt.ID, attempt.BuyVenue, attempt.SellVenue, attempt.SpreadPct.String(), attempt.Size.String(),
		attempt.Outcome, attempt.FailureClass, attempt.RealizedPnL.String(), attempt.StartedAt, attempt.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert attempt %s: %w", attempt.ID, err)
	}
	return nil
}

// SaveTrade inserts one confirmed leg.
func (s *Store) SaveTrade(ctx context.Context, trade domain.TradeRecord) error {
	const query = `
		INSERT INTO trades (
			id, attempt_id, venue, side, tx_hash,
			amount_in, amount_out, gas_used, executed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9
		)`

	_, err := s.pool.Exec(ctx, query,
		trade.ID, trade.AttemptID, trade.Venue, trade.Side, trade.TxHash,
		trade.AmountIn.String(), trade.AmountOut.String(), int64(trade.GasUsed), trade.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", trade.ID, err)
	}
	return nil
}

// AttemptsSince returns all attempts finished at or after the given time,
// oldest first.
func (s *Store) AttemptsSince(ctx context.Context, since time.Time) ([]domain.AttemptRecord, error) {
	const query = `
		SELECT id, buy_venue, sell_venue, spread_pct::text, size::text,
			outcome, failure_class, realized_pnl::text, started_at, finished_at
		FROM attempts
		WHERE finished_at >= $1
		ORDER BY finished_at ASC`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.AttemptRecord
	for rows.Next() {
		var a domain.AttemptRecord
		var spreadPct, size, realizedPnL string

		if err := rows.Scan(
			&a.ID, &a.BuyVenue, &a.SellVenue, &spreadPct, &size,
			&a.Outcome, &a.FailureClass, &realizedPnL, &a.StartedAt, &a.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan attempt: %w", err)
		}
		if a.SpreadPct, err = decimal.NewFromString(spreadPct); err != nil {
			return nil, fmt.Errorf("postgres: parse spread_pct %q: %w", spreadPct, err)
		}
		if a.Size, err = decimal.NewFromString(size); err != nil {
			return nil, fmt.Errorf("postgres: parse size %q: %w", size, err)
		}
		if a.RealizedPnL, err = decimal.NewFromString(realizedPnL); err != nil {
			return nil, fmt.Errorf("postgres: parse realized_pnl %q: %w", realizedPnL, err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list attempts rows: %w", err)
	}
	return attempts, nil
}

// TradesByAttempt returns the legs recorded for one attempt, oldest first.
func (s *Store) TradesByAttempt(ctx context.Context, attemptID string) ([]domain.TradeRecord, error) {
	const query = `
		SELECT id, attempt_id, venue, side, tx_hash,
			amount_in::text, amount_out::text, gas_used, executed_at
		FROM trades
		WHERE attempt_id = $1
		ORDER BY executed_at ASC`

	rows, err := s.pool.Query(ctx, query, attemptID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var amountIn, amountOut string
		var gasUsed int64

		if err := rows.Scan(
			&t.ID, &t.AttemptID, &t.Venue, &t.Side, &t.TxHash,
			&amountIn, &amountOut, &gasUsed, &t.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		if t.AmountIn, err = decimal.NewFromString(amountIn); err != nil {
			return nil, fmt.Errorf("postgres: parse amount_in %q: %w", amountIn, err)
		}
		if t.AmountOut, err = decimal.NewFromString(amountOut); err != nil {
			return nil, fmt.Errorf("postgres: parse amount_out %q: %w", amountOut, err)
		}
		t.GasUsed = uint64(gasUsed)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades rows: %w", err)
	}
	return trades, nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
