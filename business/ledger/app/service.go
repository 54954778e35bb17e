package app

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/crosschain-arb/business/ledger/domain"
	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/logger"
)

// LedgerService records attempts and trades and answers PnL queries.
// Recording failures are surfaced but never veto trading: a trade that
// already happened on-chain must not look failed because storage blinked.
type LedgerService struct {
	store  Store
	logger logger.LoggerInterface
}

// NewLedgerService creates a ledger service over the given store.
func NewLedgerService(store Store, log logger.LoggerInterface) *LedgerService {
	return &LedgerService{store: store, logger: log}
}

// RecordAttempt persists a finished attempt.
func (s *LedgerService) RecordAttempt(ctx context.Context, attempt domain.AttemptRecord) error {
	if err := s.store.SaveAttempt(ctx, attempt); err != nil {
		s.logger.Error(ctx, "failed to record attempt",
			"attempt_id", attempt.ID,
			"error", err)
		return apperror.Wrap(err, apperror.CodeRecordFailed, "record attempt")
	}
	return nil
}

// RecordTrade persists one confirmed leg.
func (s *LedgerService) RecordTrade(ctx context.Context, trade domain.TradeRecord) error {
	if err := s.store.SaveTrade(ctx, trade); err != nil {
		s.logger.Error(ctx, "failed to record trade",
			"attempt_id", trade.AttemptID,
			"tx_hash", trade.TxHash,
			"error", err)
		return apperror.Wrap(err, apperror.CodeRecordFailed, "record trade")
	}
	return nil
}

// TotalPnL sums realized PnL over all attempts since the given time.
func (s *LedgerService) TotalPnL(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	attempts, err := s.store.AttemptsSince(ctx, since)
	if err != nil {
		return decimal.Zero, apperror.Wrap(err, apperror.CodeStorageUnavailable, "total pnl")
	}

	total := decimal.Zero
	for _, a := range attempts {
		total = total.Add(a.RealizedPnL)
	}
	return total, nil
}

// DailyPnL rolls realized PnL up into per-day buckets covering the last
// days days, oldest first. Days without attempts are omitted.
func (s *LedgerService) DailyPnL(ctx context.Context, days int) ([]domain.PnLEntry, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.rollup(ctx, since, func(t time.Time) time.Time {
		return t.UTC().Truncate(24 * time.Hour)
	})
}

// WeeklyPnL rolls realized PnL up into per-week buckets (weeks starting
// Monday) covering the last weeks weeks, oldest first.
func (s *LedgerService) WeeklyPnL(ctx context.Context, weeks int) ([]domain.PnLEntry, error) {
	since := time.Now().UTC().AddDate(0, 0, -7*weeks)
	return s.rollup(ctx, since, weekStart)
}

func (s *LedgerService) rollup(ctx context.Context, since time.Time, bucket func(time.Time) time.Time) ([]domain.PnLEntry, error) {
	attempts, err := s.store.AttemptsSince(ctx, since)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStorageUnavailable, "pnl rollup")
	}

	buckets := make(map[time.Time]*domain.PnLEntry)
	for _, a := range attempts {
		key := bucket(a.FinishedAt)
		entry, ok := buckets[key]
		if !ok {
			entry = &domain.PnLEntry{PeriodStart: key, RealizedPnL: decimal.Zero}
			buckets[key] = entry
		}
		entry.Attempts++
		if a.Outcome == "success" {
			entry.Succeeded++
		}
		entry.RealizedPnL = entry.RealizedPnL.Add(a.RealizedPnL)
	}

	entries := make([]domain.PnLEntry, 0, len(buckets))
	for _, e := range buckets {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PeriodStart.Before(entries[j].PeriodStart)
	})
	return entries, nil
}

// weekStart truncates a time to the Monday 00:00 UTC of its week.
func weekStart(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started 6 days ago
	}
	return t.AddDate(0, 0, -(weekday - 1))
}
