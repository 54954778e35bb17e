// Package memory implements an in-process ledger store. Used in tests
// and in deployments that run without PostgreSQL.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fd1az/crosschain-arb/business/ledger/app"
	"github.com/fd1az/crosschain-arb/business/ledger/domain"
)

// Store keeps records in memory. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	trades   []domain.TradeRecord
	attempts []domain.AttemptRecord
}

var _ app.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// SaveTrade appends one confirmed leg.
func (s *Store) SaveTrade(_ context.Context, trade domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trade)
	return nil
}

// SaveAttempt appends one finished attempt.
func (s *Store) SaveAttempt(_ context.Context, attempt domain.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

// AttemptsSince returns attempts finished at or after the given time.
func (s *Store) AttemptsSince(_ context.Context, since time.Time) ([]domain.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AttemptRecord
	for _, a := range s.attempts {
		if !a.FinishedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

// TradesByAttempt returns the legs recorded for one attempt.
func (s *Store) TradesByAttempt(_ context.Context, attemptID string) ([]domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TradeRecord
	for _, t := range s.trades {
		if t.AttemptID == attemptID {
			out = append(out, t)
		}
	}
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}
