package evm

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// fakeNonceReader serves a pending nonce and counts fetches.
type fakeNonceReader struct {
	mu      sync.Mutex
	pending uint64
	fetches int
	err     error
}

func (f *fakeNonceReader) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return 0, f.err
	}
	return f.pending, nil
}

func (f *fakeNonceReader) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func TestNonceManager_SequentialNonces(t *testing.T) {
	reader := &fakeNonceReader{pending: 7}
	m := NewNonceManager(reader, common.Address{}, testLogger())

	for want := uint64(7); want < 10; want++ {
		got, err := m.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != want {
			t.Fatalf("Next = %d, want %d", got, want)
		}
	}

	// The chain is consulted exactly once; the rest is local.
	if reader.fetchCount() != 1 {
		t.Errorf("fetched pending nonce %d times, want 1", reader.fetchCount())
	}
}

func TestNonceManager_InvalidateForcesResync(t *testing.T) {
	reader := &fakeNonceReader{pending: 3}
	m := NewNonceManager(reader, common.Address{}, testLogger())

	if _, err := m.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}

	// Pretend the submission failed and the chain still reports 3.
	m.Invalidate()

	got, err := m.Next(context.Background())
	if err != nil {
		t.Fatalf("Next after Invalidate: %v", err)
	}
	if got != 3 {
		t.Errorf("Next after Invalidate = %d, want 3 (re-synced, not advanced)", got)
	}
	if reader.fetchCount() != 2 {
		t.Errorf("fetched pending nonce %d times, want 2", reader.fetchCount())
	}
}

func TestNonceManager_ConcurrentNextNeverDuplicates(t *testing.T) {
	reader := &fakeNonceReader{pending: 0}
	m := NewNonceManager(reader, common.Address{}, testLogger())

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[uint64]bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			nonce, err := m.Next(context.Background())
			if err != nil {
				t.Errorf("Next: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[nonce] {
				t.Errorf("nonce %d handed out twice", nonce)
			}
			seen[nonce] = true
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("got %d distinct nonces, want %d", len(seen), n)
	}
}

func TestNonceManager_SyncFailure(t *testing.T) {
	reader := &fakeNonceReader{err: errors.New("connection refused")}
	m := NewNonceManager(reader, common.Address{}, testLogger())

	_, err := m.Next(context.Background())
	if apperror.GetCode(err) != apperror.CodeVenueRPCError {
		t.Fatalf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeVenueRPCError)
	}
}
