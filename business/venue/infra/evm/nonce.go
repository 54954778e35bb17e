package evm

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/logger"
)

// NonceReader is the subset of the RPC client the nonce manager needs.
// *ethclient.Client satisfies it.
type NonceReader interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// NonceManager hands out sequential nonces for a single signing address.
// It syncs with the chain lazily and re-syncs after any submission whose
// outcome left the local counter suspect. All access is serialized; trades
// on one chain are strictly sequential so contention is not a concern.
type NonceManager struct {
	client  NonceReader
	address common.Address
	logger  logger.LoggerInterface

	mu     sync.Mutex
	next   uint64
	synced bool
}

// NewNonceManager creates a nonce manager for the given address.
func NewNonceManager(client NonceReader, address common.Address, log logger.LoggerInterface) *NonceManager {
	return &NonceManager{
		client:  client,
		address: address,
		logger:  log,
	}
}

// Next returns the nonce to use for the next transaction and advances the
// local counter. The first call (and the first call after Invalidate)
// fetches the pending nonce from the chain.
func (m *NonceManager) Next(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.synced {
		if err := m.syncLocked(ctx); err != nil {
			return 0, err
		}
	}

	n := m.next
	m.next++
	return n, nil
}

// Invalidate marks the local counter as suspect. The next call to Next or
// Reconcile re-syncs from the chain. Called after any submission failure:
// whether the transaction reached the mempool decides the correct next
// nonce, and only the chain knows.
func (m *NonceManager) Invalidate() {
	m.mu.Lock()
	m.synced = false
	m.mu.Unlock()
}

// Reconcile forces a re-sync with the chain's pending nonce.
func (m *NonceManager) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncLocked(ctx)
}

func (m *NonceManager) syncLocked(ctx context.Context) error {
	n, err := m.client.PendingNonceAt(ctx, m.address)
	if err != nil {
		return apperror.New(apperror.CodeVenueRPCError,
			apperror.WithMessage("failed to fetch pending nonce"),
			apperror.WithCause(err),
			apperror.WithContext(m.address.Hex()))
	}

	m.logger.Debug(ctx, "nonce synced", "address", m.address.Hex(), "nonce", n)
	m.next = n
	m.synced = true
	return nil
}
