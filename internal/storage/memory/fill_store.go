package memory

import (
	"context"
	"sync"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/storage"
)

// FillStore is an in-memory implementation of storage.FillStore.
type FillStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Fill // keyed by trade_id
}

// NewFillStore creates a new in-memory fill store.
func NewFillStore() *FillStore {
	return &FillStore{data: make(map[string][]domain.Fill)}
}

// InsertFills records the fills of one execution result under tradeID.
func (s *FillStore) InsertFills(_ context.Context, tradeID string, result *domain.SimulationResult) error {
	if tradeID == "" || result == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tradeID]; exists {
		return storage.ErrDuplicateKey
	}

	fills := make([]domain.Fill, len(result.Fills))
	copy(fills, result.Fills)
	s.data[tradeID] = fills
	return nil
}

// GetByTradeID retrieves fills for a trade, ordered by sequence.
func (s *FillStore) GetByTradeID(_ context.Context, tradeID string) ([]domain.Fill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fills, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	out := make([]domain.Fill, len(fills))
	copy(out, fills)
	return out, nil
}

var _ storage.FillStore = (*FillStore)(nil)
