// Package memory provides in-memory store implementations for tests and
// dry runs.
package memory

import (
	"context"
	"sync"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletRecord // keyed by user_id|wallet_id
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{data: make(map[string]*domain.WalletRecord)}
}

// Insert adds a new wallet record. Returns ErrDuplicateKey if the pair exists.
func (s *WalletStore) Insert(_ context.Context, w *domain.WalletRecord) error {
	if w == nil || w.UserID == "" || w.WalletID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := w.UserID + "|" + w.WalletID
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *w
	s.data[key] = &cp
	return nil
}

// GetByUserWallet retrieves the record for a (user, wallet) pair.
func (s *WalletStore) GetByUserWallet(_ context.Context, userID, walletID string) (*domain.WalletRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[userID+"|"+walletID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *w
	return &cp, nil
}

var _ storage.WalletStore = (*WalletStore)(nil)
