package postgres

import (
	"context"
	"fmt"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new wallet record. Returns ErrDuplicateKey if the
// (user_id, wallet_id) pair exists.
func (s *WalletStore) Insert(ctx context.Context, w *domain.WalletRecord) error {
	query := `
		INSERT INTO wallets (
			user_id, wallet_id, scheme, cipher, nonce,
			public_key, protected, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8
		)
	`

	_, err := s.pool.Exec(ctx, query,
		w.UserID, w.WalletID, w.Scheme, w.Cipher, w.Nonce,
		w.PublicKey, w.Protected, w.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByUserWallet retrieves the record for a (user, wallet) pair.
// Returns ErrNotFound if not exists.
func (s *WalletStore) GetByUserWallet(ctx context.Context, userID, walletID string) (*domain.WalletRecord, error) {
	query := `
		SELECT
			user_id, wallet_id, scheme, cipher, nonce,
			public_key, protected, created_at
		FROM wallets
		WHERE user_id = $1 AND wallet_id = $2
	`

	var w domain.WalletRecord
	err := s.pool.QueryRow(ctx, query, userID, walletID).Scan(
		&w.UserID, &w.WalletID, &w.Scheme, &w.Cipher, &w.Nonce,
		&w.PublicKey, &w.Protected, &w.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}
