package storage

import (
	"context"

	"solana-strategy-engine/internal/domain"
)

// WalletStore provides access to wallet credential records.
type WalletStore interface {
	// Insert adds a new wallet record. Returns ErrDuplicateKey if the
	// (user_id, wallet_id) pair exists.
	Insert(ctx context.Context, w *domain.WalletRecord) error

	// GetByUserWallet retrieves the record for a (user, wallet) pair.
	// Returns ErrNotFound if not exists.
	GetByUserWallet(ctx context.Context, userID, walletID string) (*domain.WalletRecord, error)
}

// TradeRecordStore provides access to executed-trade records.
type TradeRecordStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByInstance retrieves all trades for an instance, ordered by
	// executed_at ASC.
	GetByInstance(ctx context.Context, instanceID string) ([]*domain.TradeRecord, error)

	// GetByWallet retrieves all trades for a (user, wallet) pair, ordered
	// by executed_at ASC.
	GetByWallet(ctx context.Context, userID, walletID string) ([]*domain.TradeRecord, error)
}

// ExitRuleStore provides access to exit rule rows written by post-trade
// actions.
type ExitRuleStore interface {
	// Insert adds a single rule. Returns ErrDuplicateKey if rule_id exists.
	Insert(ctx context.Context, r *domain.ExitRule) error

	// InsertBulk adds multiple rules atomically. Fails entire batch on any
	// duplicate.
	InsertBulk(ctx context.Context, rules []*domain.ExitRule) error

	// GetByWalletMint retrieves all rules for a (user, wallet, mint)
	// triple, ordered by created_at ASC.
	GetByWalletMint(ctx context.Context, userID, walletID, mint string) ([]*domain.ExitRule, error)
}

// FillStore retains per-trade fill history (live and simulated).
type FillStore interface {
	// InsertFills records the fills of one execution result under tradeID.
	InsertFills(ctx context.Context, tradeID string, result *domain.SimulationResult) error

	// GetByTradeID retrieves fills for a trade, ordered by sequence.
	GetByTradeID(ctx context.Context, tradeID string) ([]domain.Fill, error)
}
