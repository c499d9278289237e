package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeRecordColumns = `
	trade_id, instance_id, user_id, wallet_id, mint,
	signature, shape, paper, in_amount, out_amount,
	fill_price, slippage_bps, fees_lamports, tip_lamports, attempts,
	executed_at
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	query := `
		INSERT INTO trade_records (` + tradeRecordColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.InstanceID, t.UserID, t.WalletID, t.Mint,
		t.Signature, t.Shape, t.Paper, int64(t.InAmount), int64(t.OutAmount),
		t.FillPrice, t.SlippageBps, int64(t.FeesLamports), int64(t.TipLamports), t.Attempts,
		t.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + ` FROM trade_records WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return t, nil
}

// GetByInstance retrieves all trades for an instance, ordered by executed_at ASC.
func (s *TradeRecordStore) GetByInstance(ctx context.Context, instanceID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE instance_id = $1
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("get trade records by instance: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// GetByWallet retrieves all trades for a (user, wallet) pair, ordered by
// executed_at ASC.
func (s *TradeRecordStore) GetByWallet(ctx context.Context, userID, walletID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE user_id = $1 AND wallet_id = $2
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, userID, walletID)
	if err != nil {
		return nil, fmt.Errorf("get trade records by wallet: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var (
		t                        domain.TradeRecord
		inAmount, outAmount      int64
		feesLamports, tipLamport int64
	)

	err := row.Scan(
		&t.TradeID, &t.InstanceID, &t.UserID, &t.WalletID, &t.Mint,
		&t.Signature, &t.Shape, &t.Paper, &inAmount, &outAmount,
		&t.FillPrice, &t.SlippageBps, &feesLamports, &tipLamport, &t.Attempts,
		&t.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	t.InAmount = uint64(inAmount)
	t.OutAmount = uint64(outAmount)
	t.FeesLamports = uint64(feesLamports)
	t.TipLamports = uint64(tipLamport)
	return &t, nil
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return trades, nil
}
