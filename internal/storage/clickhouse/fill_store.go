package clickhouse

import (
	"context"
	"fmt"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/storage"
)

// FillStore implements storage.FillStore using ClickHouse.
type FillStore struct {
	conn *Conn
}

// NewFillStore creates a new FillStore.
func NewFillStore(conn *Conn) *FillStore {
	return &FillStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FillStore = (*FillStore)(nil)

// InsertFills records the fills of one execution result under tradeID.
// The sequence column preserves fill order; MergeTree sorts on it.
func (s *FillStore) InsertFills(ctx context.Context, tradeID string, result *domain.SimulationResult) error {
	if len(result.Fills) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_fills (
			trade_id, seq, price, amount, out_amount, slippage_bps
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, f := range result.Fills {
		err = batch.Append(
			tradeID, uint32(i), f.Price,
			f.Amount, f.OutAmount, int32(f.SlippageBps),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTradeID retrieves fills for a trade, ordered by sequence.
func (s *FillStore) GetByTradeID(ctx context.Context, tradeID string) ([]domain.Fill, error) {
	query := `
		SELECT price, amount, out_amount, slippage_bps
		FROM trade_fills
		WHERE trade_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.conn.Query(ctx, query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("query fills by trade id: %w", err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var f domain.Fill
		var slippageBps int32

		if err := rows.Scan(&f.Price, &f.Amount, &f.OutAmount, &slippageBps); err != nil {
			return nil, fmt.Errorf("scan fill row: %w", err)
		}

		f.SlippageBps = int(slippageBps)
		fills = append(fills, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fill rows: %w", err)
	}

	return fills, nil
}
