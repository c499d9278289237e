package postgres

import (
	"context"
	"fmt"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/storage"
)

// ExitRuleStore implements storage.ExitRuleStore using PostgreSQL.
type ExitRuleStore struct {
	pool *Pool
}

// NewExitRuleStore creates a new ExitRuleStore.
func NewExitRuleStore(pool *Pool) *ExitRuleStore {
	return &ExitRuleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExitRuleStore = (*ExitRuleStore)(nil)

const exitRuleInsertQuery = `
	INSERT INTO exit_rules (
		rule_id, user_id, wallet_id, mint, kind,
		gain_pct, sell_pct, trail_pct, created_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9
	)
`

// Insert adds a single rule. Returns ErrDuplicateKey if rule_id exists.
func (s *ExitRuleStore) Insert(ctx context.Context, r *domain.ExitRule) error {
	_, err := s.pool.Exec(ctx, exitRuleInsertQuery,
		r.RuleID, r.UserID, r.WalletID, r.Mint, r.Kind,
		r.GainPct, r.SellPct, r.TrailPct, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert exit rule: %w", err)
	}
	return nil
}

// InsertBulk adds multiple rules atomically. Fails entire batch on any
// duplicate.
func (s *ExitRuleStore) InsertBulk(ctx context.Context, rules []*domain.ExitRule) error {
	if len(rules) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range rules {
		_, err := tx.Exec(ctx, exitRuleInsertQuery,
			r.RuleID, r.UserID, r.WalletID, r.Mint, r.Kind,
			r.GainPct, r.SellPct, r.TrailPct, r.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert exit rule in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByWalletMint retrieves all rules for a (user, wallet, mint) triple,
// ordered by created_at ASC.
func (s *ExitRuleStore) GetByWalletMint(ctx context.Context, userID, walletID, mint string) ([]*domain.ExitRule, error) {
	query := `
		SELECT
			rule_id, user_id, wallet_id, mint, kind,
			gain_pct, sell_pct, trail_pct, created_at
		FROM exit_rules
		WHERE user_id = $1 AND wallet_id = $2 AND mint = $3
		ORDER BY created_at ASC, rule_id ASC
	`

	rows, err := s.pool.Query(ctx, query, userID, walletID, mint)
	if err != nil {
		return nil, fmt.Errorf("get exit rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.ExitRule
	for rows.Next() {
		var r domain.ExitRule
		err := rows.Scan(
			&r.RuleID, &r.UserID, &r.WalletID, &r.Mint, &r.Kind,
			&r.GainPct, &r.SellPct, &r.TrailPct, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan exit rule row: %w", err)
		}
		rules = append(rules, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exit rule rows: %w", err)
	}

	return rules, nil
}
