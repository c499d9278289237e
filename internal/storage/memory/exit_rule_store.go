package memory

import (
	"context"
	"sort"
	"sync"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/storage"
)

// ExitRuleStore is an in-memory implementation of storage.ExitRuleStore.
type ExitRuleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ExitRule // keyed by rule_id
}

// NewExitRuleStore creates a new in-memory exit rule store.
func NewExitRuleStore() *ExitRuleStore {
	return &ExitRuleStore{data: make(map[string]*domain.ExitRule)}
}

// Insert adds a single rule. Returns ErrDuplicateKey if rule_id exists.
func (s *ExitRuleStore) Insert(_ context.Context, r *domain.ExitRule) error {
	if r == nil || r.RuleID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(r)
}

// InsertBulk adds multiple rules atomically. Fails entire batch on any
// duplicate.
func (s *ExitRuleStore) InsertBulk(_ context.Context, rules []*domain.ExitRule) error {
	if len(rules) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r == nil || r.RuleID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.RuleID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.RuleID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.RuleID] = struct{}{}
	}

	for _, r := range rules {
		cp := *r
		s.data[r.RuleID] = &cp
	}
	return nil
}

// GetByWalletMint retrieves all rules for a (user, wallet, mint) triple,
// ordered by created_at ASC.
func (s *ExitRuleStore) GetByWalletMint(_ context.Context, userID, walletID, mint string) ([]*domain.ExitRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExitRule
	for _, r := range s.data {
		if r.UserID == userID && r.WalletID == walletID && r.Mint == mint {
			cp := *r
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].RuleID < result[j].RuleID
	})

	return result, nil
}

func (s *ExitRuleStore) insertLocked(r *domain.ExitRule) error {
	if _, exists := s.data[r.RuleID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *r
	s.data[r.RuleID] = &cp
	return nil
}

var _ storage.ExitRuleStore = (*ExitRuleStore)(nil)
