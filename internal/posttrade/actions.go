package posttrade

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/idhash"
	"solana-strategy-engine/internal/storage"
)

// Metadata keys written by the trade executor and consumed by actions.
// Tasks are self-contained so they stay executable after a restart.
const (
	MetaTPLadder        = "tpLadder"        // JSON-encoded []domain.TPLevel
	MetaTrailingStopPct = "trailingStopPct" // decimal string
)

// Notifier delivers alerts to the (out-of-scope) notification layer.
type Notifier interface {
	Notify(ctx context.Context, task *domain.PostTradeTask) error
}

// TPLadderAction inserts one exit rule per take-profit ladder rung.
type TPLadderAction struct {
	rules storage.ExitRuleStore
	now   func() time.Time
}

// NewTPLadderAction creates the "tp" action.
func NewTPLadderAction(rules storage.ExitRuleStore) *TPLadderAction {
	return &TPLadderAction{rules: rules, now: time.Now}
}

// Execute parses the ladder from task metadata and inserts the rungs as
// one atomic batch.
func (a *TPLadderAction) Execute(ctx context.Context, task *domain.PostTradeTask) error {
	raw, ok := task.Metadata[MetaTPLadder]
	if !ok || raw == "" {
		return fmt.Errorf("task %s carries no ladder", task.TaskID)
	}

	var ladder []domain.TPLevel
	if err := json.Unmarshal([]byte(raw), &ladder); err != nil {
		return fmt.Errorf("parse ladder: %w", err)
	}
	if len(ladder) == 0 {
		return fmt.Errorf("task %s carries an empty ladder", task.TaskID)
	}

	createdAt := a.now().UnixMilli()
	rules := make([]*domain.ExitRule, len(ladder))
	for i, level := range ladder {
		rules[i] = &domain.ExitRule{
			RuleID:    idhash.ComputeRuleID(task.UserID, task.WalletID, task.Mint, domain.RuleKindTPLadder, i, createdAt),
			UserID:    task.UserID,
			WalletID:  task.WalletID,
			Mint:      task.Mint,
			Kind:      domain.RuleKindTPLadder,
			GainPct:   level.GainPct,
			SellPct:   level.SellPct,
			CreatedAt: createdAt,
		}
	}

	return a.rules.InsertBulk(ctx, rules)
}

// TrailingStopAction inserts a single trailing-stop exit rule.
type TrailingStopAction struct {
	rules storage.ExitRuleStore
	now   func() time.Time
}

// NewTrailingStopAction creates the "trail" action.
func NewTrailingStopAction(rules storage.ExitRuleStore) *TrailingStopAction {
	return &TrailingStopAction{rules: rules, now: time.Now}
}

// Execute parses the trail percentage from task metadata and inserts the
// rule.
func (a *TrailingStopAction) Execute(ctx context.Context, task *domain.PostTradeTask) error {
	raw, ok := task.Metadata[MetaTrailingStopPct]
	if !ok || raw == "" {
		return fmt.Errorf("task %s carries no trailing stop", task.TaskID)
	}

	pct, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse trailing stop: %w", err)
	}
	if pct <= 0 {
		return fmt.Errorf("trailing stop must be positive, got %v", pct)
	}

	createdAt := a.now().UnixMilli()
	return a.rules.Insert(ctx, &domain.ExitRule{
		RuleID:    idhash.ComputeRuleID(task.UserID, task.WalletID, task.Mint, domain.RuleKindTrailingStop, 0, createdAt),
		UserID:    task.UserID,
		WalletID:  task.WalletID,
		Mint:      task.Mint,
		Kind:      domain.RuleKindTrailingStop,
		TrailPct:  pct,
		CreatedAt: createdAt,
	})
}

// AlertsAction forwards the task to a notifier.
type AlertsAction struct {
	notifier Notifier
}

// NewAlertsAction creates the "alerts" action.
func NewAlertsAction(notifier Notifier) *AlertsAction {
	return &AlertsAction{notifier: notifier}
}

// Execute sends the notification.
func (a *AlertsAction) Execute(ctx context.Context, task *domain.PostTradeTask) error {
	if a.notifier == nil {
		return nil
	}
	return a.notifier.Notify(ctx, task)
}

// DefaultActions wires the standard action set.
func DefaultActions(rules storage.ExitRuleStore, notifier Notifier) map[string]Action {
	return map[string]Action{
		domain.ActionTPLadder:     NewTPLadderAction(rules),
		domain.ActionTrailingStop: NewTrailingStopAction(rules),
		domain.ActionAlerts:       NewAlertsAction(notifier),
	}
}
