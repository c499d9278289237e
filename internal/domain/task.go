package domain

// PostTradeTask is one unit of post-trade side-effect work, decoupled from
// the execution hot path. Persisted to disk on enqueue and reloaded at
// process start, so tasks survive a restart (at-least-once delivery).
type PostTradeTask struct {
	TaskID    string            `json:"taskId"`
	Chain     []string          `json:"chain"` // ordered action names: "tp", "trail", "alerts"
	Mint      string            `json:"mint"`
	UserID    string            `json:"userId"`
	WalletID  string            `json:"walletId"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt int64             `json:"createdAt"` // unix millis
}

// Post-trade action names.
const (
	ActionTPLadder     = "tp"
	ActionTrailingStop = "trail"
	ActionAlerts       = "alerts"
)
