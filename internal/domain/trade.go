package domain

// TradeRecord is the persisted result of one successful execution,
// created after broadcast enrichment.
type TradeRecord struct {
	TradeID    string // deterministic hash
	InstanceID string
	UserID     string
	WalletID   string
	Mint       string

	Signature    string
	Shape        string // execution shape tag at time of trade
	Paper        bool   // produced by the paper engine
	InAmount     uint64
	OutAmount    uint64
	FillPrice    float64
	SlippageBps  float64 // effective slippage, basis points
	FeesLamports uint64
	TipLamports  uint64
	Attempts     int

	ExecutedAt int64 // unix millis
}

// Exit rule kinds written by post-trade actions.
const (
	RuleKindTPLadder     = "TP_LADDER"
	RuleKindTrailingStop = "TRAILING_STOP"
)

// ExitRule is one exit rule row: a take-profit ladder rung or a trailing
// stop. Inserted by the post-trade queue, consumed by the (out-of-scope)
// exit monitor.
type ExitRule struct {
	RuleID   string
	UserID   string
	WalletID string
	Mint     string
	Kind     string // RuleKindTPLadder | RuleKindTrailingStop

	// TP_LADDER
	GainPct float64
	SellPct float64

	// TRAILING_STOP
	TrailPct float64

	CreatedAt int64 // unix millis
}

// ExecutionAttempt records one signing+broadcast attempt.
// Not persisted beyond the broadcast call unless enrichment succeeds.
type ExecutionAttempt struct {
	AttemptID        string
	Number           int // 1-based
	ComputeUnitPrice uint64
	TipLamports      uint64
	Signature        string
	FailureReason    string
}
