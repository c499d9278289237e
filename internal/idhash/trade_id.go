package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(instance_id|mint|signature|executed_at)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	instanceID string,
	mint string,
	signature string,
	executedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		instanceID,
		mint,
		signature,
		executedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRuleID computes a deterministic exit-rule ID using SHA256.
// Formula: SHA256(user_id|wallet_id|mint|kind|index|created_at)
// The index disambiguates ladder rungs created in the same batch.
func ComputeRuleID(
	userID string,
	walletID string,
	mint string,
	kind string,
	index int,
	createdAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		userID,
		walletID,
		mint,
		kind,
		index,
		createdAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
