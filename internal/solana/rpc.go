package solana

import "context"

// Endpoint defines the node RPC surface needed to broadcast a trade.
type Endpoint interface {
	// URL returns the endpoint address, used as a metrics label.
	URL() string

	// GetLatestBlockhash retrieves the most recent blockhash.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction submits a base64-encoded signed transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// Blockhash is a recent blockhash with its expiry height.
type Blockhash struct {
	Hash                 string
	LastValidBlockHeight uint64
}

// BroadcastResult is the outcome of a successful quorum broadcast.
type BroadcastResult struct {
	// Signature is the transaction signature from the acknowledgement
	// that settled first.
	Signature string
	// Endpoint is the URL of the endpoint that produced Signature.
	Endpoint string
	// Acks is the number of endpoints that acknowledged the submission.
	Acks int
}
