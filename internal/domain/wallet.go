package domain

// Wallet secret schemes.
const (
	// SecretSchemeEnvelope wraps the signing key with a per-user
	// key-encryption key that must be armed in memory before use.
	SecretSchemeEnvelope = "envelope"
	// SecretSchemeLegacy is the directly-decryptable form.
	SecretSchemeLegacy = "legacy"
)

// WalletRecord is the stored signing credential for one (user, wallet)
// pair. Ciphertext only; plaintext key material never touches storage.
type WalletRecord struct {
	UserID    string
	WalletID  string
	Scheme    string // SecretSchemeEnvelope | SecretSchemeLegacy
	Cipher    []byte // encrypted secret
	Nonce     []byte
	PublicKey string // base58, informational
	Protected bool
	CreatedAt int64 // unix millis
}
