package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"time"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/secretbox"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/observability"
	"solana-strategy-engine/internal/storage"
)

// SigningKey is a resolved ed25519 signing credential. Call Wipe as soon
// as the signing operation completes.
type SigningKey struct {
	priv      ed25519.PrivateKey
	PublicKey string // base58
}

// Sign signs msg with the resolved key.
func (k *SigningKey) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// Wipe zeroes the private key material.
func (k *SigningKey) Wipe() {
	wipe(k.priv)
	k.priv = nil
}

// Resolver resolves signing keys from stored wallet records.
type Resolver struct {
	store        storage.WalletStore
	session      *Session
	legacySecret []byte // process-level secret for legacy records
}

// NewResolver creates a resolver. legacySecret is required only when
// legacy directly-decryptable records exist.
func NewResolver(store storage.WalletStore, session *Session, legacySecret []byte) *Resolver {
	return &Resolver{
		store:        store,
		session:      session,
		legacySecret: legacySecret,
	}
}

// Resolve returns the signing key for the (user, wallet) pair.
//
// Envelope records require an armed session key and fail with
// domain.ErrAutomationNotArmed when absent, regardless of the record's
// protected flag: an envelope cannot be opened without its key-encryption
// key. All decryption binds an authenticated-context tag derived from
// (userID, walletID) so ciphertext cannot be replayed across accounts.
func (r *Resolver) Resolve(ctx context.Context, userID, walletID string) (*SigningKey, error) {
	start := time.Now()
	defer func() {
		observability.RecordResolverLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	record, err := r.store.GetByUserWallet(ctx, userID, walletID)
	if err != nil {
		return nil, fmt.Errorf("lookup wallet %s/%s: %w", userID, walletID, err)
	}

	switch record.Scheme {
	case domain.SecretSchemeEnvelope:
		return r.openEnvelope(record)
	case domain.SecretSchemeLegacy:
		return r.openLegacy(record)
	default:
		return nil, fmt.Errorf("wallet %s/%s: unknown secret scheme %q", userID, walletID, record.Scheme)
	}
}

// openEnvelope decrypts an envelope-wrapped secret using the armed
// session key.
func (r *Resolver) openEnvelope(record *domain.WalletRecord) (*SigningKey, error) {
	kek := r.session.get(record.UserID, record.WalletID)
	if kek == nil {
		return nil, domain.ErrAutomationNotArmed
	}
	defer wipe(kek)
	observability.RecordResolverCacheHit()

	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, fmt.Errorf("init envelope cipher: %w", err)
	}
	if len(record.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("envelope nonce must be %d bytes, got %d", aead.NonceSize(), len(record.Nonce))
	}

	secret, err := aead.Open(nil, record.Nonce, record.Cipher, contextTag(record.UserID, record.WalletID))
	if err != nil {
		return nil, fmt.Errorf("open envelope: %w", err)
	}
	defer wipe(secret)

	return newSigningKey(secret)
}

// openLegacy decrypts a directly-decryptable secret. The box key is
// derived from the process legacy secret and the account context, so the
// same context binding holds for legacy ciphertext.
func (r *Resolver) openLegacy(record *domain.WalletRecord) (*SigningKey, error) {
	if len(r.legacySecret) == 0 {
		return nil, fmt.Errorf("legacy wallet %s/%s: no legacy secret configured", record.UserID, record.WalletID)
	}
	if len(record.Nonce) != 24 {
		return nil, fmt.Errorf("legacy nonce must be 24 bytes, got %d", len(record.Nonce))
	}

	var key [32]byte
	h := sha256.New()
	h.Write(r.legacySecret)
	h.Write(contextTag(record.UserID, record.WalletID))
	copy(key[:], h.Sum(nil))
	defer wipe(key[:])

	var nonce [24]byte
	copy(nonce[:], record.Nonce)

	encoded, ok := secretbox.Open(nil, record.Cipher, &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("open legacy secret for %s/%s", record.UserID, record.WalletID)
	}
	defer wipe(encoded)

	// Legacy records store the key base58-encoded.
	secret, err := base58.Decode(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode legacy secret: %w", err)
	}
	defer wipe(secret)

	return newSigningKey(secret)
}

// newSigningKey builds a SigningKey from a 64-byte private key or a
// 32-byte seed, validating that the public key is a point on the curve.
func newSigningKey(secret []byte) (*SigningKey, error) {
	var priv ed25519.PrivateKey
	switch len(secret) {
	case ed25519.PrivateKeySize:
		priv = make(ed25519.PrivateKey, ed25519.PrivateKeySize)
		copy(priv, secret)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(secret)
	default:
		return nil, fmt.Errorf("secret must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(secret))
	}

	pub := priv.Public().(ed25519.PublicKey)
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		wipe(priv)
		return nil, fmt.Errorf("public key not on curve: %w", err)
	}

	return &SigningKey{
		priv:      priv,
		PublicKey: base58.Encode(pub),
	}, nil
}

// contextTag derives the authenticated-context tag for a (user, wallet)
// pair.
func contextTag(userID, walletID string) []byte {
	sum := sha256.Sum256([]byte(userID + "|" + walletID))
	return sum[:]
}
