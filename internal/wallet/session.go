// Package wallet resolves signing keys for (user, wallet) pairs.
// Envelope-encrypted secrets require an explicitly armed in-memory session
// key; decrypted key material lives only for the duration of one signing
// operation and is wiped afterward.
package wallet

import (
	"fmt"
	"sync"
)

// KEKSize is the required key-encryption-key length in bytes.
const KEKSize = 32

// Session holds armed key-encryption keys in memory, keyed by
// (user, wallet). It may be read concurrently by multiple instances
// belonging to the same user.
type Session struct {
	mu   sync.RWMutex
	keks map[string][]byte
}

// NewSession creates an empty session store.
func NewSession() *Session {
	return &Session{keks: make(map[string][]byte)}
}

// Arm stores a key-encryption key for the (user, wallet) pair. The key is
// copied; the caller keeps ownership of kek.
func (s *Session) Arm(userID, walletID string, kek []byte) error {
	if len(kek) != KEKSize {
		return fmt.Errorf("key-encryption key must be %d bytes, got %d", KEKSize, len(kek))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, KEKSize)
	copy(stored, kek)
	s.keks[sessionKey(userID, walletID)] = stored
	return nil
}

// Disarm wipes and removes the key for the (user, wallet) pair.
func (s *Session) Disarm(userID, walletID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(userID, walletID)
	if kek, ok := s.keks[key]; ok {
		wipe(kek)
		delete(s.keks, key)
	}
}

// Armed reports whether a key is armed for the (user, wallet) pair.
func (s *Session) Armed(userID, walletID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keks[sessionKey(userID, walletID)]
	return ok
}

// get returns a copy of the armed key, or nil.
func (s *Session) get(userID, walletID string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kek, ok := s.keks[sessionKey(userID, walletID)]
	if !ok {
		return nil
	}
	out := make([]byte, len(kek))
	copy(out, kek)
	return out
}

func sessionKey(userID, walletID string) string {
	return userID + "|" + walletID
}

// wipe zeroes a byte slice in place.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
