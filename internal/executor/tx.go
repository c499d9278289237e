package executor

import (
	"encoding/base64"
	"fmt"

	"solana-strategy-engine/internal/wallet"
)

const signatureSize = 64

// SignTransaction fills the fee-payer signature slot of an unsigned
// serialized transaction and returns it base64-encoded for submission.
//
// Wire layout: compact-u16 signature count, count*64 signature bytes,
// then the message. The router allocates the slots zero-filled; the fee
// payer always signs slot zero.
func SignTransaction(payload []byte, key *wallet.SigningKey) (string, error) {
	count, offset, err := decodeCompactU16(payload)
	if err != nil {
		return "", fmt.Errorf("parse signature count: %w", err)
	}
	if count == 0 {
		return "", fmt.Errorf("transaction has no signature slots")
	}

	sigEnd := offset + count*signatureSize
	if len(payload) <= sigEnd {
		return "", fmt.Errorf("transaction truncated: %d bytes, need more than %d", len(payload), sigEnd)
	}

	message := payload[sigEnd:]
	signature := key.Sign(message)

	signed := make([]byte, len(payload))
	copy(signed, payload)
	copy(signed[offset:offset+signatureSize], signature)

	return base64.StdEncoding.EncodeToString(signed), nil
}

// decodeCompactU16 reads a compact-u16 length prefix and returns the value
// and the number of bytes consumed.
func decodeCompactU16(data []byte) (int, int, error) {
	value := 0
	shift := 0
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("truncated compact-u16")
		}
		b := data[i]
		value |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			if value > 0xffff {
				return 0, 0, fmt.Errorf("compact-u16 overflow")
			}
			return value, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("compact-u16 longer than 3 bytes")
}
