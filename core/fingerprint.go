package core

import (
	"encoding/hex"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is a stable hash used as a cache and persistence key for a
// query or segment.
type Fingerprint string

// QueryFingerprint computes a deterministic fingerprint from normalized query
// text and the model identity. Identical queries against the same model
// always produce identical fingerprints.
func QueryFingerprint(text, model string) Fingerprint {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(NormalizeQueryText(text)))
	h.Write([]byte{0})
	h.Write([]byte(model))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// NormalizeQueryText lowercases the text and collapses runs of whitespace so
// that cosmetic differences do not change the fingerprint.
func NormalizeQueryText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
