// Package fingerprint derives stable content hashes for cache addressing.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// payload is the canonical form hashed for a rewrite request. Field order
// is fixed by the struct, so equal inputs always marshal to identical
// bytes.
type payload struct {
	RawInput       string `json:"rawInput"`
	Tone           string `json:"tone"`
	VariationCount int    `json:"variationCount"`
}

// Rewrite computes the fingerprint for a rewrite request: the hex-encoded
// SHA-256 of the canonical JSON encoding of (rawInput, tone,
// variationCount).
//
// The fingerprint is a cache address, never a billing identity. Two users
// submitting identical parameters intentionally share a cache entry.
func Rewrite(rawInput, tone string, variationCount int) string {
	data, err := json.Marshal(payload{
		RawInput:       rawInput,
		Tone:           tone,
		VariationCount: variationCount,
	})
	if err != nil {
		// Marshaling a struct of strings and an int cannot fail.
		panic(err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
