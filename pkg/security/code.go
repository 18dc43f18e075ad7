package security

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// redemptionCodeBytes is the entropy behind each place code. Code secrecy is
// the only thing standing between an attacker and arbitrary reward
// redemption, so codes must be unguessable.
const redemptionCodeBytes = 16

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateRedemptionCode returns a fresh opaque redemption code backed by
// 16 bytes of cryptographically secure randomness.
func GenerateRedemptionCode() (string, error) {
	buf := make([]byte, redemptionCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate redemption code: %w", err)
	}
	return strings.ToLower(codeEncoding.EncodeToString(buf)), nil
}
