package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashIdentifier returns a stable pseudonym for personal data such as an
// email address, so failed attempts can be correlated without storing it.
func HashIdentifier(s string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(s))))
	return hex.EncodeToString(sum[:12])
}
