package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

// RecoveryCodeLength is the number of hex characters in a backup code.
const RecoveryCodeLength = 16

var recoveryRegex = regexp.MustCompile(`^[0-9A-F]{16}$`)

// GenerateRecoveryCodes creates count single-use backup codes, each
// 16 uppercase hex characters (64 bits of entropy).
func GenerateRecoveryCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrRecoveryCodeCount
	}

	codes := make([]string, count)
	buf := make([]byte, RecoveryCodeLength/2)
	for i := range codes {
		if _, err := rand.Read(buf); err != nil {
			return nil, errors.Join(ErrRecoveryGeneration, err)
		}
		codes[i] = strings.ToUpper(hex.EncodeToString(buf))
	}
	return codes, nil
}

// NormalizeRecoveryCode uppercases the code and strips spaces and dashes,
// so "abcd-ef01 2345-6789" and "ABCDEF0123456789" are the same code.
func NormalizeRecoveryCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, code)
}

// IsRecoveryCode reports whether code has the backup code shape after normalization.
func IsRecoveryCode(code string) bool {
	return recoveryRegex.MatchString(NormalizeRecoveryCode(code))
}

// HashRecoveryCode returns the hex SHA-256 of the normalized code. Only hashes are stored.
func HashRecoveryCode(code string) string {
	sum := sha256.Sum256([]byte(NormalizeRecoveryCode(code)))
	return hex.EncodeToString(sum[:])
}

// VerifyRecoveryCode compares code against a stored hash in constant time.
func VerifyRecoveryCode(code, hashed string) bool {
	return subtle.ConstantTimeCompare([]byte(HashRecoveryCode(code)), []byte(hashed)) == 1
}
