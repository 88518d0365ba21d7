package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// SealSecret encrypts secret with AES-256-GCM and returns base64(nonce|ciphertext).
// owner is authenticated but not encrypted: a sealed value only opens for the
// same owner, so swapping sealed secrets between rows fails.
func SealSecret(secret string, key, owner []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", errors.Join(ErrSealFailed, err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Join(ErrSealFailed, err)
	}
	return base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, []byte(secret), owner)), nil
}

// OpenSecret reverses SealSecret. Any tampering, a different key or a
// different owner yields ErrOpenFailed.
func OpenSecret(sealed string, key, owner []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", errors.Join(ErrOpenFailed, err)
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.Join(ErrOpenFailed, err)
	}
	n := aead.NonceSize()
	if len(raw) < n+aead.Overhead() {
		return "", errors.Join(ErrOpenFailed, ErrSealedTooShort)
	}
	plain, err := aead.Open(nil, raw[:n], raw[n:], owner)
	if err != nil {
		return "", errors.Join(ErrOpenFailed, err)
	}
	return string(plain), nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// GenerateEncodedEncryptionKey returns a random key in the base64 form read
// from TOTP_ENCRYPTION_KEY.
func GenerateEncodedEncryptionKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// DecodeEncryptionKey parses a key produced by GenerateEncodedEncryptionKey.
func DecodeEncryptionKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrKeyNotSet
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrKeyMalformed, err)
	}
	if len(key) != KeySize {
		return nil, ErrKeyLength
	}
	return key, nil
}
