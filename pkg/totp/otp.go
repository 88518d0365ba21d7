package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Digits    = 6
	Period    = 30 // seconds
	Algorithm = "SHA1"

	// DefaultSkew accepts codes from one step before and after the current one.
	DefaultSkew = 1
)

var (
	secretRegex = regexp.MustCompile(`^[A-Z2-7]+=*$`)
	codeRegex   = regexp.MustCompile(`^\d{6}$`)
	encoding    = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// URIParams describes an otpauth:// enrollment URI.
type URIParams struct {
	Secret      string // base32, required
	AccountName string // usually the email, required
	Issuer      string // shown by authenticator apps, required
}

func (p URIParams) validate() error {
	switch {
	case p.Secret == "":
		return ErrMissingSecret
	case !secretRegex.MatchString(p.Secret):
		return ErrInvalidSecret
	case p.AccountName == "":
		return ErrMissingAccountName
	case p.Issuer == "":
		return ErrMissingIssuer
	}
	return nil
}

// GenerateSecretKey returns a new 160-bit base32 secret.
func GenerateSecretKey() (string, error) {
	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrSecretGeneration, err)
	}
	return encoding.EncodeToString(secret), nil
}

// URI builds the Key Uri Format string understood by authenticator apps.
// https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func URI(p URIParams) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}

	label := url.PathEscape(p.Issuer) + ":" + url.PathEscape(p.AccountName)

	query := url.Values{}
	query.Set("secret", p.Secret)
	query.Set("issuer", p.Issuer)
	query.Set("algorithm", Algorithm)
	query.Set("digits", strconv.Itoa(Digits))
	query.Set("period", strconv.Itoa(Period))

	return "otpauth://totp/" + label + "?" + query.Encode(), nil
}

// IsCode reports whether s looks like a 6-digit TOTP code.
func IsCode(s string) bool {
	return codeRegex.MatchString(strings.TrimSpace(s))
}

// ValidateTOTP checks code against the current time with DefaultSkew.
func ValidateTOTP(secret, code string) (bool, error) {
	return ValidateTOTPAt(secret, code, time.Now(), DefaultSkew)
}

// ValidateTOTPAt checks code against the step containing t and skew steps on
// either side. A malformed code is an error; a wrong code is (false, nil).
func ValidateTOTPAt(secret, code string, t time.Time, skew int) (bool, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return false, err
	}

	code = strings.TrimSpace(code)
	if !codeRegex.MatchString(code) {
		return false, ErrInvalidOTP
	}
	if skew < 0 {
		skew = 0
	}

	counter := t.Unix() / Period
	match := 0
	for i := -skew; i <= skew; i++ {
		// Every window is compared so timing does not reveal which one matched.
		match |= subtle.ConstantTimeCompare([]byte(format(GenerateHOTP(key, counter+int64(i)))), []byte(code))
	}
	return match == 1, nil
}

// GenerateTOTP returns the code for the current step.
func GenerateTOTP(secret string) (string, error) {
	return GenerateTOTPAt(secret, time.Now())
}

// GenerateTOTPAt returns the code for the step containing t.
func GenerateTOTPAt(secret string, t time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return format(GenerateHOTP(key, t.Unix()/Period)), nil
}

// GenerateHOTP implements RFC 4226 dynamic truncation for a 6-digit code.
func GenerateHOTP(key []byte, counter int64) int {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return int(code % 1_000_000)
}

// format keeps leading zeros: 42 becomes "000042".
func format(code int) string {
	return fmt.Sprintf("%06d", code)
}

func decodeSecret(secret string) ([]byte, error) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if !secretRegex.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	key, err := encoding.DecodeString(strings.TrimRight(secret, "="))
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return key, nil
}
