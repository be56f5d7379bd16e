package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"
	"strings"
)

// recoveryAlphabet avoids the visually ambiguous 0/1/I/O.
const recoveryAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func GenerateRandomToken(size int) (string, error) {
	buffer := make([]byte, size)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GenerateNumericCode returns a random code of the given number of decimal
// digits, left-padded with zeros.
func GenerateNumericCode(digits int) (string, error) {
	var builder strings.Builder
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		builder.WriteByte(byte('0' + n.Int64()))
	}
	return builder.String(), nil
}

// GenerateRecoveryCode returns a human-formatted backup code such as
// "K7MPQ-29XWD".
func GenerateRecoveryCode() (string, error) {
	max := big.NewInt(int64(len(recoveryAlphabet)))
	var builder strings.Builder
	for i := 0; i < 10; i++ {
		if i == 5 {
			builder.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(recoveryAlphabet[n.Int64()])
	}
	return builder.String(), nil
}

// NormalizeRecoveryCode makes user-entered codes comparable regardless of
// case and separator placement.
func NormalizeRecoveryCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "-", "")
}

// NormalizeCode strips whitespace from a numeric one-time code.
func NormalizeCode(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), " ", "")
}
