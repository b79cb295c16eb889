// AngelaMos | 2026
// tokens.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func randomBytes(n int) ([]byte, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return raw, nil
}

func GenerateSecureToken(length int) (string, error) {
	raw, err := randomBytes(length)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

func GenerateRefreshToken() (string, error) {
	return GenerateSecureToken(32)
}

// HashToken is the lookup key for refresh tokens and revoked access tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

const backupCodeCost = 10

// GenerateBackupCode returns a code in the form xxxxx-xxxxx (lowercase hex).
func GenerateBackupCode() (string, error) {
	raw, err := randomBytes(5)
	if err != nil {
		return "", err
	}
	encoded := hex.EncodeToString(raw)
	return encoded[:5] + "-" + encoded[5:], nil
}

func NormalizeBackupCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) == 10 && !strings.Contains(code, "-") {
		code = code[:5] + "-" + code[5:]
	}
	return code
}

func HashBackupCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(NormalizeBackupCode(code)), backupCodeCost)
	if err != nil {
		return "", fmt.Errorf("hash backup code: %w", err)
	}
	return string(hash), nil
}

func VerifyBackupCode(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(NormalizeBackupCode(code))) == nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a random uppercase code without ambiguous
// characters. The alphabet has 32 symbols, so the modulo is unbiased.
func GenerateCode(length int) (string, error) {
	raw, err := randomBytes(length)
	if err != nil {
		return "", err
	}
	for i, b := range raw {
		raw[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(raw), nil
}
