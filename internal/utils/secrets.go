package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// paymentCodeBytes is the entropy of a QR payment code (192 bits)
const paymentCodeBytes = 24

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateServiceSecrets generates the JWT signing secret and the QR hash key
func GenerateServiceSecrets() (jwtSecret, qrHashKey string, err error) {
	jwtSecret, err = GenerateSecret(32) // 256-bit
	if err != nil {
		return "", "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	// hex doubles the length; 32 bytes stays within the 64-byte BLAKE2b key limit
	qrHashKey, err = GenerateSecret(32)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate QR hash key: %w", err)
	}

	return jwtSecret, qrHashKey, nil
}

// GeneratePaymentCode returns an opaque URL-safe code to embed in a payment QR
func GeneratePaymentCode() (string, error) {
	b := make([]byte, paymentCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate payment code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashPaymentCode returns the keyed BLAKE2b-256 digest of a code, hex encoded.
// Only the digest is stored so a database leak does not expose payable codes.
func HashPaymentCode(key []byte, code string) (string, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("failed to init payment code hash: %w", err)
	}
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil)), nil
}
