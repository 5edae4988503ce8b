package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// AdminSecrets is a fresh set of admin credentials
type AdminSecrets struct {
	AdminSecret     string
	AdminSecretHash string
	JWTSecret       string
}

// GenerateAdminSecrets generates the shared admin secret, its bcrypt hash
// and an independent JWT signing secret
func GenerateAdminSecrets() (*AdminSecrets, error) {
	adminSecret, err := GenerateSecret(24)
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin secret: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin secret: %w", err)
	}

	jwtSecret, err := GenerateSecret(32) // 256-bit
	if err != nil {
		return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
	}

	return &AdminSecrets{
		AdminSecret:     adminSecret,
		AdminSecretHash: string(hash),
		JWTSecret:       jwtSecret,
	}, nil
}
