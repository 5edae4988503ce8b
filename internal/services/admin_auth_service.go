package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/trekops/booking-backend/internal/config"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthService checks the shared admin secret and issues session tokens
type AdminAuthService struct {
	secret     string
	secretHash string
	jwtService *jwt.Service
	audit      *AuditService
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(cfg config.AdminConfig, jwtService *jwt.Service, audit *AuditService) *AdminAuthService {
	return &AdminAuthService{
		secret:     cfg.Secret,
		secretHash: cfg.SecretHash,
		jwtService: jwtService,
		audit:      audit,
	}
}

// AdminSession is the response of a successful secret exchange
type AdminSession struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifySecret reports whether the presented value is the admin secret.
// A configured bcrypt hash takes precedence over the plain secret.
func (s *AdminAuthService) VerifySecret(presented string) bool {
	if presented == "" {
		return false
	}
	if s.secretHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.secretHash), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(s.secret), []byte(presented)) == 1
}

// VerifyToken reports whether the bearer token is a valid admin session
func (s *AdminAuthService) VerifyToken(token string) bool {
	_, err := s.jwtService.ValidateAdminToken(token)
	return err == nil
}

// Login exchanges the shared secret for a short-lived session token
func (s *AdminAuthService) Login(ctx context.Context, presented string, actor Actor) (*AdminSession, error) {
	if !s.VerifySecret(presented) {
		s.audit.LogAdminLogin(ctx, actor, false)
		return nil, models.NewUnauthorized("invalid admin secret")
	}

	token, expiresAt, err := s.jwtService.GenerateAdminToken(actorAdmin)
	if err != nil {
		return nil, models.NewInternal("failed to issue admin session", fmt.Errorf("generate token: %w", err))
	}

	s.audit.LogAdminLogin(ctx, actor, true)
	return &AdminSession{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}
