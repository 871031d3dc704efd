package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/profile"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrWeakPassword = errors.New("weak password")
)

const defaultAccessTokenTTL = time.Hour

type Service struct {
	secret    string
	ttl       time.Duration
	profiles  ProfileStore
	blacklist Blacklist
}

func NewService(secret string, ttl time.Duration, profiles ProfileStore, blacklist Blacklist) *Service {
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	return &Service{
		secret:    secret,
		ttl:       ttl,
		profiles:  profiles,
		blacklist: blacklist,
	}
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"`
	Profile     profile.Profile `json:"user"`
}

// Register creates a student account.
func (s *Service) Register(ctx context.Context, name, email, password string) (profile.Profile, error) {
	if err := crypto.ValidatePasswordStrength(password); err != nil {
		return profile.Profile{}, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return profile.Profile{}, err
	}
	return s.profiles.Register(ctx, name, email, hash)
}

// Login checks the credentials and issues an access token carrying the profile's role.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return Token{}, ErrUnauthorized
		}
		return Token{}, err
	}
	if !crypto.VerifyPassword(p.PasswordHash, password) {
		return Token{}, ErrUnauthorized
	}

	accessToken, _, err := crypto.GenerateToken(s.secret, p.ID, string(p.Role), s.ttl)
	if err != nil {
		return Token{}, err
	}
	return Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.ttl.Seconds()),
		Profile:     p,
	}, nil
}

// Logout revokes token until it expires.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := crypto.ParseToken(s.secret, token)
	if err != nil {
		return ErrUnauthorized
	}

	expiresAt := time.Now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.blacklist.AddToken(ctx, claims.ID, claims.Sub, expiresAt)
}

// PurgeRevoked removes blacklist entries whose tokens have expired.
func (s *Service) PurgeRevoked(ctx context.Context) (int, error) {
	return s.blacklist.CleanupExpired(ctx)
}
