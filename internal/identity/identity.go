// Package identity wraps the credential provider. Production uses Firebase
// Authentication; local development can use the in-memory DevProvider.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken is returned when an ID token cannot be verified.
	ErrInvalidToken = errors.New("invalid or expired authentication token")
	// ErrInvalidCredentials is returned when an email/password pair is rejected.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailExists is returned when signing up with an email that already has an account.
	ErrEmailExists = errors.New("email already registered")
	// ErrUserNotFound is returned when no account matches.
	ErrUserNotFound = errors.New("account not found")
	// ErrUnavailable is returned when the provider cannot perform an operation with the current configuration.
	ErrUnavailable = errors.New("identity provider unavailable")
)

// Token is a verified identity.
type Token struct {
	UID   string
	Email string
	Name  string
}

// Session is returned by a successful password sign-in.
type Session struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
}

// Provider is the credential backend.
type Provider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
	CreateUser(ctx context.Context, email, password, displayName string) (*Token, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	PasswordResetLink(ctx context.Context, email string) (string, error)
}
