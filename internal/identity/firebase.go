package identity

import (
	"context"
	"fmt"
	"log"

	"firebase.google.com/go/v4/auth"
)

// firebaseProvider implements Provider with the Firebase Admin SDK.
type firebaseProvider struct {
	client   *auth.Client
	password *PasswordSignIn
}

// NewFirebaseProvider creates a Provider backed by Firebase Authentication.
func NewFirebaseProvider(client *auth.Client, password *PasswordSignIn) Provider {
	if client == nil {
		log.Fatal("CRITICAL_ERROR: Firebase Auth client is not initialized for the identity provider.")
	}
	return &firebaseProvider{client: client, password: password}
}

// VerifyIDToken checks the token signature and expiry and extracts the standard claims.
func (p *firebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	t := &Token{UID: token.UID}
	// 'email' and 'name' are populated by Firebase when the account has them.
	if email, ok := token.Claims["email"].(string); ok {
		t.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		t.Name = name
	}
	return t, nil
}

func (p *firebaseProvider) CreateUser(ctx context.Context, email, password, displayName string) (*Token, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}
	record, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, fmt.Errorf("%w: %s", ErrEmailExists, email)
		}
		return nil, fmt.Errorf("failed to create account for %s: %w", email, err)
	}
	return &Token{UID: record.UID, Email: record.Email, Name: record.DisplayName}, nil
}

func (p *firebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if p.password == nil {
		return nil, fmt.Errorf("%w: password sign-in is not configured", ErrUnavailable)
	}
	return p.password.SignIn(ctx, email, password)
}

// RevokeRefreshTokens signs the user out of every session.
func (p *firebaseProvider) RevokeRefreshTokens(ctx context.Context, uid string) error {
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, uid)
		}
		return fmt.Errorf("failed to revoke tokens for %s: %w", uid, err)
	}
	return nil
}

func (p *firebaseProvider) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := p.client.PasswordResetLink(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrUserNotFound, email)
		}
		return "", fmt.Errorf("failed to generate password reset link: %w", err)
	}
	return link, nil
}
