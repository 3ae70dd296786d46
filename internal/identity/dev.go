package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DevTokenPrefix prefixes tokens issued by DevProvider: "dev:<uid>".
const DevTokenPrefix = "dev:"

type devAccount struct {
	uid         string
	email       string
	password    string
	displayName string
	revoked     bool
}

// DevProvider is an in-memory Provider for local development and tests.
// It must never be enabled in release mode.
type DevProvider struct {
	mu      sync.RWMutex
	byUID   map[string]*devAccount
	byEmail map[string]*devAccount
}

// NewDevProvider creates an empty DevProvider.
func NewDevProvider() *DevProvider {
	return &DevProvider{
		byUID:   make(map[string]*devAccount),
		byEmail: make(map[string]*devAccount),
	}
}

// VerifyIDToken accepts "dev:<uid>". Unknown uids are accepted too so that
// any developer can impersonate a user without signing up first.
func (p *DevProvider) VerifyIDToken(_ context.Context, idToken string) (*Token, error) {
	uid, ok := strings.CutPrefix(idToken, DevTokenPrefix)
	if !ok || uid == "" {
		return nil, ErrInvalidToken
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	acc, found := p.byUID[uid]
	if !found {
		return &Token{UID: uid}, nil
	}
	if acc.revoked {
		return nil, fmt.Errorf("%w: session revoked", ErrInvalidToken)
	}
	return &Token{UID: acc.uid, Email: acc.email, Name: acc.displayName}, nil
}

func (p *DevProvider) CreateUser(_ context.Context, email, password, displayName string) (*Token, error) {
	key := strings.ToLower(email)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byEmail[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrEmailExists, email)
	}
	acc := &devAccount{
		uid:         uuid.NewString(),
		email:       email,
		password:    password,
		displayName: displayName,
	}
	p.byUID[acc.uid] = acc
	p.byEmail[key] = acc
	return &Token{UID: acc.uid, Email: acc.email, Name: acc.displayName}, nil
}

func (p *DevProvider) SignInWithPassword(_ context.Context, email, password string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.byEmail[strings.ToLower(email)]
	if !ok || acc.password != password {
		return nil, ErrInvalidCredentials
	}
	acc.revoked = false
	return &Session{
		IDToken:      DevTokenPrefix + acc.uid,
		RefreshToken: "dev-refresh-" + acc.uid,
		ExpiresIn:    "3600",
		UID:          acc.uid,
		Email:        acc.email,
		DisplayName:  acc.displayName,
	}, nil
}

func (p *DevProvider) RevokeRefreshTokens(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.byUID[uid]
	if !ok {
		// Impersonated uids have no sessions to revoke.
		return nil
	}
	acc.revoked = true
	return nil
}

func (p *DevProvider) PasswordResetLink(_ context.Context, email string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	acc, ok := p.byEmail[strings.ToLower(email)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	return "http://localhost/reset-password?uid=" + acc.uid, nil
}
