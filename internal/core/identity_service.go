package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"flavoriz-backend-go/internal/db"
	"flavoriz-backend-go/internal/identity"
	"flavoriz-backend-go/internal/metrics"
	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/internal/policy"
	"flavoriz-backend-go/pkg/cache"
	"flavoriz-backend-go/pkg/mailer"
)

const profileCachePrefix = "profile:"

// IdentityServiceConfig wires the identity service.
type IdentityServiceConfig struct {
	Provider   identity.Provider
	Users      db.UserRepository
	Cache      cache.Cache
	ProfileTTL time.Duration
	// Mailer delivers password reset links. Optional.
	Mailer mailer.Mailer
	Logger *zap.Logger
}

type identityService struct {
	provider   identity.Provider
	users      db.UserRepository
	cache      cache.Cache
	profileTTL time.Duration
	mailer     mailer.Mailer
	logger     *zap.Logger
	validate   *validator.Validate
	lookups    singleflight.Group
}

// NewIdentityService creates a new IdentityService instance.
func NewIdentityService(cfg IdentityServiceConfig) IdentityService {
	if cfg.Provider == nil || cfg.Users == nil {
		log.Fatal("IdentityService requires an identity provider and a user repository.")
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemoryCache()
	}
	if cfg.ProfileTTL <= 0 {
		cfg.ProfileTTL = 5 * time.Minute
	}
	return &identityService{
		provider:   cfg.Provider,
		users:      cfg.Users,
		cache:      cfg.Cache,
		profileTTL: cfg.ProfileTTL,
		mailer:     cfg.Mailer,
		logger:     cfg.Logger,
		validate:   validator.New(),
	}
}

// Resolve verifies idToken and builds the actor. A missing or unreadable
// profile resolves to role user.
func (s *identityService) Resolve(ctx context.Context, idToken string) (policy.Actor, error) {
	if idToken == "" {
		return policy.Anonymous(), fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	token, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		return policy.Anonymous(), fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	actor := policy.Actor{UserID: token.UID, Email: token.Email, DisplayName: token.Name, Role: models.RoleUser}
	profile, err := s.profile(ctx, token.UID)
	switch {
	case err == nil:
		actor.Role = profile.Role
		if actor.Email == "" {
			actor.Email = profile.Email
		}
		if profile.DisplayName != "" {
			actor.DisplayName = profile.DisplayName
		}
	case errors.Is(err, db.ErrNotFound):
	default:
		s.logger.Warn("Failed to load user profile, resolving with role user",
			zap.String("userID", token.UID), zap.Error(err))
	}
	return actor, nil
}

// profile reads a profile through the cache. Concurrent misses for the same
// uid share one store read.
func (s *identityService) profile(ctx context.Context, uid string) (*models.UserProfile, error) {
	key := profileCachePrefix + uid
	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		var p models.UserProfile
		if jsonErr := json.Unmarshal([]byte(cached), &p); jsonErr == nil {
			metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
			return &p, nil
		}
		s.logger.Warn("Discarding unreadable cached profile", zap.String("userID", uid))
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("Profile cache unavailable", zap.String("userID", uid), zap.Error(err))
	}
	metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := s.lookups.Do(uid, func() (interface{}, error) {
		p, err := s.users.GetByID(ctx, uid)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(p); err == nil {
			if err := s.cache.Set(ctx, key, string(raw), s.profileTTL); err != nil {
				s.logger.Warn("Failed to cache profile", zap.String("userID", uid), zap.Error(err))
			}
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.UserProfile), nil
}

func (s *identityService) invalidate(ctx context.Context, uid string) {
	if err := s.cache.Delete(ctx, profileCachePrefix+uid); err != nil {
		s.logger.Warn("Failed to invalidate cached profile", zap.String("userID", uid), zap.Error(err))
	}
}

// SignUp creates the credential and a profile with role user, then signs in.
// The session is nil when password sign-in is not available.
func (s *identityService) SignUp(ctx context.Context, req models.SignUpRequest) (*identity.Session, *models.UserProfile, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	token, err := s.provider.CreateUser(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, identity.ErrEmailExists) {
			return nil, nil, fmt.Errorf("%w: %s", ErrEmailTaken, req.Email)
		}
		return nil, nil, fmt.Errorf("failed to create account: %w", err)
	}

	profile, err := s.users.Create(ctx, &models.UserProfile{
		ID:          token.UID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        models.RoleUser,
	})
	if err != nil {
		if !errors.Is(err, db.ErrAlreadyExists) {
			return nil, nil, fmt.Errorf("failed to create profile for '%s': %w", token.UID, err)
		}
		if profile, err = s.users.GetByID(ctx, token.UID); err != nil {
			return nil, nil, fmt.Errorf("failed to read existing profile for '%s': %w", token.UID, err)
		}
	}
	s.logger.Info("User signed up", zap.String("userID", token.UID))

	session, err := s.provider.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Warn("Account created but automatic sign-in failed", zap.String("userID", token.UID), zap.Error(err))
		return nil, profile, nil
	}
	return session, profile, nil
}

func (s *identityService) SignIn(ctx context.Context, req models.SignInRequest) (*identity.Session, error) {
	session, err := s.provider.SignInWithPassword(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	return session, nil
}

// SignOut revokes every refresh token of the actor.
func (s *identityService) SignOut(ctx context.Context, actor policy.Actor) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: sign out", ErrUnauthenticated)
	}
	if err := s.provider.RevokeRefreshTokens(ctx, actor.UserID); err != nil {
		return fmt.Errorf("failed to sign out '%s': %w", actor.UserID, err)
	}
	s.invalidate(ctx, actor.UserID)
	return nil
}

// RequestPasswordReset mails a reset link. Unknown emails succeed silently.
func (s *identityService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	link, err := s.provider.PasswordResetLink(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to generate password reset link: %w", err)
	}
	if s.mailer == nil {
		return nil
	}

	err = s.mailer.Send(ctx, mailer.Message{
		To:      email,
		Subject: "Reset your Flavoriz password",
		Body: fmt.Sprintf("<p>We received a request to reset your password.</p><p><a href=\"%s\">Choose a new password</a></p>",
			html.EscapeString(link)),
	})
	if err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

// Initialize is GetOrCreate for the actor's own profile.
func (s *identityService) Initialize(ctx context.Context, actor policy.Actor) (*models.UserProfile, bool, error) {
	if !actor.Authenticated() {
		return nil, false, fmt.Errorf("%w: initialize profile", ErrUnauthenticated)
	}

	profile, err := s.users.GetByID(ctx, actor.UserID)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to get user by ID '%s': %w", actor.UserID, err)
	}

	profile, err = s.users.Create(ctx, &models.UserProfile{
		ID:          actor.UserID,
		Email:       actor.Email,
		DisplayName: actor.DisplayName,
		Role:        models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			// Created by a concurrent request.
			profile, err = s.users.GetByID(ctx, actor.UserID)
			if err != nil {
				return nil, false, fmt.Errorf("failed to get user by ID '%s': %w", actor.UserID, err)
			}
			return profile, false, nil
		}
		return nil, false, fmt.Errorf("failed to create user (id: %s) after not found: %w", actor.UserID, err)
	}
	s.invalidate(ctx, actor.UserID)
	return profile, true, nil
}

// GetProfile returns userID's profile, or the actor's own when userID is empty.
func (s *identityService) GetProfile(ctx context.Context, actor policy.Actor, userID string) (*models.UserProfile, error) {
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%w: get profile", ErrUnauthenticated)
	}
	if userID == "" {
		userID = actor.UserID
	}
	profile, err := s.profile(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s': %w", userID, err)
	}
	return profile, nil
}

// UpdateProfile changes the display name. Users edit their own profile; admins may edit any.
func (s *identityService) UpdateProfile(ctx context.Context, actor policy.Actor, userID string, req models.UpdateProfileRequest) (*models.UserProfile, error) {
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%w: update profile", ErrUnauthenticated)
	}
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !policy.Allowed(actor, nil, policy.ActionManageUsers) {
		return nil, fmt.Errorf("%w: cannot edit another user's profile", ErrForbidden)
	}
	if req.DisplayName == nil {
		return nil, fmt.Errorf("%w: displayName is required", ErrInvalidInput)
	}
	name := strings.TrimSpace(*req.DisplayName)
	req.DisplayName = &name
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return s.updateUser(ctx, userID, db.UserProfileUpdate{DisplayName: &name})
}

// UpdateRole changes userID's role. Requires users.manage.
func (s *identityService) UpdateRole(ctx context.Context, actor policy.Actor, userID string, role models.Role) (*models.UserProfile, error) {
	if err := policy.Authorize(actor, nil, policy.ActionManageUsers); err != nil {
		return nil, fromPolicy(err)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	profile, err := s.updateUser(ctx, userID, db.UserProfileUpdate{Role: &role})
	if err != nil {
		return nil, err
	}
	s.logger.Info("User role changed",
		zap.String("adminID", actor.UserID), zap.String("userID", userID), zap.String("role", string(role)))
	return profile, nil
}

func (s *identityService) updateUser(ctx context.Context, userID string, upd db.UserProfileUpdate) (*models.UserProfile, error) {
	if err := s.users.Update(ctx, userID, upd); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to update user '%s': %w", userID, err)
	}
	s.invalidate(ctx, userID)

	profile, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user '%s': %w", userID, err)
	}
	return profile, nil
}

// Permissions lists the actor's capabilities. Anonymous actors have none.
func (s *identityService) Permissions(actor policy.Actor) []policy.Permission {
	if !actor.Authenticated() {
		return []policy.Permission{}
	}
	return policy.Permissions(actor.Role)
}
