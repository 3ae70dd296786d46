package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.uber.org/zap"

	"flavoriz-backend-go/internal/models"
)

// userRepository implements the UserRepository interface on a DocumentStore.
type userRepository struct {
	store  DocumentStore
	logger *zap.Logger
}

// NewUserRepository creates a new UserRepository over store.
func NewUserRepository(store DocumentStore, logger *zap.Logger) UserRepository {
	if store == nil {
		log.Fatal("DocumentStore is not initialized for UserRepository.")
	}
	return &userRepository{store: store, logger: logger}
}

func decodeUser(rec *Record) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := DecodeRecord(rec, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", rec.ID, err)
	}
	user.ID = rec.ID
	if !user.Role.Valid() {
		user.Role = models.RoleUser
	}
	user.CreatedAt = orNow(user.CreatedAt)
	user.UpdatedAt = orNow(user.UpdatedAt)
	return &user, nil
}

// Create adds a new profile. The user.ID (Firebase Auth UID) is used as the document ID.
func (r *userRepository) Create(ctx context.Context, user *models.UserProfile) (*models.UserProfile, error) {
	if user.ID == "" {
		return nil, errors.New("user ID cannot be empty for Create operation")
	}
	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	rec, err := r.store.Create(ctx, UsersCollection, user.ID, map[string]interface{}{
		"email":       user.Email,
		"displayName": user.DisplayName,
		"role":        string(role),
		"createdAt":   ServerTimestamp,
		"updatedAt":   ServerTimestamp,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, fmt.Errorf("user with ID '%s' already exists: %w", user.ID, err)
		}
		return nil, fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return decodeUser(rec)
}

// GetByID retrieves a profile by its ID (Firebase Auth UID).
func (r *userRepository) GetByID(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	rec, err := r.store.Get(ctx, UsersCollection, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
	}
	return decodeUser(rec)
}

// Update writes only the provided profile fields.
func (r *userRepository) Update(ctx context.Context, userID string, upd UserProfileUpdate) error {
	if userID == "" {
		return errors.New("user ID cannot be empty for Update operation")
	}
	fields := map[string]interface{}{"updatedAt": ServerTimestamp}
	if upd.DisplayName != nil {
		fields["displayName"] = *upd.DisplayName
	}
	if upd.Role != nil {
		fields["role"] = string(*upd.Role)
	}
	if _, err := r.store.Update(ctx, UsersCollection, userID, fields); err != nil {
		return fmt.Errorf("failed to update user with ID '%s': %w", userID, err)
	}
	return nil
}

// ListAll returns every stored profile.
func (r *userRepository) ListAll(ctx context.Context) ([]*models.UserProfile, error) {
	recs, err := r.store.ListWhere(ctx, UsersCollection, Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*models.UserProfile, 0, len(recs))
	for _, rec := range recs {
		user, err := decodeUser(rec)
		if err != nil {
			r.logger.Warn("Skipping undecodable user profile", zap.String("userID", rec.ID), zap.Error(err))
			continue
		}
		users = append(users, user)
	}
	return users, nil
}
