package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"flavoriz-backend-go/internal/db"
	"flavoriz-backend-go/internal/models"
)

const (
	minSearchLength  = 2
	maxSearchResults = 10
)

type directoryService struct {
	users db.UserRepository
}

// NewDirectoryService creates a DirectoryService over the user profiles.
func NewDirectoryService(users db.UserRepository) DirectoryService {
	if users == nil {
		log.Fatal("UserRepository is not initialized for DirectoryService.")
	}
	return &directoryService{users: users}
}

// SearchUsers matches query case-insensitively against email and display name.
func (s *directoryService) SearchUsers(ctx context.Context, query string) ([]*models.UserProfile, error) {
	term := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(term)) < minSearchLength {
		return nil, fmt.Errorf("%w: got %q", ErrQueryTooShort, query)
	}

	all, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	results := make([]*models.UserProfile, 0, maxSearchResults)
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Email), term) || strings.Contains(strings.ToLower(u.DisplayName), term) {
			results = append(results, u)
			if len(results) == maxSearchResults {
				break
			}
		}
	}
	return results, nil
}
