package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flavoriz-backend-go/internal/models"
)

func TestSearchUsers(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	repos.seedUser(t, "u1", "ana.souza@example.com", "Ana Souza", models.RoleUser)
	repos.seedUser(t, "u2", "bruno@example.com", "Bruno", models.RoleUser)
	repos.seedUser(t, "u3", "chef@flavoriz.app", "ANAstasia", models.RoleAdmin)
	svc := NewDirectoryService(repos.users)

	t.Run("TooShort", func(t *testing.T) {
		for _, q := range []string{"", "a", "  b  "} {
			_, err := svc.SearchUsers(ctx, q)
			assert.ErrorIs(t, err, ErrQueryTooShort, q)
		}
	})

	t.Run("CaseInsensitiveOverEmailAndName", func(t *testing.T) {
		got, err := svc.SearchUsers(ctx, " AnA ")
		require.NoError(t, err)
		ids := []string{}
		for _, u := range got {
			ids = append(ids, u.ID)
		}
		assert.ElementsMatch(t, []string{"u1", "u3"}, ids)
	})

	t.Run("EmailDomain", func(t *testing.T) {
		got, err := svc.SearchUsers(ctx, "flavoriz.app")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "u3", got[0].ID)
	})

	t.Run("NoMatch", func(t *testing.T) {
		got, err := svc.SearchUsers(ctx, "zz")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSearchUsers_CappedAtTen(t *testing.T) {
	repos := newTestRepos(t)
	for i := 0; i < 15; i++ {
		repos.seedUser(t, fmt.Sprintf("cook%02d", i), fmt.Sprintf("cook%02d@example.com", i), "", models.RoleUser)
	}

	got, err := NewDirectoryService(repos.users).SearchUsers(context.Background(), "cook")
	require.NoError(t, err)
	assert.Len(t, got, maxSearchResults)
}
