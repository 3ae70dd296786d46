package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/db"
	"flavoriz-backend-go/internal/identity"
	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/internal/policy"
	"flavoriz-backend-go/pkg/cache"
)

type identityFixture struct {
	*testRepos
	provider *identity.DevProvider
	cache    *cache.MemoryCache
	mail     *recordingMailer
	svc      IdentityService
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	f := &identityFixture{
		testRepos: newTestRepos(t),
		provider:  identity.NewDevProvider(),
		cache:     cache.NewMemoryCache(),
		mail:      &recordingMailer{},
	}
	f.svc = NewIdentityService(IdentityServiceConfig{
		Provider:   f.provider,
		Users:      f.users,
		Cache:      f.cache,
		ProfileTTL: time.Minute,
		Mailer:     f.mail,
		Logger:     zap.NewNop(),
	})
	return f
}

func TestSignUpAndResolve(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)

	session, profile, err := f.svc.SignUp(ctx, models.SignUpRequest{Email: "ana@example.com", Password: "secret1", DisplayName: "Ana"})
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.RoleUser, profile.Role)
	assert.Equal(t, profile.ID, session.UID)

	actor, err := f.svc.Resolve(ctx, session.IDToken)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, actor.UserID)
	assert.Equal(t, "ana@example.com", actor.Email)
	assert.Equal(t, "Ana", actor.DisplayName)
	assert.Equal(t, models.RoleUser, actor.Role)

	t.Run("EmailTaken", func(t *testing.T) {
		_, _, err := f.svc.SignUp(ctx, models.SignUpRequest{Email: "ana@example.com", Password: "another"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		_, _, err := f.svc.SignUp(ctx, models.SignUpRequest{Email: "not-an-email", Password: "secret1"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, _, err = f.svc.SignUp(ctx, models.SignUpRequest{Email: "x@example.com", Password: "123"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestResolve_Errors(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)

	_, err := f.svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.svc.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// No profile yet: role user.
	actor, err := f.svc.Resolve(ctx, "dev:newcomer")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, actor.Role)
}

func TestResolve_ProfileCache(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	f.seedUser(t, "mod", "mod@example.com", "Mod", models.RoleModerator)

	actor, err := f.svc.Resolve(ctx, "dev:mod")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, actor.Role)

	cached, err := f.cache.Get(ctx, "profile:mod")
	require.NoError(t, err)
	assert.Contains(t, cached, `"moderator"`)

	// A write behind the service's back is not seen until the entry expires or is invalidated.
	admin := models.RoleAdmin
	require.NoError(t, f.users.Update(ctx, "mod", db.UserProfileUpdate{Role: &admin}))
	actor, err = f.svc.Resolve(ctx, "dev:mod")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, actor.Role)

	require.NoError(t, f.cache.Delete(ctx, "profile:mod"))
	actor, err = f.svc.Resolve(ctx, "dev:mod")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, actor.Role)
}

func TestSignInAndSignOut(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	_, profile, err := f.svc.SignUp(ctx, models.SignUpRequest{Email: "bo@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.svc.SignIn(ctx, models.SignInRequest{Email: "bo@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := f.svc.SignIn(ctx, models.SignInRequest{Email: "bo@example.com", Password: "secret1"})
	require.NoError(t, err)

	actor, err := f.svc.Resolve(ctx, session.IDToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.SignOut(ctx, actor))

	_, err = f.svc.Resolve(ctx, session.IDToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.ErrorIs(t, f.svc.SignOut(ctx, policy.Anonymous()), ErrUnauthenticated)
	assert.NotEmpty(t, profile.ID)
}

func TestRequestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	_, _, err := f.svc.SignUp(ctx, models.SignUpRequest{Email: "cy@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "cy@example.com"))
	sent := f.mail.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "cy@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "reset-password")

	// Unknown addresses succeed without sending anything.
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Len(t, f.mail.messages(), 1)

	assert.ErrorIs(t, f.svc.RequestPasswordReset(ctx, " "), ErrInvalidInput)
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	actor := policy.Actor{UserID: "g1", Email: "g1@example.com", DisplayName: "Gee"}

	profile, created, err := f.svc.Initialize(ctx, actor)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleUser, profile.Role)
	assert.Equal(t, "Gee", profile.DisplayName)

	again, created, err := f.svc.Initialize(ctx, actor)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, profile.ID, again.ID)

	_, _, err = f.svc.Initialize(ctx, policy.Anonymous())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	alice := f.seedUser(t, "alice", "alice@example.com", "Alice", models.RoleUser)
	bob := f.seedUser(t, "bob", "bob@example.com", "Bob", models.RoleUser)
	admin := f.seedUser(t, "root", "root@example.com", "Root", models.RoleAdmin)
	name := func(s string) models.UpdateProfileRequest { return models.UpdateProfileRequest{DisplayName: &s} }

	t.Run("GetOwnAndOther", func(t *testing.T) {
		own, err := f.svc.GetProfile(ctx, alice, "")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", own.Email)

		other, err := f.svc.GetProfile(ctx, alice, "bob")
		require.NoError(t, err)
		assert.Equal(t, "Bob", other.DisplayName)

		_, err = f.svc.GetProfile(ctx, alice, "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("UpdateOwn", func(t *testing.T) {
		got, err := f.svc.UpdateProfile(ctx, alice, "", name("  Alice B. "))
		require.NoError(t, err)
		assert.Equal(t, "Alice B.", got.DisplayName)

		// The cached profile was invalidated.
		fresh, err := f.svc.GetProfile(ctx, bob, "alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice B.", fresh.DisplayName)
	})

	t.Run("UpdateOtherForbidden", func(t *testing.T) {
		_, err := f.svc.UpdateProfile(ctx, bob, "alice", name("Hacked"))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("AdminUpdatesAnyone", func(t *testing.T) {
		got, err := f.svc.UpdateProfile(ctx, admin, "bob", name("Robert"))
		require.NoError(t, err)
		assert.Equal(t, "Robert", got.DisplayName)
	})

	t.Run("UpdateMissingUser", func(t *testing.T) {
		_, err := f.svc.UpdateProfile(ctx, admin, "ghost", name("Nobody"))
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("UpdateRole", func(t *testing.T) {
		_, err := f.svc.UpdateRole(ctx, alice, "bob", models.RoleAdmin)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = f.svc.UpdateRole(ctx, admin, "bob", models.Role("chef"))
		assert.ErrorIs(t, err, ErrInvalidInput)

		got, err := f.svc.UpdateRole(ctx, admin, "bob", models.RoleModerator)
		require.NoError(t, err)
		assert.Equal(t, models.RoleModerator, got.Role)

		actor, err := f.svc.Resolve(ctx, "dev:bob")
		require.NoError(t, err)
		assert.Equal(t, models.RoleModerator, actor.Role)
	})
}

func TestPermissionsForActor(t *testing.T) {
	f := newIdentityFixture(t)

	assert.Empty(t, f.svc.Permissions(policy.Anonymous()))
	assert.Equal(t, policy.Permissions(models.RoleUser), f.svc.Permissions(policy.Actor{UserID: "u", Role: models.RoleUser}))
	assert.Contains(t, f.svc.Permissions(policy.Actor{UserID: "a", Role: models.RoleAdmin}), policy.Permission("admin.access"))
}
