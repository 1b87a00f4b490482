package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
)

func newAuthHarness(t *testing.T, cache *redis.Client) (*fixture, AuthService, SessionResolver, *auth.Tokens) {
	t.Helper()
	f := newFixture(t)
	resolver := NewSessionResolver(f.accounts, cache, testLogger())
	tokens := auth.NewTokens("test-secret", time.Hour)
	svc := NewAuthService(f.accounts, f.members, f.schools, resolver, tokens, testValidator(), nil, testLogger())
	return f, svc, resolver, tokens
}

func TestAuthLoginAndCreateAccount(t *testing.T) {
	f, svc, _, tokens := newAuthHarness(t, nil)
	ctx := context.Background()

	school := models.School{Name: "North High"}
	require.NoError(t, f.schools.Create(ctx, &school))

	account, err := svc.CreateAccount(ctx, ActivityActor{ID: 1, Role: models.RoleAdmin}, dto.AccountCreateRequest{
		Name:     "Sara",
		Email:    "Sara@Example.com",
		Password: "changeme123",
		Role:     models.RoleSchoolAdmin,
		SchoolID: &school.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "sara@example.com", account.Email)

	resp, err := svc.Login(ctx, dto.LoginRequest{Email: "sara@example.com", Password: "changeme123"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, models.RoleSchoolAdmin, resp.Session.Role)
	require.Equal(t, &school.ID, resp.Session.SchoolID)

	userID, err := tokens.Parse(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, account.ID, userID)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "sara@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@example.com", Password: "changeme123"})
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.CreateAccount(ctx, ActivityActor{ID: 1}, dto.AccountCreateRequest{
		Name: "Again", Email: "sara@example.com", Password: "changeme123", Role: models.RoleAdmin,
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthLoginRejectsInactiveAndRoleless(t *testing.T) {
	f, svc, _, _ := newAuthHarness(t, nil)
	ctx := context.Background()

	hash, err := auth.HashPassword("changeme123")
	require.NoError(t, err)

	inactive := models.Student{Profile: models.Profile{Name: "Ivy", Email: "ivy@example.com", Status: models.ProfileStatusInactive, PasswordHash: hash}}
	require.NoError(t, f.members.CreateStudent(ctx, &inactive))
	_, err = svc.Login(ctx, dto.LoginRequest{Email: "ivy@example.com", Password: "changeme123"})
	require.ErrorIs(t, err, ErrAccountInactive)

	roleless := models.Profile{Name: "Rex", Email: "rex@example.com", Status: models.ProfileStatusActive, PasswordHash: hash}
	require.NoError(t, f.db.Create(&roleless).Error)
	_, err = svc.Login(ctx, dto.LoginRequest{Email: "rex@example.com", Password: "changeme123"})
	require.ErrorIs(t, err, auth.ErrNoRole)
}

func TestSessionResolverCachesAndInvalidates(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f, _, resolver, _ := newAuthHarness(t, client)
	ctx := context.Background()
	teacher := f.teacher(t, "tom", nil)

	session, err := resolver.Resolve(ctx, teacher.ProfileID)
	require.NoError(t, err)
	require.Equal(t, models.RoleTeacher, session.Role)
	require.True(t, session.Active)
	require.True(t, mr.Exists(sessionCacheKey(teacher.ProfileID)))

	require.NoError(t, f.db.Model(&models.Profile{}).Where("id = ?", teacher.ProfileID).Update("status", models.ProfileStatusInactive).Error)
	cached, err := resolver.Resolve(ctx, teacher.ProfileID)
	require.NoError(t, err)
	require.True(t, cached.Active)

	resolver.Invalidate(ctx, teacher.ProfileID)
	fresh, err := resolver.Resolve(ctx, teacher.ProfileID)
	require.NoError(t, err)
	require.False(t, fresh.Active)
}
