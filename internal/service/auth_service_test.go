package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/urbispulse/internal/auth"
	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/repository"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

func newAuthService(t *testing.T) (*AuthService, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", 15)
	return NewAuthService(AuthDependencies{
		UserRepo:     repository.NewMemoryUserRepository(),
		TokenManager: tokens,
		Clock:        fixedClock,
	}), tokens
}

func TestLoginCreatesAccountWithDefaults(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newAuthService(t)

	user, token, err := svc.Login(ctx, LoginInput{Name: "Asha", Email: " Asha@Example.org "})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCitizen, user.Role)
	assert.Equal(t, "asha@example.org", user.Email)
	assert.Equal(t, 780, user.TrustScore)
	assert.Equal(t, 1250, user.Points)
	assert.Equal(t, []string{"Early Adopter"}, user.Badges)
	assert.Equal(t, fixedNow, user.CreatedAt)

	claims, err := tokens.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	again, _, err := svc.Login(ctx, LoginInput{Name: "Asha", Email: "asha@example.org", Role: domain.RoleCitizen})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID, "second sign-in finds the same account")

	me, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", me.Name)
}

func TestLoginRoleDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	member, _, err := svc.Login(ctx, LoginInput{Name: "Ravi", Email: "ravi@example.org", Role: domain.RoleWardMember})
	require.NoError(t, err)
	assert.Equal(t, "Ward 12", member.Ward)
	assert.Empty(t, member.Department)

	admin, _, err := svc.Login(ctx, LoginInput{Name: "Meera", Email: "meera@example.org", Role: domain.RoleAdmin, Department: "Sanitation"})
	require.NoError(t, err)
	assert.Equal(t, "Sanitation", admin.Department)
	assert.Empty(t, admin.Ward)

	chief, _, err := svc.Login(ctx, LoginInput{Name: "Chief", Email: "chief@example.org", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Public Works", chief.Department)
}

func TestLoginRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, _, err := svc.Login(ctx, LoginInput{Name: "Nobody"})
	assert.True(t, apperrors.IsValidationFailed(err))

	_, _, err = svc.Login(ctx, LoginInput{Name: "Mayor", Email: "mayor@example.org", Role: "Mayor"})
	assert.True(t, apperrors.IsValidationFailed(err))

	_, _, err = svc.Login(ctx, LoginInput{Name: "Asha", Email: "asha@example.org", Ward: "Ward 4"})
	assert.True(t, apperrors.IsValidationFailed(err), "citizens carry no ward")

	_, _, err = svc.Login(ctx, LoginInput{Name: "Asha", Email: "asha@example.org"})
	require.NoError(t, err)
	_, _, err = svc.Login(ctx, LoginInput{Name: "Asha", Email: "asha@example.org", Role: domain.RoleAdmin})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = svc.Me(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}
