package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/urbispulse/internal/auth"
	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/repository"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

// Profile defaults handed to every account created through the sign-in stub.
const (
	defaultWard       = "Ward 12"
	defaultDepartment = "Public Works"
	defaultTrustScore = 780
	defaultPoints     = 1250
	defaultBadge      = "Early Adopter"
)

// LoginInput is the profile submitted to the sign-in stub. No credential is checked.
type LoginInput struct {
	Name       string
	Email      string
	Role       domain.UserRole
	Ward       string
	Department string
}

// AuthService issues tokens for the stub identity flow.
type AuthService struct {
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
	now      func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	Logger       *zap.Logger
	Clock        func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:    deps.UserRepo,
		tokenMgr: deps.TokenManager,
		logger:   loggerOrNop(deps.Logger),
		now:      clockOrDefault(deps.Clock),
	}
}

// Login finds or creates the account for input.Email and returns a signed token.
// Role, ward and department are fixed once the account exists.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, domain.Token, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, domain.Token{}, apperrors.NewValidationError("email is required", nil)
	}
	if input.Role == "" {
		input.Role = domain.RoleCitizen
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Role != input.Role {
			return nil, domain.Token{}, apperrors.NewConflict("account role is fixed at creation",
				map[string]any{"role": string(user.Role)})
		}
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.register(ctx, email, input)
		if err != nil {
			return nil, domain.Token{}, err
		}
	default:
		return nil, domain.Token{}, err
	}

	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	return user, token, nil
}

func (s *AuthService) register(ctx context.Context, email string, input LoginInput) (*domain.User, error) {
	ward := strings.TrimSpace(input.Ward)
	department := strings.TrimSpace(input.Department)
	switch input.Role {
	case domain.RoleWardMember:
		if ward == "" {
			ward = defaultWard
		}
	case domain.RoleAdmin:
		if department == "" {
			department = defaultDepartment
		}
	}

	user, err := domain.NewUser(uuid.NewString(), input.Name, email, input.Role, ward, department)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"role": string(input.Role)})
	}
	user.TrustScore = defaultTrustScore
	user.Points = defaultPoints
	user.Badges = []string{defaultBadge}
	user.CreatedAt = s.now()

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			// Lost a race with a concurrent first sign-in for the same email.
			return s.users.GetByEmail(ctx, email)
		}
		return nil, err
	}
	s.logger.Info("account created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Me returns the account behind a token subject.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "user", userID)
	}
	return user, nil
}
