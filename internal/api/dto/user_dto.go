package dto

import (
	"time"

	"github.com/spec-kit/urbispulse/internal/domain"
)

// LoginRequest payload for the stub sign-in. No password is checked.
type LoginRequest struct {
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       domain.UserRole `json:"role"`
	Ward       string          `json:"ward"`
	Department string          `json:"department"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public profile of an account.
type UserResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       domain.UserRole `json:"role"`
	Ward       string          `json:"ward,omitempty"`
	Department string          `json:"department,omitempty"`
	TrustScore int             `json:"trust_score"`
	Points     int             `json:"points"`
	Badges     []string        `json:"badges"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	badges := u.Badges
	if badges == nil {
		badges = []string{}
	}
	return UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Ward:       u.Ward,
		Department: u.Department,
		TrustScore: u.TrustScore,
		Points:     u.Points,
		Badges:     badges,
		CreatedAt:  u.CreatedAt,
	}
}
