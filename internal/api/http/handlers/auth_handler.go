package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/urbispulse/internal/api/dto"
	"github.com/spec-kit/urbispulse/internal/auth"
	"github.com/spec-kit/urbispulse/internal/service"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

// AuthHandler exposes the stub sign-in.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, token, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Name:       req.Name,
		Email:      req.Email,
		Role:       req.Role,
		Ward:       req.Ward,
		Department: req.Department,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		User:      dto.NewUserResponse(user),
	}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	user, err := h.auth.Me(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
