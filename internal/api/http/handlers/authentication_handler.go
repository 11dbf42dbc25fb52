package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/thusa/managed-reports/internal/api/dto"
	"github.com/thusa/managed-reports/internal/auth"
	"github.com/thusa/managed-reports/internal/service"
	apperrors "github.com/thusa/managed-reports/pkg/util"
)

// Reasons rendered for rejected logins.
const (
	ReasonUserNotFound       = "User does not exist."
	ReasonAccountDeactivated = "Account deactivated."
	ReasonInvalidPassword    = "Invalid password."
	ReasonInvalidBody        = "Invalid request body."
)

// Authenticator runs the login flow.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

// AuthenticationHandler exposes the /authentication endpoints.
type AuthenticationHandler struct {
	auth Authenticator
}

// NewAuthenticationHandler constructs handler.
func NewAuthenticationHandler(authenticator Authenticator) *AuthenticationHandler {
	return &AuthenticationHandler{auth: authenticator}
}

// Login handles POST /authentication/login.
func (h *AuthenticationHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(ReasonInvalidBody)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return loginError(err)
	}

	return c.Status(http.StatusOK).JSON(dto.LoginResponse{
		Success: true,
		User:    dto.NewAccountResponse(result.Account),
		Token:   result.Token,
	})
}

// Check handles GET /authentication/check and echoes the authenticated account.
func (h *AuthenticationHandler) Check(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.ReasonInvalidToken)
	}
	return c.JSON(dto.NewAccountResponse(account))
}

func loginError(err error) error {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		return apperrors.NewNotFound(ReasonUserNotFound)
	case errors.Is(err, service.ErrAccountInactive):
		return apperrors.NewUnauthorized(ReasonAccountDeactivated)
	case errors.Is(err, service.ErrCredentialMismatch):
		return apperrors.NewUnauthorized(ReasonInvalidPassword)
	default:
		return apperrors.NewInternalError(err)
	}
}
