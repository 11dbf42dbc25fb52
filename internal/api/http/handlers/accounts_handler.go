package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/thusa/managed-reports/internal/api/dto"
	"github.com/thusa/managed-reports/internal/auth"
	"github.com/thusa/managed-reports/internal/domain"
	"github.com/thusa/managed-reports/internal/service"
	apperrors "github.com/thusa/managed-reports/pkg/util"
)

// ReasonAccountExists is rendered when provisioning a taken email.
const ReasonAccountExists = "Account already exists."

// AccountProvisioner creates accounts on behalf of an administrator.
type AccountProvisioner interface {
	ProvisionAccount(ctx context.Context, email, password string, role domain.Role, provisionedBy string) (*domain.Account, error)
}

// AccountsHandler exposes account administration.
type AccountsHandler struct {
	accounts AccountProvisioner
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts AccountProvisioner) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// Create handles POST /accounts. Must run behind a required guard and role gate.
func (h *AccountsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.ReasonInvalidToken)
	}

	var req dto.ProvisionAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(ReasonInvalidBody)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	account, err := h.accounts.ProvisionAccount(c.UserContext(), req.Email, req.Password, req.ParsedRole(), actor.Email)
	if err != nil {
		if errors.Is(err, service.ErrAccountExists) {
			return apperrors.NewConflict(ReasonAccountExists)
		}
		return apperrors.NewInternalError(err)
	}

	return c.Status(http.StatusCreated).JSON(dto.NewAccountResponse(account))
}
