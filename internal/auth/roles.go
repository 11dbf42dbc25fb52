package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thusa/managed-reports/internal/domain"
	apperrors "github.com/thusa/managed-reports/pkg/util"
)

// ReasonInsufficientRole is rendered when the caller's role is not allowed.
const ReasonInsufficientRole = "Insufficient role."

// RequireRole ensures the account attached by a required guard holds one of
// the allowed roles. It must run after Guard.Handle.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		account, ok := AccountFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(ReasonInvalidToken)
		}
		if _, exists := allowedSet[account.Role]; !exists {
			return apperrors.NewForbidden(ReasonInsufficientRole)
		}
		return c.Next()
	}
}
