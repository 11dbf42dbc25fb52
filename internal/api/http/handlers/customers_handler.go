package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "github.com/thusa/managed-reports/pkg/util"
)

// ReasonInvalidCustomerID is rendered for a malformed :customer_id.
const ReasonInvalidCustomerID = "Invalid customer id."

// CustomersHandler serves the customer report endpoints.
type CustomersHandler struct{}

func NewCustomersHandler() *CustomersHandler {
	return &CustomersHandler{}
}

// List handles GET /customers.
func (h *CustomersHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true})
}

// Get handles GET /customers/:customer_id.
func (h *CustomersHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("customer_id"))
	if err != nil {
		return apperrors.NewValidationError(ReasonInvalidCustomerID)
	}
	return c.JSON(fiber.Map{"success": true, "customer_id": id})
}
