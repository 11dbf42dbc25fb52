package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/thusa/managed-reports/internal/domain"
)

// AccountResponse is the public view of an account. Credential and MFA
// secret fields are never serialized.
type AccountResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
	MFAEnabled  bool      `json:"mfa_enabled"`
	MFAVerified bool      `json:"mfa_verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAccountResponse maps a domain account to its response shape.
func NewAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:          account.ID,
		Email:       account.Email,
		Role:        account.Role.String(),
		Active:      account.Active,
		MFAEnabled:  account.MFAEnabled,
		MFAVerified: account.MFAVerified,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}

// LoginRequest payload for POST /authentication/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate only checks presence; unknown emails are answered by the login flow.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Success bool            `json:"success"`
	User    AccountResponse `json:"user"`
	Token   string          `json:"token"`
}

// ProvisionAccountRequest payload for POST /accounts.
type ProvisionAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate checks the payload before any account is created.
func (r ProvisionAccountRequest) Validate() error {
	roles := make([]interface{}, 0, len(domain.Roles()))
	for _, role := range domain.Roles() {
		roles = append(roles, role.String())
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.Role, validation.Required, validation.In(roles...)),
	)
}

// ParsedRole returns the requested role. Call Validate first.
func (r ProvisionAccountRequest) ParsedRole() domain.Role {
	role, _ := domain.ParseRole(r.Role)
	return role
}
