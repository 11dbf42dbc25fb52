package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is a login-capable principal owned by the user store.
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	MFAEnabled   bool
	MFASecret    *string
	MFAVerified  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
