package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                  uuid.UUID                `json:"id"`
	Email               string                   `json:"email"`
	DisplayName         string                   `json:"display_name"`
	SubscriptionStatus  enums.SubscriptionStatus `json:"subscription_status"`
	SubscriptionTier    *string                  `json:"subscription_tier,omitempty"`
	SubscriptionEndDate *time.Time               `json:"subscription_end_date,omitempty"`
	LastLoginAt         *time.Time               `json:"last_login_at,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	DisplayName  string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                  u.ID,
		Email:               u.Email,
		DisplayName:         u.DisplayName,
		SubscriptionStatus:  u.SubscriptionStatus,
		SubscriptionTier:    u.SubscriptionTier,
		SubscriptionEndDate: u.SubscriptionEndDate,
		LastLoginAt:         u.LastLoginAt,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		PasswordHash: c.PasswordHash,
		DisplayName:  strings.TrimSpace(c.DisplayName),
	}
}
