package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault-backend/pkg/enums"
)

// User represents the canonical identity entity. Subscription fields are
// mutated only by the checkout flow (customer creation) and the webhook
// reconciler.
type User struct {
	ID                  uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email               string                   `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash        string                   `gorm:"column:password_hash;not null"`
	DisplayName         string                   `gorm:"column:display_name;not null"`
	StripeCustomerID    *string                  `gorm:"column:stripe_customer_id;uniqueIndex"`
	SubscriptionStatus  enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:''"`
	SubscriptionTier    *string                  `gorm:"column:subscription_tier"`
	SubscriptionEndDate *time.Time               `gorm:"column:subscription_end_date"`
	LastLoginAt         *time.Time               `gorm:"column:last_login_at"`
	CreatedAt           time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
