package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptvault/promptvault-backend/pkg/enums"
)

// Purchase records one checkout attempt. Rows are append-only: created as
// pending (or completed for free tiers) by the checkout flow, transitioned
// to completed/canceled only by the webhook reconciler. Amount is a
// server-verified snapshot of the tier price at creation time.
type Purchase struct {
	ID                    uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:idx_purchases_user_session"`
	PricingTierID         uuid.UUID            `gorm:"column:pricing_tier_id;type:uuid;not null;index"`
	TierSlug              enums.Tier           `gorm:"column:tier_slug;type:text;not null"`
	Amount                decimal.Decimal      `gorm:"type:numeric(10,2);not null"`
	Status                enums.PurchaseStatus `gorm:"not null;default:'pending'"`
	BillingType           *enums.BillingType   `gorm:"column:billing_type"`
	StripeSessionID       *string              `gorm:"column:stripe_session_id;uniqueIndex:idx_purchases_user_session;uniqueIndex"`
	StripePaymentIntentID *string              `gorm:"column:stripe_payment_intent_id"`
	StripeSubscriptionID  *string              `gorm:"column:stripe_subscription_id;index"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
