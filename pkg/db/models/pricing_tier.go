package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptvault/promptvault-backend/pkg/enums"
)

// PricingTier is a catalog entry. Prices here are the only authority for
// checkout amounts; client-supplied amounts are never consulted.
type PricingTier struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Slug            enums.Tier      `gorm:"type:text;not null;uniqueIndex"`
	Name            string          `gorm:"not null"`
	Description     string          `gorm:"type:text;not null;default:''"`
	Price           decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	MonthlyPrice    decimal.Decimal `gorm:"column:monthly_price;type:numeric(10,2);not null;default:0"`
	AnnualPrice     decimal.Decimal `gorm:"column:annual_price;type:numeric(10,2);not null;default:0"`
	OptimizerAccess bool            `gorm:"column:optimizer_access;not null;default:false"`
	PromptLimit     int             `gorm:"column:prompt_limit;not null;default:0"`
	Active          bool            `gorm:"not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
