package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault-backend/pkg/enums"
)

// Prompt is a sellable catalog item gated behind a tier.
type Prompt struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Slug      string     `gorm:"type:text;not null;uniqueIndex"`
	Title     string     `gorm:"not null"`
	Body      string     `gorm:"type:text;not null"`
	Category  string     `gorm:"not null;index"`
	TierSlug  enums.Tier `gorm:"column:tier_slug;type:text;not null;index"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
