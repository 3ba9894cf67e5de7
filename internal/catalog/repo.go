package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
)

// TierRepository reads pricing tiers. Tiers are seeded by migration and
// treated as read-only at request time.
type TierRepository struct {
	db *gorm.DB
}

// NewTierRepository constructs a tier repo bound to the provided GORM DB.
func NewTierRepository(db *gorm.DB) *TierRepository {
	return &TierRepository{db: db}
}

// ListActive returns the active tiers in ladder order.
func (r *TierRepository) ListActive(ctx context.Context) ([]models.PricingTier, error) {
	var tiers []models.PricingTier
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("price ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

// FindByID loads a tier by its UUID.
func (r *TierRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.PricingTier, error) {
	var tier models.PricingTier
	if err := r.db.WithContext(ctx).First(&tier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

// FindBySlug loads a tier by its slug.
func (r *TierRepository) FindBySlug(ctx context.Context, slug enums.Tier) (*models.PricingTier, error) {
	var tier models.PricingTier
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tier).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

// PromptRepository reads catalog prompts.
type PromptRepository struct {
	db *gorm.DB
}

// NewPromptRepository constructs a prompt repo bound to the provided GORM DB.
func NewPromptRepository(db *gorm.DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// PromptFilter narrows a prompt search.
type PromptFilter struct {
	Query    string
	Category string
	Limit    int
	Offset   int
}

// Search returns prompts matching the filter plus the total match count.
func (r *PromptRepository) Search(ctx context.Context, filter PromptFilter) ([]models.Prompt, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Prompt{})
	if filter.Query != "" {
		pattern := "%" + strings.ToLower(filter.Query) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(body) LIKE ?", pattern, pattern)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var prompts []models.Prompt
	err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&prompts).Error
	if err != nil {
		return nil, 0, err
	}
	return prompts, total, nil
}

// FindBySlug loads one prompt by slug.
func (r *PromptRepository) FindBySlug(ctx context.Context, slug string) (*models.Prompt, error) {
	var prompt models.Prompt
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&prompt).Error; err != nil {
		return nil, err
	}
	return &prompt, nil
}
