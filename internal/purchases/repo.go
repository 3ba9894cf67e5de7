package purchases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
)

// Repository exposes purchase persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
	FindBySession(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Purchase, error)
	FindActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Purchase, error)
	CompleteBySession(ctx context.Context, id uuid.UUID, paymentIntentID, subscriptionID *string) error
	CancelBySubscription(ctx context.Context, subscriptionID string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a purchases repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if err := r.db.WithContext(ctx).Create(purchase).Error; err != nil {
		return nil, err
	}
	return purchase, nil
}

// ListByUser returns the user's full purchase history, newest first.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	var rows []models.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindBySession loads the purchase recorded for a checkout session, scoped to
// the owning user so forged metadata cannot reach another user's row.
func (r *repository) FindBySession(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND stripe_session_id = ?", userID, sessionID).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// FindActiveSubscription returns the user's newest completed purchase that
// carries a gateway subscription reference.
func (r *repository) FindActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND stripe_subscription_id IS NOT NULL", userID, enums.PurchaseStatusCompleted).
		Order("created_at DESC").
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// CompleteBySession marks the session's purchase completed and records the
// gateway references. Repeated calls settle on the same row values.
func (r *repository) CompleteBySession(ctx context.Context, id uuid.UUID, paymentIntentID, subscriptionID *string) error {
	updates := map[string]any{
		"status": enums.PurchaseStatusCompleted,
	}
	if paymentIntentID != nil {
		updates["stripe_payment_intent_id"] = paymentIntentID
	}
	if subscriptionID != nil {
		updates["stripe_subscription_id"] = subscriptionID
	}
	return r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error
}

// CancelBySubscription cancels every purchase tied to the gateway
// subscription. Returns the rows affected for observability.
func (r *repository) CancelBySubscription(ctx context.Context, subscriptionID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("stripe_subscription_id = ?", subscriptionID).
		UpdateColumn("status", enums.PurchaseStatusCanceled)
	return result.RowsAffected, result.Error
}
