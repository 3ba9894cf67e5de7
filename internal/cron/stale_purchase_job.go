package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	"github.com/promptvault/promptvault-backend/pkg/logger"
)

// Checkout sessions that never reach a terminal webhook stay pending
// forever. Stripe expires hosted sessions after 24 hours, so anything
// pending past that is an abandoned checkout.
const stalePurchaseAge = 24 * time.Hour

// StalePurchaseJobParams configure the abandoned checkout cleanup.
type StalePurchaseJobParams struct {
	Logger *logger.Logger
	DB     *gorm.DB
	MaxAge time.Duration
}

// NewStalePurchaseJob builds the job that cancels abandoned checkouts.
func NewStalePurchaseJob(params StalePurchaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = stalePurchaseAge
	}
	return &stalePurchaseJob{
		logg:   params.Logger,
		db:     params.DB,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type stalePurchaseJob struct {
	logg   *logger.Logger
	db     *gorm.DB
	maxAge time.Duration
	now    func() time.Time
}

func (j *stalePurchaseJob) Name() string { return "stale-purchase-cleanup" }

func (j *stalePurchaseJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	result := j.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("status = ?", enums.PurchaseStatusPending).
		Where("stripe_session_id IS NOT NULL").
		Where("created_at < ?", cutoff).
		Update("status", enums.PurchaseStatusCanceled)
	if result.Error != nil {
		return fmt.Errorf("cancel stale purchases: %w", result.Error)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": result.RowsAffected})
	j.logg.Info(logCtx, "stale purchase cleanup complete")
	return nil
}
