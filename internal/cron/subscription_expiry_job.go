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

// Webhooks are the primary signal for subscription state. This job is the
// backstop for missed cancellation events: any user whose paid window has
// lapsed gets dropped back to the free ladder.
const expiryGrace = 24 * time.Hour

// SubscriptionExpiryJobParams configure the subscription expiry sweep.
type SubscriptionExpiryJobParams struct {
	Logger *logger.Logger
	DB     *gorm.DB
	Grace  time.Duration
}

// NewSubscriptionExpiryJob builds the job that downgrades lapsed subscribers.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = expiryGrace
	}
	return &subscriptionExpiryJob{
		logg:  params.Logger,
		db:    params.DB,
		grace: grace,
		now:   time.Now,
	}, nil
}

type subscriptionExpiryJob struct {
	logg  *logger.Logger
	db    *gorm.DB
	grace time.Duration
	now   func() time.Time
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	result := j.db.WithContext(ctx).
		Model(&models.User{}).
		Where("subscription_status IN ?", []enums.SubscriptionStatus{
			enums.SubscriptionStatusActive,
			enums.SubscriptionStatusPastDue,
		}).
		Where("subscription_end_date IS NOT NULL AND subscription_end_date < ?", cutoff).
		Updates(map[string]any{
			"subscription_status": enums.SubscriptionStatusCanceled,
			"subscription_tier":   nil,
		})
	if result.Error != nil {
		return fmt.Errorf("expire lapsed subscriptions: %w", result.Error)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": result.RowsAffected})
	j.logg.Info(logCtx, "subscription expiry sweep complete")
	return nil
}
