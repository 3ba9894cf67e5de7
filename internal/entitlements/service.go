package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
)

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type purchaseLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
}

type tierFinder interface {
	FindBySlug(ctx context.Context, slug enums.Tier) (*models.PricingTier, error)
}

// View is the resolved entitlement snapshot returned to callers.
type View struct {
	Tier                enums.Tier               `json:"tier"`
	AccessibleTiers     []enums.Tier             `json:"accessible_tiers"`
	OptimizerAccess     bool                     `json:"optimizer_access"`
	SubscriptionStatus  enums.SubscriptionStatus `json:"subscription_status"`
	SubscriptionEndDate *time.Time               `json:"subscription_end_date,omitempty"`
}

// Service resolves entitlements for authenticated users.
type Service struct {
	users     userFinder
	purchases purchaseLister
	tiers     tierFinder
}

// ServiceParams groups dependencies for the entitlement service.
type ServiceParams struct {
	UserRepo     userFinder
	PurchaseRepo purchaseLister
	TierRepo     tierFinder
}

// NewService builds an entitlement service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repo required")
	}
	if params.PurchaseRepo == nil {
		return nil, fmt.Errorf("purchase repo required")
	}
	if params.TierRepo == nil {
		return nil, fmt.Errorf("tier repo required")
	}
	return &Service{
		users:     params.UserRepo,
		purchases: params.PurchaseRepo,
		tiers:     params.TierRepo,
	}, nil
}

// ForUser loads the user's purchase history and resolves their access set.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	purchases, err := s.purchases.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load purchases")
	}

	tiers := Resolve(purchases, user.SubscriptionStatus)
	highest := tiers[len(tiers)-1]

	view := &View{
		Tier:                highest,
		AccessibleTiers:     tiers,
		SubscriptionStatus:  user.SubscriptionStatus,
		SubscriptionEndDate: user.SubscriptionEndDate,
	}
	if tier, err := s.tiers.FindBySlug(ctx, highest); err == nil {
		view.OptimizerAccess = tier.OptimizerAccess
	}
	return view, nil
}
