package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/promptvault/promptvault-backend/pkg/config"
	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
	"github.com/promptvault/promptvault-backend/pkg/metrics"
)

const checkoutCurrency = "usd"

type tierLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PricingTier, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type purchaseCreator interface {
	Create(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error)
}

// Service starts one-time tier purchases.
type Service interface {
	Start(ctx context.Context, userID uuid.UUID, input StartInput) (*StartResult, error)
}

// StartInput identifies the tier the buyer selected. Both the id and the
// slug must be supplied; they are cross-checked against the stored tier.
type StartInput struct {
	TierID   uuid.UUID
	TierSlug enums.Tier
}

// StartResult tells the caller where to send the buyer next.
type StartResult struct {
	RedirectURL string
	SessionID   string
	Purchase    *models.Purchase
}

// ServiceParams groups dependencies for the checkout service. Sessions may
// be nil when the payment gateway is not configured; paid checkouts then
// fail with a configuration error while free tiers keep working.
type ServiceParams struct {
	TierRepo     tierLoader
	UserRepo     userLoader
	PurchaseRepo purchaseCreator
	Sessions     SessionClient
	URLs         config.CheckoutConfig
	Metrics      *metrics.PaymentMetrics
}

type service struct {
	tiers     tierLoader
	users     userLoader
	purchases purchaseCreator
	sessions  SessionClient
	urls      config.CheckoutConfig
	metrics   *metrics.PaymentMetrics
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.TierRepo == nil {
		return nil, fmt.Errorf("tier repo required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repo required")
	}
	if params.PurchaseRepo == nil {
		return nil, fmt.Errorf("purchase repo required")
	}
	if params.URLs.SuccessURL == "" || params.URLs.CancelURL == "" {
		return nil, fmt.Errorf("checkout redirect urls required")
	}
	return &service{
		tiers:     params.TierRepo,
		users:     params.UserRepo,
		purchases: params.PurchaseRepo,
		sessions:  params.Sessions,
		urls:      params.URLs,
		metrics:   params.Metrics,
	}, nil
}

// Start validates the selected tier, snapshots its stored price, and either
// completes a free purchase immediately or opens a gateway checkout session.
// The pending purchase row is written only after the session exists, so a
// failed gateway call leaves no orphan rows.
func (s *service) Start(ctx context.Context, userID uuid.UUID, input StartInput) (*StartResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.TierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier_id is required")
	}
	if input.TierSlug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier_slug is required")
	}

	tier, err := s.tiers.FindByID(ctx, input.TierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing tier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pricing tier")
	}
	if !tier.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing tier not found")
	}
	// The stored slug is authoritative. A mismatch is rejected outright
	// rather than silently corrected, and no purchase row is written.
	if tier.Slug != input.TierSlug {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier_slug does not match the selected tier")
	}

	if tier.Price.IsZero() {
		return s.completeFree(ctx, userID, tier)
	}
	return s.startPaid(ctx, userID, tier)
}

func (s *service) completeFree(ctx context.Context, userID uuid.UUID, tier *models.PricingTier) (*StartResult, error) {
	billing := enums.BillingTypeOneTime
	purchase, err := s.purchases.Create(ctx, &models.Purchase{
		UserID:        userID,
		PricingTierID: tier.ID,
		TierSlug:      tier.Slug,
		Amount:        tier.Price,
		Status:        enums.PurchaseStatusCompleted,
		BillingType:   &billing,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record free purchase")
	}
	s.metrics.IncCheckoutSession(string(billing), "free")
	return &StartResult{RedirectURL: s.urls.SuccessURL, Purchase: purchase}, nil
}

func (s *service) startPaid(ctx context.Context, userID uuid.UUID, tier *models.PricingTier) (*StartResult, error) {
	if s.sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "payment gateway is not configured")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}

	billing := enums.BillingTypeOneTime
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:     stripe.String(user.Email),
		ClientReferenceID: stripe.String(userID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(checkoutCurrency),
					UnitAmount: stripe.Int64(tier.Price.Mul(centsFactor).IntPart()),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(tier.Name),
						Description: stripe.String(tier.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.urls.SuccessURL),
		CancelURL:  stripe.String(s.urls.CancelURL),
	}
	params.AddMetadata(metadataUserID, userID.String())
	params.AddMetadata(metadataPricingTierID, tier.ID.String())
	params.AddMetadata(metadataTierSlug, string(tier.Slug))

	sess, err := s.sessions.CreateSession(ctx, params)
	if err != nil {
		s.metrics.IncCheckoutSession(string(billing), "gateway_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	sessionID := sess.ID
	purchase, err := s.purchases.Create(ctx, &models.Purchase{
		UserID:          userID,
		PricingTierID:   tier.ID,
		TierSlug:        tier.Slug,
		Amount:          tier.Price,
		Status:          enums.PurchaseStatusPending,
		BillingType:     &billing,
		StripeSessionID: &sessionID,
	})
	if err != nil {
		// The gateway session is already live and is not rolled back;
		// surfacing the failure beats pretending the checkout started.
		s.metrics.IncCheckoutSession(string(billing), "record_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record pending purchase")
	}

	s.metrics.IncCheckoutSession(string(billing), "created")
	return &StartResult{RedirectURL: sess.URL, SessionID: sess.ID, Purchase: purchase}, nil
}
