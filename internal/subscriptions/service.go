package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/promptvault/promptvault-backend/internal/checkout"
	"github.com/promptvault/promptvault-backend/pkg/config"
	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
	"github.com/promptvault/promptvault-backend/pkg/metrics"
)

type tierLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PricingTier, error)
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
}

type purchaseRepository interface {
	Create(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error)
	FindActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Purchase, error)
}

// Service starts and cancels subscription-style checkouts.
type Service interface {
	Start(ctx context.Context, userID uuid.UUID, input StartInput) (*StartResult, error)
	Cancel(ctx context.Context, userID uuid.UUID) error
}

// StartInput selects the tier and billing cadence.
type StartInput struct {
	TierID      uuid.UUID
	BillingType enums.BillingType
}

// StartResult tells the caller where to send the subscriber next.
type StartResult struct {
	RedirectURL string
	SessionID   string
	Purchase    *models.Purchase
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	TierRepo     tierLoader
	UserRepo     userRepository
	PurchaseRepo purchaseRepository
	Sessions     checkout.SessionClient
	Billing      StripeBillingClient
	URLs         config.CheckoutConfig
	Metrics      *metrics.PaymentMetrics
}

type service struct {
	tiers     tierLoader
	users     userRepository
	purchases purchaseRepository
	sessions  checkout.SessionClient
	billing   StripeBillingClient
	urls      config.CheckoutConfig
	metrics   *metrics.PaymentMetrics
}

// NewService builds the subscription service.
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
		billing:   params.Billing,
		urls:      params.URLs,
		metrics:   params.Metrics,
	}, nil
}

// Start opens a gateway checkout session for the selected tier and cadence.
// Recurring cadences use subscription mode; one_time falls back to a plain
// payment session. The gateway customer is created lazily, once per user.
func (s *service) Start(ctx context.Context, userID uuid.UUID, input StartInput) (*StartResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.TierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier_id is required")
	}
	if !input.BillingType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing_type must be one_time, monthly, or annual")
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

	price, err := priceFor(tier, input.BillingType)
	if err != nil {
		return nil, err
	}

	if s.sessions == nil || s.billing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "payment gateway is not configured")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	params := s.sessionParams(user, tier, input.BillingType, price, customerID)
	sess, err := s.sessions.CreateSession(ctx, params)
	if err != nil {
		s.metrics.IncCheckoutSession(string(input.BillingType), "gateway_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	sessionID := sess.ID
	billing := input.BillingType
	purchase, err := s.purchases.Create(ctx, &models.Purchase{
		UserID:          userID,
		PricingTierID:   tier.ID,
		TierSlug:        tier.Slug,
		Amount:          price,
		Status:          enums.PurchaseStatusPending,
		BillingType:     &billing,
		StripeSessionID: &sessionID,
	})
	if err != nil {
		s.metrics.IncCheckoutSession(string(input.BillingType), "record_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record pending purchase")
	}

	s.metrics.IncCheckoutSession(string(input.BillingType), "created")
	return &StartResult{RedirectURL: sess.URL, SessionID: sess.ID, Purchase: purchase}, nil
}

// Cancel asks the gateway to end the user's active subscription. Local
// entitlement state is reconciled when the deletion event arrives.
func (s *service) Cancel(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if s.billing == nil {
		return pkgerrors.New(pkgerrors.CodeConfig, "payment gateway is not configured")
	}

	purchase, err := s.purchases.FindActiveSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription purchase")
	}
	if purchase.StripeSubscriptionID == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
	}

	if _, err := s.billing.CancelSubscription(ctx, *purchase.StripeSubscriptionID, &stripe.SubscriptionCancelParams{}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel subscription")
	}
	return nil
}

func (s *service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
	}
	params.AddMetadata("user_id", user.ID.String())
	customer, err := s.billing.CreateCustomer(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway customer")
	}
	if err := s.users.UpdateStripeCustomerID(ctx, user.ID, customer.ID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist gateway customer id")
	}
	return customer.ID, nil
}

func (s *service) sessionParams(user *models.User, tier *models.PricingTier, billing enums.BillingType, price decimal.Decimal, customerID string) *stripe.CheckoutSessionParams {
	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String("usd"),
		UnitAmount: stripe.Int64(price.Mul(decimal.NewFromInt(100)).IntPart()),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:        stripe.String(fmt.Sprintf("%s (%s)", tier.Name, billing)),
			Description: stripe.String(tier.Description),
		},
	}
	mode := stripe.CheckoutSessionModePayment
	if billing.IsRecurring() {
		mode = stripe.CheckoutSessionModeSubscription
		interval := "month"
		if billing == enums.BillingTypeAnnual {
			interval = "year"
		}
		priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(interval),
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(mode)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(user.ID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{PriceData: priceData, Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(s.urls.SuccessURL),
		CancelURL:  stripe.String(s.urls.CancelURL),
	}
	params.AddMetadata("user_id", user.ID.String())
	params.AddMetadata("pricing_tier_id", tier.ID.String())
	params.AddMetadata("tier_slug", string(tier.Slug))
	params.AddMetadata("billing_type", string(billing))
	return params
}

func priceFor(tier *models.PricingTier, billing enums.BillingType) (decimal.Decimal, error) {
	switch billing {
	case enums.BillingTypeMonthly:
		if tier.MonthlyPrice.IsZero() {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "tier does not offer monthly billing")
		}
		return tier.MonthlyPrice, nil
	case enums.BillingTypeAnnual:
		if tier.AnnualPrice.IsZero() {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "tier does not offer annual billing")
		}
		return tier.AnnualPrice, nil
	default:
		return tier.Price, nil
	}
}
