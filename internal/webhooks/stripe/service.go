package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/promptvault/promptvault-backend/internal/purchases"
	"github.com/promptvault/promptvault-backend/internal/users"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
)

const (
	metadataUserID        = "user_id"
	metadataPricingTierID = "pricing_tier_id"

	monthlyPeriod = 30 * 24 * time.Hour
	annualPeriod  = 365 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the webhook reconciler.
type ServiceParams struct {
	UserRepo          users.Repository
	PurchaseRepo      purchases.Repository
	TransactionRunner txRunner
	Now               func() time.Time
}

// Service reconciles gateway payment events into local entitlement state.
// All handlers apply "set" semantics so redelivered events settle on the
// same row values instead of compounding.
type Service struct {
	userRepo     users.Repository
	purchaseRepo purchases.Repository
	txRunner     txRunner
	now          func() time.Time
}

// NewService builds the webhook reconciler.
func NewService(params ServiceParams) (*Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repo required")
	}
	if params.PurchaseRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "purchase repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		userRepo:     params.UserRepo,
		purchaseRepo: params.PurchaseRepo,
		txRunner:     params.TransactionRunner,
		now:          now,
	}, nil
}

// HandleEvent dispatches a verified gateway event. Unknown event types are
// acknowledged without any mutation.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		return s.applyCheckoutCompleted(ctx, &session)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
		}
		return s.applySubscriptionUpdated(ctx, &sub)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
		}
		return s.applySubscriptionDeleted(ctx, &sub)
	case stripe.EventTypeInvoicePaymentFailed:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode invoice event")
		}
		var customerID string
		if invoice.Customer != nil {
			customerID = invoice.Customer.ID
		}
		return s.applyPaymentFailed(ctx, customerID)
	default:
		return nil
	}
}

// applyCheckoutCompleted transitions the session's pending purchase to
// completed and, for recurring cadences, activates the user's subscription.
func (s *Service) applyCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil || session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}
	userID, err := uuid.Parse(session.Metadata[metadataUserID])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user_id metadata missing or malformed")
	}
	if _, err := uuid.Parse(session.Metadata[metadataPricingTierID]); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "pricing_tier_id metadata missing or malformed")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		purchaseRepo := s.purchaseRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)

		purchase, err := purchaseRepo.FindBySession(ctx, userID, session.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no purchase recorded for session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load purchase")
		}

		var paymentIntentID, subscriptionID *string
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			paymentIntentID = stripe.String(session.PaymentIntent.ID)
		}
		if session.Subscription != nil && session.Subscription.ID != "" {
			subscriptionID = stripe.String(session.Subscription.ID)
		}
		if err := purchaseRepo.CompleteBySession(ctx, purchase.ID, paymentIntentID, subscriptionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete purchase")
		}

		if purchase.BillingType == nil || !purchase.BillingType.IsRecurring() {
			return nil
		}

		period := monthlyPeriod
		if *purchase.BillingType == enums.BillingTypeAnnual {
			period = annualPeriod
		}
		endDate := s.now().Add(period)
		cadence := string(*purchase.BillingType)
		state := users.SubscriptionState{
			Status:  enums.SubscriptionStatusActive,
			Tier:    &cadence,
			EndDate: &endDate,
		}
		if err := userRepo.UpdateSubscriptionState(ctx, userID, state); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate subscription")
		}
		return nil
	})
}

// applySubscriptionUpdated maps the gateway status onto the user record.
func (s *Service) applySubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error {
	if sub == nil || sub.Customer == nil || sub.Customer.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription customer required")
	}

	status := mapSubscriptionStatus(sub.Status)
	endDate := periodEnd(sub)

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)
		user, err := userRepo.FindByStripeCustomerID(ctx, sub.Customer.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no user for gateway customer")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		state := users.SubscriptionState{
			Status:  status,
			Tier:    user.SubscriptionTier,
			EndDate: endDate,
		}
		if err := userRepo.UpdateSubscriptionState(ctx, user.ID, state); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update subscription state")
		}
		return nil
	})
}

// applySubscriptionDeleted marks the user canceled and cancels any purchase
// rows tied to the gateway subscription.
func (s *Service) applySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	if sub == nil || sub.Customer == nil || sub.Customer.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription customer required")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)
		purchaseRepo := s.purchaseRepo.WithTx(tx)

		user, err := userRepo.FindByStripeCustomerID(ctx, sub.Customer.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no user for gateway customer")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		if err := userRepo.UpdateSubscriptionStatus(ctx, user.ID, enums.SubscriptionStatusCanceled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel subscription")
		}
		if sub.ID != "" {
			if _, err := purchaseRepo.CancelBySubscription(ctx, sub.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel subscription purchases")
			}
		}
		return nil
	})
}

// applyPaymentFailed moves the customer's user to past_due.
func (s *Service) applyPaymentFailed(ctx context.Context, customerID string) error {
	if customerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice customer required")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)
		user, err := userRepo.FindByStripeCustomerID(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no user for gateway customer")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		if err := userRepo.UpdateSubscriptionStatus(ctx, user.ID, enums.SubscriptionStatusPastDue); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark past due")
		}
		return nil
	})
}

func mapSubscriptionStatus(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue:
		return enums.SubscriptionStatusPastDue
	default:
		return enums.SubscriptionStatusCanceled
	}
}

func periodEnd(sub *stripe.Subscription) *time.Time {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	end := sub.Items.Data[0].CurrentPeriodEnd
	if end <= 0 {
		return nil
	}
	at := time.Unix(end, 0).UTC()
	return &at
}
