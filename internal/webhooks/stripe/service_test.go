package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/promptvault/promptvault-backend/internal/purchases"
	"github.com/promptvault/promptvault-backend/internal/users"
	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepo struct {
	user             *models.User
	state            *users.SubscriptionState
	stateWrites      int
	statusWrites     []enums.SubscriptionStatus
	lastStatusUserID uuid.UUID
}

func (s *stubUserRepo) WithTx(*gorm.DB) users.Repository { return s }

func (s *stubUserRepo) Create(context.Context, users.CreateUserDTO) (*models.User, error) {
	return nil, gorm.ErrInvalidData
}

func (s *stubUserRepo) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByStripeCustomerID(_ context.Context, customerID string) (*models.User, error) {
	if s.user == nil || s.user.StripeCustomerID == nil || *s.user.StripeCustomerID != customerID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(context.Context, uuid.UUID, time.Time) error { return nil }

func (s *stubUserRepo) UpdateStripeCustomerID(context.Context, uuid.UUID, string) error { return nil }

func (s *stubUserRepo) UpdateSubscriptionState(_ context.Context, _ uuid.UUID, state users.SubscriptionState) error {
	s.state = &state
	s.stateWrites++
	return nil
}

func (s *stubUserRepo) UpdateSubscriptionStatus(_ context.Context, id uuid.UUID, status enums.SubscriptionStatus) error {
	s.statusWrites = append(s.statusWrites, status)
	s.lastStatusUserID = id
	return nil
}

type stubPurchaseRepo struct {
	purchase  *models.Purchase
	completed []uuid.UUID
	lastPI    *string
	lastSub   *string
	canceled  []string
}

func (s *stubPurchaseRepo) WithTx(*gorm.DB) purchases.Repository { return s }

func (s *stubPurchaseRepo) Create(_ context.Context, p *models.Purchase) (*models.Purchase, error) {
	return p, nil
}

func (s *stubPurchaseRepo) ListByUser(context.Context, uuid.UUID) ([]models.Purchase, error) {
	return nil, nil
}

func (s *stubPurchaseRepo) FindBySession(_ context.Context, userID uuid.UUID, sessionID string) (*models.Purchase, error) {
	if s.purchase == nil || s.purchase.UserID != userID || s.purchase.StripeSessionID == nil || *s.purchase.StripeSessionID != sessionID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.purchase, nil
}

func (s *stubPurchaseRepo) FindActiveSubscription(context.Context, uuid.UUID) (*models.Purchase, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPurchaseRepo) CompleteBySession(_ context.Context, id uuid.UUID, paymentIntentID, subscriptionID *string) error {
	s.completed = append(s.completed, id)
	s.lastPI = paymentIntentID
	s.lastSub = subscriptionID
	if s.purchase != nil && s.purchase.ID == id {
		s.purchase.Status = enums.PurchaseStatusCompleted
	}
	return nil
}

func (s *stubPurchaseRepo) CancelBySubscription(_ context.Context, subscriptionID string) (int64, error) {
	s.canceled = append(s.canceled, subscriptionID)
	return 1, nil
}

func newTestService(t *testing.T, userRepo *stubUserRepo, purchaseRepo *stubPurchaseRepo, now time.Time) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		UserRepo:          userRepo,
		PurchaseRepo:      purchaseRepo,
		TransactionRunner: stubTxRunner{},
		Now:               func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return service
}

func checkoutCompletedEvent(t *testing.T, session *stripe.CheckoutSession) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

func pendingPurchase(userID uuid.UUID, sessionID string, billing enums.BillingType) *models.Purchase {
	session := sessionID
	return &models.Purchase{
		ID:              uuid.New(),
		UserID:          userID,
		PricingTierID:   uuid.New(),
		TierSlug:        enums.TierPro,
		Status:          enums.PurchaseStatusPending,
		BillingType:     &billing,
		StripeSessionID: &session,
	}
}

func TestHandleCheckoutCompletedCompletesOneTimePurchase(t *testing.T) {
	userID := uuid.New()
	purchaseRepo := &stubPurchaseRepo{purchase: pendingPurchase(userID, "cs_once", enums.BillingTypeOneTime)}
	userRepo := &stubUserRepo{}
	service := newTestService(t, userRepo, purchaseRepo, time.Now())

	event := checkoutCompletedEvent(t, &stripe.CheckoutSession{
		ID: "cs_once",
		Metadata: map[string]string{
			"user_id":         userID.String(),
			"pricing_tier_id": uuid.NewString(),
		},
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_1"},
	})

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(purchaseRepo.completed) != 1 {
		t.Fatalf("expected one completion, got %d", len(purchaseRepo.completed))
	}
	if purchaseRepo.lastPI == nil || *purchaseRepo.lastPI != "pi_1" {
		t.Fatalf("expected payment intent recorded")
	}
	if userRepo.stateWrites != 0 {
		t.Fatalf("one-time purchase must not touch subscription state")
	}
}

func TestHandleCheckoutCompletedActivatesMonthlySubscription(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	purchaseRepo := &stubPurchaseRepo{purchase: pendingPurchase(userID, "cs_month", enums.BillingTypeMonthly)}
	userRepo := &stubUserRepo{}
	service := newTestService(t, userRepo, purchaseRepo, now)

	event := checkoutCompletedEvent(t, &stripe.CheckoutSession{
		ID: "cs_month",
		Metadata: map[string]string{
			"user_id":         userID.String(),
			"pricing_tier_id": uuid.NewString(),
		},
		Subscription: &stripe.Subscription{ID: "sub_9"},
	})

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if purchaseRepo.lastSub == nil || *purchaseRepo.lastSub != "sub_9" {
		t.Fatalf("expected subscription id recorded on purchase")
	}
	if userRepo.state == nil {
		t.Fatalf("expected subscription state write")
	}
	if userRepo.state.Status != enums.SubscriptionStatusActive {
		t.Fatalf("expected active status, got %q", userRepo.state.Status)
	}
	if userRepo.state.Tier == nil || *userRepo.state.Tier != "monthly" {
		t.Fatalf("expected monthly cadence label")
	}
	want := now.Add(30 * 24 * time.Hour)
	if userRepo.state.EndDate == nil || !userRepo.state.EndDate.Equal(want) {
		t.Fatalf("expected end date %v, got %v", want, userRepo.state.EndDate)
	}
}

func TestHandleCheckoutCompletedAnnualUses365Days(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	purchaseRepo := &stubPurchaseRepo{purchase: pendingPurchase(userID, "cs_year", enums.BillingTypeAnnual)}
	userRepo := &stubUserRepo{}
	service := newTestService(t, userRepo, purchaseRepo, now)

	event := checkoutCompletedEvent(t, &stripe.CheckoutSession{
		ID: "cs_year",
		Metadata: map[string]string{
			"user_id":         userID.String(),
			"pricing_tier_id": uuid.NewString(),
		},
	})

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	want := now.Add(365 * 24 * time.Hour)
	if userRepo.state == nil || userRepo.state.EndDate == nil || !userRepo.state.EndDate.Equal(want) {
		t.Fatalf("expected end date %v", want)
	}
}

func TestHandleCheckoutCompletedMissingMetadataRejectsWithoutMutation(t *testing.T) {
	userID := uuid.New()
	purchaseRepo := &stubPurchaseRepo{purchase: pendingPurchase(userID, "cs_x", enums.BillingTypeOneTime)}
	userRepo := &stubUserRepo{}
	service := newTestService(t, userRepo, purchaseRepo, time.Now())

	event := checkoutCompletedEvent(t, &stripe.CheckoutSession{
		ID:       "cs_x",
		Metadata: map[string]string{"user_id": userID.String()},
	})

	err := service.HandleEvent(context.Background(), event)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(purchaseRepo.completed) != 0 || userRepo.stateWrites != 0 {
		t.Fatalf("rejected event must not mutate state")
	}
}

func TestHandleCheckoutCompletedIsIdempotent(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	purchaseRepo := &stubPurchaseRepo{purchase: pendingPurchase(userID, "cs_dup", enums.BillingTypeMonthly)}
	userRepo := &stubUserRepo{}
	service := newTestService(t, userRepo, purchaseRepo, now)

	event := checkoutCompletedEvent(t, &stripe.CheckoutSession{
		ID: "cs_dup",
		Metadata: map[string]string{
			"user_id":         userID.String(),
			"pricing_tier_id": uuid.NewString(),
		},
	})

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	firstEnd := *userRepo.state.EndDate
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !userRepo.state.EndDate.Equal(firstEnd) {
		t.Fatalf("redelivery must not extend the subscription window")
	}
	if purchaseRepo.purchase.Status != enums.PurchaseStatusCompleted {
		t.Fatalf("expected completed status")
	}
}

func subscriptionEvent(t *testing.T, eventType stripe.EventType, sub *stripe.Subscription) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("marshal subscription: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleSubscriptionUpdatedMapsStatusAndPeriodEnd(t *testing.T) {
	customerID := "cus_7"
	userRepo := &stubUserRepo{user: &models.User{ID: uuid.New(), StripeCustomerID: &customerID}}
	service := newTestService(t, userRepo, &stubPurchaseRepo{}, time.Now())

	periodEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	event := subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionUpdated, &stripe.Subscription{
		ID:       "sub_7",
		Status:   stripe.SubscriptionStatusPastDue,
		Customer: &stripe.Customer{ID: customerID},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{CurrentPeriodEnd: periodEnd.Unix()}},
		},
	})

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if userRepo.state == nil || userRepo.state.Status != enums.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due status")
	}
	if userRepo.state.EndDate == nil || !userRepo.state.EndDate.Equal(periodEnd) {
		t.Fatalf("expected period end %v, got %v", periodEnd, userRepo.state.EndDate)
	}
}

func TestHandleSubscriptionUpdatedUnknownStatusCancels(t *testing.T) {
	customerID := "cus_8"
	userRepo := &stubUserRepo{user: &models.User{ID: uuid.New(), StripeCustomerID: &customerID}}
	service := newTestService(t, userRepo, &stubPurchaseRepo{}, time.Now())

	event := subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionUpdated, &stripe.Subscription{
		ID:       "sub_8",
		Status:   stripe.SubscriptionStatusUnpaid,
		Customer: &stripe.Customer{ID: customerID},
	})

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if userRepo.state == nil || userRepo.state.Status != enums.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled status for unpaid subscription")
	}
	if userRepo.state.EndDate != nil {
		t.Fatalf("expected nil end date when the event carries none")
	}
}

func TestHandleSubscriptionDeletedCancelsUserAndPurchases(t *testing.T) {
	customerID := "cus_9"
	userRepo := &stubUserRepo{user: &models.User{ID: uuid.New(), StripeCustomerID: &customerID}}
	purchaseRepo := &stubPurchaseRepo{}
	service := newTestService(t, userRepo, purchaseRepo, time.Now())

	event := subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionDeleted, &stripe.Subscription{
		ID:       "sub_9",
		Status:   stripe.SubscriptionStatusCanceled,
		Customer: &stripe.Customer{ID: customerID},
	})

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(userRepo.statusWrites) != 1 || userRepo.statusWrites[0] != enums.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled status write, got %v", userRepo.statusWrites)
	}
	if len(purchaseRepo.canceled) != 1 || purchaseRepo.canceled[0] != "sub_9" {
		t.Fatalf("expected purchases canceled for sub_9")
	}
}

func TestHandleInvoicePaymentFailedMarksPastDue(t *testing.T) {
	customerID := "cus_10"
	userRepo := &stubUserRepo{user: &models.User{ID: uuid.New(), StripeCustomerID: &customerID}}
	service := newTestService(t, userRepo, &stubPurchaseRepo{}, time.Now())

	raw, _ := json.Marshal(map[string]any{"customer": customerID})
	event := &stripe.Event{
		ID:   "evt_invoice",
		Type: stripe.EventTypeInvoicePaymentFailed,
		Data: &stripe.EventData{Raw: raw},
	}

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(userRepo.statusWrites) != 1 || userRepo.statusWrites[0] != enums.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due write, got %v", userRepo.statusWrites)
	}
}

func TestHandleUnknownEventTypeIsAcknowledged(t *testing.T) {
	service := newTestService(t, &stubUserRepo{}, &stubPurchaseRepo{}, time.Now())

	event := &stripe.Event{
		ID:   "evt_other",
		Type: stripe.EventType("product.created"),
		Data: &stripe.EventData{Raw: []byte(`{}`)},
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown events must be acknowledged, got %v", err)
	}
}
