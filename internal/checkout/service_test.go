package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/promptvault/promptvault-backend/pkg/config"
	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
)

type stubTierRepo struct {
	tier *models.PricingTier
}

func (s *stubTierRepo) FindByID(_ context.Context, id uuid.UUID) (*models.PricingTier, error) {
	if s.tier == nil || s.tier.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.tier, nil
}

type stubUserRepo struct {
	user *models.User
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

type stubPurchaseRepo struct {
	created []*models.Purchase
	err     error
}

func (s *stubPurchaseRepo) Create(_ context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, purchase)
	return purchase, nil
}

type stubSessionClient struct {
	session    *stripe.CheckoutSession
	err        error
	calls      int
	lastParams *stripe.CheckoutSessionParams
}

func (s *stubSessionClient) CreateSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.calls++
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func testURLs() config.CheckoutConfig {
	return config.CheckoutConfig{
		SuccessURL: "https://promptvault.test/success",
		CancelURL:  "https://promptvault.test/cancel",
	}
}

func proTier() *models.PricingTier {
	return &models.PricingTier{
		ID:     uuid.New(),
		Slug:   enums.TierPro,
		Name:   "Pro",
		Price:  decimal.NewFromInt(49),
		Active: true,
	}
}

func newTestService(t *testing.T, tiers *stubTierRepo, users *stubUserRepo, purchases *stubPurchaseRepo, sessions SessionClient) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		TierRepo:     tiers,
		UserRepo:     users,
		PurchaseRepo: purchases,
		Sessions:     sessions,
		URLs:         testURLs(),
	})
	require.NoError(t, err)
	return svc
}

func TestStartRejectsSlugMismatchWithoutWriting(t *testing.T) {
	tier := proTier()
	purchases := &stubPurchaseRepo{}
	sessions := &stubSessionClient{}
	svc := newTestService(t, &stubTierRepo{tier: tier}, &stubUserRepo{}, purchases, sessions)

	_, err := svc.Start(context.Background(), uuid.New(), StartInput{TierID: tier.ID, TierSlug: enums.TierComplete})

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Empty(t, purchases.created, "mismatch must not write a purchase row")
	assert.Zero(t, sessions.calls, "mismatch must not reach the gateway")
}

func TestStartUnknownTierIsNotFound(t *testing.T) {
	svc := newTestService(t, &stubTierRepo{}, &stubUserRepo{}, &stubPurchaseRepo{}, &stubSessionClient{})

	_, err := svc.Start(context.Background(), uuid.New(), StartInput{TierID: uuid.New(), TierSlug: enums.TierPro})

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestStartFreeTierCompletesWithoutGateway(t *testing.T) {
	tier := proTier()
	tier.Slug = enums.TierFree
	tier.Price = decimal.Zero
	purchases := &stubPurchaseRepo{}
	sessions := &stubSessionClient{}
	userID := uuid.New()
	svc := newTestService(t, &stubTierRepo{tier: tier}, &stubUserRepo{}, purchases, sessions)

	result, err := svc.Start(context.Background(), userID, StartInput{TierID: tier.ID, TierSlug: enums.TierFree})

	require.NoError(t, err)
	assert.Equal(t, testURLs().SuccessURL, result.RedirectURL)
	assert.Zero(t, sessions.calls)
	require.Len(t, purchases.created, 1)
	created := purchases.created[0]
	assert.Equal(t, enums.PurchaseStatusCompleted, created.Status)
	assert.Equal(t, userID, created.UserID)
	assert.True(t, created.Amount.IsZero())
	assert.Nil(t, created.StripeSessionID)
}

func TestStartPaidWithoutGatewayIsConfigError(t *testing.T) {
	tier := proTier()
	svc := newTestService(t, &stubTierRepo{tier: tier}, &stubUserRepo{}, &stubPurchaseRepo{}, nil)

	_, err := svc.Start(context.Background(), uuid.New(), StartInput{TierID: tier.ID, TierSlug: enums.TierPro})

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConfig, typed.Code())
}

func TestStartPaidCreatesSessionThenPendingPurchase(t *testing.T) {
	tier := proTier()
	user := &models.User{ID: uuid.New(), Email: "buyer@example.com"}
	purchases := &stubPurchaseRepo{}
	sessions := &stubSessionClient{session: &stripe.CheckoutSession{
		ID:  "cs_test_123",
		URL: "https://checkout.stripe.test/cs_test_123",
	}}
	svc := newTestService(t, &stubTierRepo{tier: tier}, &stubUserRepo{user: user}, purchases, sessions)

	result, err := svc.Start(context.Background(), user.ID, StartInput{TierID: tier.ID, TierSlug: enums.TierPro})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_123", result.RedirectURL)
	assert.Equal(t, "cs_test_123", result.SessionID)

	require.Len(t, purchases.created, 1)
	created := purchases.created[0]
	assert.Equal(t, enums.PurchaseStatusPending, created.Status)
	assert.Equal(t, tier.ID, created.PricingTierID)
	assert.True(t, created.Amount.Equal(tier.Price), "amount must snapshot the stored price")
	require.NotNil(t, created.StripeSessionID)
	assert.Equal(t, "cs_test_123", *created.StripeSessionID)

	require.NotNil(t, sessions.lastParams)
	meta := sessions.lastParams.Metadata
	assert.Equal(t, user.ID.String(), meta[metadataUserID])
	assert.Equal(t, tier.ID.String(), meta[metadataPricingTierID])
	assert.Equal(t, string(enums.TierPro), meta[metadataTierSlug])
	require.Len(t, sessions.lastParams.LineItems, 1)
	assert.Equal(t, int64(4900), *sessions.lastParams.LineItems[0].PriceData.UnitAmount)
}

func TestStartGatewayFailureLeavesNoRow(t *testing.T) {
	tier := proTier()
	user := &models.User{ID: uuid.New(), Email: "buyer@example.com"}
	purchases := &stubPurchaseRepo{}
	sessions := &stubSessionClient{err: errors.New("stripe unavailable")}
	svc := newTestService(t, &stubTierRepo{tier: tier}, &stubUserRepo{user: user}, purchases, sessions)

	_, err := svc.Start(context.Background(), user.ID, StartInput{TierID: tier.ID, TierSlug: enums.TierPro})

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Empty(t, purchases.created, "failed gateway call must not leave an orphan purchase")
}

func TestStartRecordFailureIsSurfaced(t *testing.T) {
	tier := proTier()
	user := &models.User{ID: uuid.New(), Email: "buyer@example.com"}
	purchases := &stubPurchaseRepo{err: errors.New("insert failed")}
	sessions := &stubSessionClient{session: &stripe.CheckoutSession{ID: "cs_x", URL: "https://checkout.stripe.test/cs_x"}}
	svc := newTestService(t, &stubTierRepo{tier: tier}, &stubUserRepo{user: user}, purchases, sessions)

	_, err := svc.Start(context.Background(), user.ID, StartInput{TierID: tier.ID, TierSlug: enums.TierPro})

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInternal, typed.Code())
	assert.Equal(t, 1, sessions.calls)
}

func TestStartInactiveTierIsNotFound(t *testing.T) {
	tier := proTier()
	tier.Active = false
	svc := newTestService(t, &stubTierRepo{tier: tier}, &stubUserRepo{}, &stubPurchaseRepo{}, &stubSessionClient{})

	_, err := svc.Start(context.Background(), uuid.New(), StartInput{TierID: tier.ID, TierSlug: enums.TierPro})

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
