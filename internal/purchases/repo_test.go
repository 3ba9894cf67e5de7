package purchases

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
)

func setupPurchasesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS purchases (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  pricing_tier_id TEXT NOT NULL,
  tier_slug TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  billing_type TEXT,
  stripe_session_id TEXT,
  stripe_payment_intent_id TEXT,
  stripe_subscription_id TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, stripe_session_id),
  UNIQUE (stripe_session_id)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newPendingPurchase(userID uuid.UUID, sessionID string) *models.Purchase {
	session := sessionID
	return &models.Purchase{
		ID:              uuid.New(),
		UserID:          userID,
		PricingTierID:   uuid.New(),
		TierSlug:        enums.TierPro,
		Amount:          decimal.NewFromInt(49),
		Status:          enums.PurchaseStatusPending,
		StripeSessionID: &session,
	}
}

func TestCreateAndListByUser(t *testing.T) {
	db := setupPurchasesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	_, err := repo.Create(ctx, newPendingPurchase(userID, "cs_a"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newPendingPurchase(userID, "cs_b"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newPendingPurchase(uuid.New(), "cs_other"))
	require.NoError(t, err)

	rows, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, userID, row.UserID)
	}
}

func TestFindBySessionScopedToUser(t *testing.T) {
	db := setupPurchasesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	created, err := repo.Create(ctx, newPendingPurchase(userID, "cs_scoped"))
	require.NoError(t, err)

	found, err := repo.FindBySession(ctx, userID, "cs_scoped")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindBySession(ctx, uuid.New(), "cs_scoped")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCompleteBySessionIsIdempotent(t *testing.T) {
	db := setupPurchasesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	created, err := repo.Create(ctx, newPendingPurchase(userID, "cs_done"))
	require.NoError(t, err)

	intent := "pi_123"
	require.NoError(t, repo.CompleteBySession(ctx, created.ID, &intent, nil))
	require.NoError(t, repo.CompleteBySession(ctx, created.ID, &intent, nil))

	found, err := repo.FindBySession(ctx, userID, "cs_done")
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusCompleted, found.Status)
	require.NotNil(t, found.StripePaymentIntentID)
	assert.Equal(t, intent, *found.StripePaymentIntentID)
	assert.Nil(t, found.StripeSubscriptionID)
}

func TestCancelBySubscription(t *testing.T) {
	db := setupPurchasesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	purchase := newPendingPurchase(userID, "cs_sub")
	sub := "sub_123"
	purchase.StripeSubscriptionID = &sub
	_, err := repo.Create(ctx, purchase)
	require.NoError(t, err)
	_, err = repo.Create(ctx, newPendingPurchase(userID, "cs_untouched"))
	require.NoError(t, err)

	affected, err := repo.CancelBySubscription(ctx, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	canceled, err := repo.FindBySession(ctx, userID, "cs_sub")
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusCanceled, canceled.Status)

	untouched, err := repo.FindBySession(ctx, userID, "cs_untouched")
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusPending, untouched.Status)
}

func TestDuplicateSessionRejected(t *testing.T) {
	db := setupPurchasesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	_, err := repo.Create(ctx, newPendingPurchase(userID, "cs_dup"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newPendingPurchase(userID, "cs_dup"))
	assert.Error(t, err)
}
