package entitlements

import (
	"testing"

	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
)

func completedPurchase(slug enums.Tier) models.Purchase {
	return models.Purchase{TierSlug: slug, Status: enums.PurchaseStatusCompleted}
}

func TestResolveEmptyHistoryGrantsFree(t *testing.T) {
	tiers := Resolve(nil, enums.SubscriptionStatusNone)
	assert.Equal(t, []enums.Tier{enums.TierFree}, tiers)
}

func TestResolveCumulativeAccess(t *testing.T) {
	tiers := Resolve([]models.Purchase{completedPurchase(enums.TierPro)}, enums.SubscriptionStatusNone)
	assert.Equal(t, []enums.Tier{enums.TierFree, enums.TierStarter, enums.TierPro}, tiers)
}

func TestResolveHighestCompletedWins(t *testing.T) {
	purchases := []models.Purchase{
		completedPurchase(enums.TierStarter),
		completedPurchase(enums.TierComplete),
		completedPurchase(enums.TierPro),
	}
	tiers := Resolve(purchases, enums.SubscriptionStatusNone)
	assert.Equal(t, enums.TierComplete.Includes(), tiers)
}

func TestResolveIgnoresNonCompletedPurchases(t *testing.T) {
	purchases := []models.Purchase{
		{TierSlug: enums.TierComplete, Status: enums.PurchaseStatusPending},
		{TierSlug: enums.TierPro, Status: enums.PurchaseStatusCanceled},
		completedPurchase(enums.TierStarter),
	}
	tiers := Resolve(purchases, enums.SubscriptionStatusNone)
	assert.Equal(t, []enums.Tier{enums.TierFree, enums.TierStarter}, tiers)
}

func TestResolveUnknownSlugDegradesToFree(t *testing.T) {
	tiers := Resolve([]models.Purchase{completedPurchase(enums.Tier("platinum"))}, enums.SubscriptionStatusNone)
	assert.Equal(t, []enums.Tier{enums.TierFree}, tiers)
}

func TestResolveActiveSubscriptionGrantsEverything(t *testing.T) {
	tiers := Resolve(nil, enums.SubscriptionStatusActive)
	assert.Equal(t, enums.TierComplete.Includes(), tiers)
}

func TestResolvePastDueDoesNotGrantEverything(t *testing.T) {
	tiers := Resolve([]models.Purchase{completedPurchase(enums.TierStarter)}, enums.SubscriptionStatusPastDue)
	assert.Equal(t, []enums.Tier{enums.TierFree, enums.TierStarter}, tiers)
}

func TestResolveMonotonicInPurchases(t *testing.T) {
	base := []models.Purchase{completedPurchase(enums.TierStarter)}
	grown := append(append([]models.Purchase(nil), base...), completedPurchase(enums.TierPro))

	before := Resolve(base, enums.SubscriptionStatusNone)
	after := Resolve(grown, enums.SubscriptionStatusNone)

	for _, tier := range before {
		assert.True(t, Allows(after, tier), "adding a purchase must not revoke %s", tier)
	}
}

func TestHighestTier(t *testing.T) {
	assert.Equal(t, enums.TierFree, HighestTier(nil, enums.SubscriptionStatusNone))
	assert.Equal(t, enums.TierPro, HighestTier([]models.Purchase{completedPurchase(enums.TierPro)}, enums.SubscriptionStatusNone))
	assert.Equal(t, enums.TierComplete, HighestTier(nil, enums.SubscriptionStatusActive))
}

func TestAllows(t *testing.T) {
	tiers := enums.TierStarter.Includes()
	assert.True(t, Allows(tiers, enums.TierFree))
	assert.True(t, Allows(tiers, enums.TierStarter))
	assert.False(t, Allows(tiers, enums.TierPro))
	assert.True(t, Allows(tiers, enums.Tier("mystery")), "unknown slugs gate as free")
}
