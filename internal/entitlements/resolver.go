package entitlements

import (
	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
)

// Resolve derives the set of accessible tiers from a user's purchase history
// and current subscription status. It is total: malformed purchase rows and
// unknown tier slugs degrade to free access instead of erroring.
//
// Only completed purchases count. The highest completed tier grants itself and
// every tier below it. An active subscription grants the full set regardless
// of purchase history.
func Resolve(purchases []models.Purchase, subscriptionStatus enums.SubscriptionStatus) []enums.Tier {
	if subscriptionStatus == enums.SubscriptionStatusActive {
		return enums.TierComplete.Includes()
	}

	highest := enums.TierFree
	for _, purchase := range purchases {
		if purchase.Status != enums.PurchaseStatusCompleted {
			continue
		}
		if purchase.TierSlug.Order() > highest.Order() {
			highest = purchase.TierSlug
		}
	}
	return highest.Includes()
}

// HighestTier returns the single highest accessible tier for the same inputs.
func HighestTier(purchases []models.Purchase, subscriptionStatus enums.SubscriptionStatus) enums.Tier {
	tiers := Resolve(purchases, subscriptionStatus)
	return tiers[len(tiers)-1]
}

// Allows reports whether the resolved set covers the required tier.
func Allows(tiers []enums.Tier, required enums.Tier) bool {
	for _, tier := range tiers {
		if tier == required {
			return true
		}
	}
	// Unknown slugs sort as free, which every set contains.
	return required.Order() == 0
}
