package enums

import "fmt"

// Tier identifies a content access level. Tiers are totally ordered;
// purchasing a tier grants access to it and everything below it.
type Tier string

const (
	TierFree     Tier = "free"
	TierStarter  Tier = "starter"
	TierPro      Tier = "pro"
	TierComplete Tier = "complete"
)

var tierOrder = map[Tier]int{
	TierFree:     0,
	TierStarter:  1,
	TierPro:      2,
	TierComplete: 3,
}

var orderedTiers = []Tier{TierFree, TierStarter, TierPro, TierComplete}

// String implements fmt.Stringer.
func (t Tier) String() string {
	return string(t)
}

// IsValid reports whether the value is a known Tier.
func (t Tier) IsValid() bool {
	_, ok := tierOrder[t]
	return ok
}

// Order returns the tier's position in the access ladder. Unknown tiers
// rank as free so malformed data degrades to lowest access.
func (t Tier) Order() int {
	if order, ok := tierOrder[t]; ok {
		return order
	}
	return 0
}

// Includes returns the cumulative access set granted by this tier: the
// tier itself plus every tier below it.
func (t Tier) Includes() []Tier {
	order := t.Order()
	set := make([]Tier, 0, order+1)
	for _, candidate := range orderedTiers {
		if candidate.Order() <= order {
			set = append(set, candidate)
		}
	}
	return set
}

// AllTiers returns every tier in ascending order.
func AllTiers() []Tier {
	return append([]Tier(nil), orderedTiers...)
}

// ParseTier converts raw input into a Tier.
func ParseTier(value string) (Tier, error) {
	for tier := range tierOrder {
		if string(tier) == value {
			return tier, nil
		}
	}
	return "", fmt.Errorf("invalid tier %q", value)
}
